package writers

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/infracollect/autozip/internal/archive"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType defines the compression wrapped around a tar stream.
type CompressionType string

const (
	CompressionGzip CompressionType = "gzip"
	CompressionZstd CompressionType = "zstd"
	CompressionLz4  CompressionType = "lz4"
)

// TarWriter writes a tar stream wrapped in a compressor. A directory
// source becomes a single top-level member holding the whole tree.
type TarWriter struct {
	compression CompressionType
}

// NewTarWriter creates a tar writer with the given compression.
// If compression is empty, defaults to gzip.
func NewTarWriter(compression CompressionType) (*TarWriter, error) {
	if compression == "" {
		compression = CompressionGzip
	}

	switch compression {
	case CompressionGzip, CompressionZstd, CompressionLz4:
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", compression)
	}

	return &TarWriter{compression: compression}, nil
}

func (w *TarWriter) Extension() string {
	switch w.compression {
	case CompressionZstd:
		return ".tar.zst"
	case CompressionLz4:
		return ".tar.lz4"
	default:
		return ".tar.gz"
	}
}

func (w *TarWriter) SingleFile() bool { return false }

func (w *TarWriter) Write(entries iter.Seq2[archive.Entry, error], dst io.WriteSeeker) (int, error) {
	compressor, err := w.newCompressor(dst)
	if err != nil {
		return 0, err
	}

	tw := tar.NewWriter(compressor)
	written, err := writeTarEntries(tw, entries)

	if closeErr := tw.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close tar writer: %w", closeErr))
	}
	// zstd encoders must be closed to release their goroutines.
	if closeErr := compressor.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close compressor: %w", closeErr))
	}
	if err != nil {
		return 0, err
	}

	return written, nil
}

func (w *TarWriter) newCompressor(dst io.Writer) (io.WriteCloser, error) {
	switch w.compression {
	case CompressionZstd:
		enc, err := zstd.NewWriter(dst)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return enc, nil
	case CompressionLz4:
		return lz4.NewWriter(dst), nil
	default:
		return gzip.NewWriter(dst), nil
	}
}

func writeTarEntries(tw *tar.Writer, entries iter.Seq2[archive.Entry, error]) (int, error) {
	written := 0
	for entry, err := range entries {
		if err != nil {
			return written, err
		}

		header, err := tar.FileInfoHeader(entry.Info, "")
		if err != nil {
			return written, fmt.Errorf("failed to build tar header for %s: %w", entry.Name, err)
		}
		header.Name = entry.Name
		if entry.IsDir() {
			header.Name += "/"
		}

		if err := tw.WriteHeader(header); err != nil {
			return written, fmt.Errorf("failed to write tar header for %s: %w", entry.Name, err)
		}

		if !entry.IsDir() {
			if _, err := copyEntry(tw, entry); err != nil {
				return written, err
			}
		}
		written++
	}
	return written, nil
}
