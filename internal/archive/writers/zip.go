package writers

import (
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/infracollect/autozip/internal/archive"
	"github.com/klauspost/compress/zip"
)

// ZipWriter writes deflate compressed zip archives with one entry per
// regular file. Directories are implied by the entry names.
type ZipWriter struct{}

func NewZipWriter() *ZipWriter {
	return &ZipWriter{}
}

func (w *ZipWriter) Extension() string { return ".zip" }
func (w *ZipWriter) SingleFile() bool  { return false }

func (w *ZipWriter) Write(entries iter.Seq2[archive.Entry, error], dst io.WriteSeeker) (int, error) {
	zw := zip.NewWriter(dst)

	written, err := w.writeEntries(zw, entries)
	if closeErr := zw.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to finalize zip archive: %w", closeErr))
	}
	if err != nil {
		return 0, err
	}
	return written, nil
}

func (w *ZipWriter) writeEntries(zw *zip.Writer, entries iter.Seq2[archive.Entry, error]) (int, error) {
	written := 0
	for entry, err := range entries {
		if err != nil {
			return written, err
		}
		if entry.IsDir() {
			continue
		}

		header, err := zip.FileInfoHeader(entry.Info)
		if err != nil {
			return written, fmt.Errorf("failed to build zip header for %s: %w", entry.Name, err)
		}
		header.Name = entry.Name
		header.Method = zip.Deflate

		fw, err := zw.CreateHeader(header)
		if err != nil {
			return written, fmt.Errorf("failed to create zip entry %s: %w", entry.Name, err)
		}

		if _, err := copyEntry(fw, entry); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
