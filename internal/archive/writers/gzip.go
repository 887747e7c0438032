package writers

import (
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/infracollect/autozip/internal/archive"
	"github.com/klauspost/compress/gzip"
)

var errSingleFile = errors.New("gzip holds exactly one regular file")

// GzipWriter compresses a single file into one gzip member. The member
// header carries the original name and modification time.
type GzipWriter struct {
	level int
}

func NewGzipWriter() *GzipWriter {
	return &GzipWriter{level: gzip.DefaultCompression}
}

func (w *GzipWriter) Extension() string { return ".gz" }
func (w *GzipWriter) SingleFile() bool  { return true }

func (w *GzipWriter) Write(entries iter.Seq2[archive.Entry, error], dst io.WriteSeeker) (int, error) {
	var (
		entry archive.Entry
		count int
	)
	for e, err := range entries {
		if err != nil {
			return 0, err
		}
		if e.IsDir() || count > 0 {
			return 0, errSingleFile
		}
		entry = e
		count++
	}
	if count == 0 {
		return 0, errSingleFile
	}

	gw, err := gzip.NewWriterLevel(dst, w.level)
	if err != nil {
		return 0, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	gw.Name = entry.Name
	gw.ModTime = entry.Info.ModTime()

	_, err = copyEntry(gw, entry)
	if closeErr := gw.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close gzip stream: %w", closeErr))
	}
	if err != nil {
		return 0, err
	}
	return 1, nil
}
