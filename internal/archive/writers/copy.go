package writers

import (
	"errors"
	"fmt"
	"io"

	"github.com/infracollect/autozip/internal/archive"
)

// copyEntry streams the content of entry into dst.
func copyEntry(dst io.Writer, entry archive.Entry) (n int64, err error) {
	src, err := entry.Open()
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", entry.SourcePath, err)
	}
	defer func() {
		err = errors.Join(err, src.Close())
	}()

	n, err = io.Copy(dst, src)
	if err != nil {
		return n, fmt.Errorf("failed to copy %s: %w", entry.SourcePath, err)
	}
	return n, nil
}
