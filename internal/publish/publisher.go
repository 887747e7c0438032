// Package publish delivers finished archives to a destination: a stream,
// a local folder or S3-compatible object storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
)

// Publisher is a destination for a completed archive.
type Publisher interface {
	Name() string
	Kind() string
	Publish(ctx context.Context, name string, data io.Reader) error
	Close(ctx context.Context) error
}

// PublishFile opens the archive at archivePath on fs and hands it to p under
// its basename.
func PublishFile(ctx context.Context, fs afero.Fs, p Publisher, archivePath string) (err error) {
	f, err := fs.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if err := p.Publish(ctx, filepath.Base(archivePath), f); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.Name(), err)
	}
	return nil
}

// contentTypeFromPath returns the Content-Type based on the archive suffix.
func contentTypeFromPath(p string) string {
	switch ext := path.Ext(p); ext {
	case ".zip":
		return "application/zip"
	case ".gz":
		return "application/gzip"
	case ".7z":
		return "application/x-7z-compressed"
	case ".zst":
		return "application/zstd"
	case ".lz4":
		return "application/x-lz4"
	case ".tar":
		return "application/x-tar"
	default:
		return ""
	}
}
