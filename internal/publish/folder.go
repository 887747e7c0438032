package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FolderPublisher copies archives into a directory.
type FolderPublisher struct {
	fs afero.Fs
}

func NewFolderPublisher(fs afero.Fs) Publisher {
	return &FolderPublisher{fs: fs}
}

// NewFolderPublisherFromPath roots a FolderPublisher at dir on the OS
// filesystem, creating dir when needed.
func NewFolderPublisherFromPath(dir string) (Publisher, error) {
	cleanPath := filepath.Clean(dir)

	if err := os.MkdirAll(cleanPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create publish directory %s: %w", cleanPath, err)
	}

	return NewFolderPublisher(afero.NewBasePathFs(afero.NewOsFs(), cleanPath)), nil
}

func (p *FolderPublisher) Name() string {
	return fmt.Sprintf("folder(%s)", p.fs.Name())
}

func (p *FolderPublisher) Kind() string {
	return "folder"
}

func (p *FolderPublisher) Publish(ctx context.Context, name string, data io.Reader) (err error) {
	f, err := p.fs.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if _, err = io.Copy(f, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	return nil
}

func (p *FolderPublisher) Close(ctx context.Context) error {
	return nil
}
