package archive

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Entry is one record to be written into an archive.
type Entry struct {
	// SourcePath is the absolute path on the source filesystem.
	SourcePath string
	// Name is the slash separated name inside the archive. It always starts
	// with the source basename and never ends with a slash.
	Name string
	Info os.FileInfo

	fs afero.Fs
}

// IsDir reports whether the entry is a directory record.
func (e Entry) IsDir() bool {
	return e.Info.IsDir()
}

// Open opens the entry content for reading.
func (e Entry) Open() (io.ReadCloser, error) {
	if e.IsDir() {
		return nil, fmt.Errorf("entry %s is a directory", e.Name)
	}
	return e.fs.Open(e.SourcePath)
}

var errStopWalk = errors.New("stop walk")

// Enumerate returns the entries of src in lexical order. A file source
// yields exactly one entry. A directory source yields itself, then every
// directory and regular file beneath it, named relative to the parent of
// src. Symbolic links and special files end the sequence with an
// ErrUnsupportedEntry error.
func Enumerate(fs afero.Fs, src Source) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		if src.Kind == KindFile {
			yield(Entry{SourcePath: src.Path, Name: src.Name, Info: src.Info, fs: fs}, nil)
			return
		}

		parent := filepath.Dir(src.Path)
		err := afero.Walk(fs, src.Path, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return fmt.Errorf("failed to walk %s: %w", path, err)
			}

			if !info.IsDir() && !info.Mode().IsRegular() {
				return fmt.Errorf("%w: %s is a %s", ErrUnsupportedEntry, path, describeMode(info.Mode()))
			}

			rel, err := filepath.Rel(parent, path)
			if err != nil {
				return fmt.Errorf("failed to compute archive name for %s: %w", path, err)
			}

			entry := Entry{SourcePath: path, Name: filepath.ToSlash(rel), Info: info, fs: fs}
			if !yield(entry, nil) {
				return errStopWalk
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopWalk) {
			yield(Entry{}, err)
		}
	}
}

func describeMode(mode os.FileMode) string {
	switch {
	case mode&os.ModeSymlink != 0:
		return "symbolic link"
	case mode&os.ModeNamedPipe != 0:
		return "named pipe"
	case mode&os.ModeSocket != 0:
		return "socket"
	case mode&os.ModeDevice != 0:
		return "device"
	default:
		return "special file"
	}
}
