package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// SourceKind tells files and directories apart.
type SourceKind int

const (
	KindFile SourceKind = iota
	KindDirectory
)

func (k SourceKind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// Source is a file or directory to be archived.
type Source struct {
	Path string // absolute, cleaned
	Name string // basename of Path
	Kind SourceKind
	Info os.FileInfo
}

// Request configures one archive build.
type Request struct {
	Source          string
	Format          Format
	KeepOriginal    bool
	AppendTimestamp bool
}

// Result describes a finished archive.
type Result struct {
	OutputPath string
	Format     Format
	Size       int64
	Entries    int
}

// StatSource resolves path on fs into a Source. The source itself is not
// followed if it is a symbolic link.
func StatSource(fs afero.Fs, path string) (Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Source{}, &BuildError{Kind: ErrSourceNotFound, Path: path, Err: err}
	}

	info, err := lstat(fs, abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Source{}, &BuildError{Kind: ErrSourceNotFound, Path: abs}
		}
		return Source{}, &BuildError{Kind: ErrSourceNotFound, Path: abs, Err: err}
	}

	src := Source{Path: abs, Name: filepath.Base(abs), Info: info}
	switch {
	case info.IsDir():
		src.Kind = KindDirectory
	case info.Mode().IsRegular():
		src.Kind = KindFile
	default:
		return Source{}, &BuildError{
			Kind: ErrUnsupportedShape,
			Path: abs,
			Err:  fmt.Errorf("%w: %s", ErrUnsupportedEntry, info.Mode().Type()),
		}
	}

	return src, nil
}

func lstat(fs afero.Fs, path string) (os.FileInfo, error) {
	if l, ok := fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return fs.Stat(path)
}
