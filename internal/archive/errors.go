package archive

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotFound is returned when the source path does not exist.
	ErrSourceNotFound = errors.New("source not found")
	// ErrUnsupportedShape is returned when the source kind cannot be stored in
	// the requested format, e.g. a directory with gzip.
	ErrUnsupportedShape = errors.New("source not supported by format")
	// ErrUnsupportedFormat is returned when no writer is registered for a format.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrUnsupportedEntry is returned while enumerating a tree that contains
	// symbolic links, devices, sockets or pipes.
	ErrUnsupportedEntry = errors.New("unsupported entry type")
	// ErrWrite is returned when creating the archive failed. No file is left
	// at the output path.
	ErrWrite = errors.New("failed to write archive")
	// ErrCleanup is returned when the archive was created but the original
	// source could not be removed. The Result is still valid.
	ErrCleanup = errors.New("failed to remove original")
)

// BuildError ties a failure kind to the path it concerns and the
// underlying cause.
type BuildError struct {
	Kind error  // one of the Err* sentinels
	Path string // source or output path
	Err  error  // underlying cause, may be nil
}

func (e *BuildError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *BuildError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// UnsupportedFormatError is returned when a format is not known.
type UnsupportedFormatError struct {
	Format    Format
	Available []Format
}

func (e *UnsupportedFormatError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unsupported format %q", string(e.Format))
	}
	return fmt.Sprintf("unsupported format %q (available: %v)", string(e.Format), e.Available)
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}
