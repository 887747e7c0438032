package archive

import (
	"io"
	"iter"
)

// Writer serializes entries into one archive of a single format.
// Implementations hold no per-build state and may be shared.
type Writer interface {
	// Extension returns the file suffix for this format (e.g. ".tar.gz").
	Extension() string

	// SingleFile reports whether the format holds exactly one regular file.
	SingleFile() bool

	// Write consumes entries and writes the complete archive to dst, which
	// is positioned at offset 0. It returns the number of entries stored.
	Write(entries iter.Seq2[Entry, error], dst io.WriteSeeker) (int, error)
}
