package archive

import (
	"path/filepath"
	"time"
)

const (
	// TimestampLayout is the YYYYMMDDHHMMSS token appended to timestamped
	// archive names.
	TimestampLayout = "20060102150405"
)

// OutputName returns the archive path for src: a sibling of src named
// <basename>[_<timestamp>]<extension>. Names are not made unique beyond the
// timestamp, so two untimestamped builds of one source share a path.
func OutputName(src Source, extension string, appendTimestamp bool, now time.Time) string {
	name := src.Name
	if appendTimestamp {
		name += "_" + now.Format(TimestampLayout)
	}
	return filepath.Join(filepath.Dir(src.Path), name+extension)
}
