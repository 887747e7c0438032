package archive

import (
	"strings"
)

// Format identifies an archive container and its compression.
type Format string

const (
	FormatZip      Format = "zip"
	FormatGzip     Format = "gz"
	FormatTarGzip  Format = "tar.gz"
	FormatSevenZip Format = "7z"
	FormatTarZstd  Format = "tar.zst"
	FormatTarLz4   Format = "tar.lz4"
)

var formatAliases = map[string]Format{
	"zip":     FormatZip,
	"gz":      FormatGzip,
	"gzip":    FormatGzip,
	"tar.gz":  FormatTarGzip,
	"tgz":     FormatTarGzip,
	"7z":      FormatSevenZip,
	"7zip":    FormatSevenZip,
	"tar.zst": FormatTarZstd,
	"tzst":    FormatTarZstd,
	"tar.lz4": FormatTarLz4,
}

// ParseFormat normalizes a user supplied format selector. Leading dots and
// case are ignored, so ".TAR.GZ" and "tgz" both resolve to FormatTarGzip.
func ParseFormat(s string) (Format, error) {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	if f, ok := formatAliases[key]; ok {
		return f, nil
	}
	return "", &UnsupportedFormatError{Format: Format(s)}
}

func (f Format) String() string {
	return string(f)
}
