package writers

import (
	"github.com/infracollect/autozip/internal/archive"
)

// Register installs the writer for every supported format.
func Register(registry *archive.Registry) {
	registry.Register(archive.FormatZip, NewZipWriter())
	registry.Register(archive.FormatGzip, NewGzipWriter())
	registry.Register(archive.FormatSevenZip, NewSevenZipWriter())
	registry.Register(archive.FormatTarGzip, &TarWriter{compression: CompressionGzip})
	registry.Register(archive.FormatTarZstd, &TarWriter{compression: CompressionZstd})
	registry.Register(archive.FormatTarLz4, &TarWriter{compression: CompressionLz4})
}

// NewDefaultRegistry returns a registry with every supported format.
func NewDefaultRegistry() *archive.Registry {
	registry := archive.NewRegistry()
	Register(registry)
	return registry
}
