// Package autozip compresses a file or directory into a single archive next
// to it on the local filesystem.
//
//	a := autozip.New()
//	res, err := a.Build(ctx, autozip.Request{Source: "logs", Format: autozip.FormatTarGzip})
package autozip

import (
	"context"

	"github.com/infracollect/autozip/internal/archive"
	"github.com/infracollect/autozip/internal/archive/writers"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type (
	Request = archive.Request
	Result  = archive.Result
	Format  = archive.Format

	BuildError             = archive.BuildError
	UnsupportedFormatError = archive.UnsupportedFormatError
)

const (
	FormatZip      = archive.FormatZip
	FormatGzip     = archive.FormatGzip
	FormatTarGzip  = archive.FormatTarGzip
	FormatSevenZip = archive.FormatSevenZip
	FormatTarZstd  = archive.FormatTarZstd
	FormatTarLz4   = archive.FormatTarLz4
)

var (
	ErrSourceNotFound    = archive.ErrSourceNotFound
	ErrUnsupportedShape  = archive.ErrUnsupportedShape
	ErrUnsupportedFormat = archive.ErrUnsupportedFormat
	ErrUnsupportedEntry  = archive.ErrUnsupportedEntry
	ErrWrite             = archive.ErrWrite
	ErrCleanup           = archive.ErrCleanup
)

// ParseFormat resolves a format name such as "zip", ".tar.gz" or "tgz".
func ParseFormat(s string) (Format, error) {
	return archive.ParseFormat(s)
}

type config struct {
	logger *zap.Logger
	fs     afero.Fs
}

type Option func(*config)

// WithLogger sets the logger used for build events.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithFs replaces the OS filesystem, mostly useful in tests.
func WithFs(fs afero.Fs) Option {
	return func(c *config) {
		c.fs = fs
	}
}

// Archiver builds archives with every supported format registered.
type Archiver struct {
	archiver *archive.Archiver
	registry *archive.Registry
}

func New(opts ...Option) *Archiver {
	cfg := config{
		logger: zap.NewNop(),
		fs:     afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	registry := writers.NewDefaultRegistry()
	return &Archiver{
		archiver: archive.New(cfg.fs, registry, archive.WithLogger(cfg.logger)),
		registry: registry,
	}
}

// Build archives req.Source. See archive.Archiver.Build for the failure modes.
func (a *Archiver) Build(ctx context.Context, req Request) (Result, error) {
	return a.archiver.Build(ctx, req)
}

// Formats lists the formats Build accepts, sorted.
func (a *Archiver) Formats() []Format {
	return a.registry.Available()
}
