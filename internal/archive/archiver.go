package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const archiveMode os.FileMode = 0644

// Archiver builds one archive per call. It holds no mutable state and can
// be used concurrently on distinct sources.
type Archiver struct {
	fs       afero.Fs
	registry *Registry
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Archiver)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Archiver) {
		a.logger = logger
	}
}

// WithClock sets the clock used for timestamped names. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) {
		a.now = now
	}
}

func New(fs afero.Fs, registry *Registry, opts ...Option) *Archiver {
	a := &Archiver{
		fs:       fs,
		registry: registry,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("archiver")
	return a
}

// Fs returns the filesystem archives are read from and written to.
func (a *Archiver) Fs() afero.Fs {
	return a.fs
}

// Build validates req, writes the archive next to the source and, unless
// KeepOriginal is set, removes the source afterwards. The context is only
// checked before any I/O: once writing starts the build runs to the end.
//
// A cleanup failure is returned together with a valid Result.
func (a *Archiver) Build(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("build not started: %w", err)
	}

	logger := a.logger.With(
		zap.String("build_id", uuid.NewString()),
		zap.String("source", req.Source),
		zap.String("format", req.Format.String()),
	)

	src, err := StatSource(a.fs, req.Source)
	if err != nil {
		logger.Debug("invalid source", zap.Error(err))
		return Result{}, err
	}

	writer, err := a.registry.Lookup(req.Format)
	if err == nil && writer.SingleFile() && src.Kind == KindDirectory {
		return Result{}, &BuildError{
			Kind: ErrUnsupportedShape,
			Path: src.Path,
			Err:  fmt.Errorf("format %s only holds a single file", req.Format),
		}
	}
	if err != nil {
		return Result{}, err
	}

	output := OutputName(src, writer.Extension(), req.AppendTimestamp, a.now())
	logger = logger.With(zap.String("output", output))
	logger.Debug("building archive", zap.Stringer("kind", src.Kind))

	entries, err := a.write(src, writer, output)
	if err != nil {
		logger.Error("failed to write archive", zap.Error(err))
		return Result{}, &BuildError{Kind: ErrWrite, Path: output, Err: err}
	}

	info, err := a.fs.Stat(output)
	if err != nil {
		return Result{}, &BuildError{Kind: ErrWrite, Path: output, Err: fmt.Errorf("archive missing after write: %w", err)}
	}

	result := Result{
		OutputPath: output,
		Format:     req.Format,
		Size:       info.Size(),
		Entries:    entries,
	}
	logger.Info("archive created", zap.Int64("size", result.Size), zap.Int("entries", result.Entries))

	if req.KeepOriginal {
		return result, nil
	}

	if err := a.removeSource(src); err != nil {
		logger.Warn("archive created but original was not removed", zap.Error(err))
		return result, &BuildError{Kind: ErrCleanup, Path: src.Path, Err: err}
	}
	logger.Debug("removed original")

	return result, nil
}

// write stages the archive in a temporary sibling of output and renames it
// into place only after the writer and the file close both succeed.
func (a *Archiver) write(src Source, writer Writer, output string) (entries int, err error) {
	staged, err := afero.TempFile(a.fs, filepath.Dir(output), "."+filepath.Base(output)+".*.partial")
	if err != nil {
		return 0, fmt.Errorf("failed to create staging file: %w", err)
	}
	stagedName := staged.Name()

	defer func() {
		if err != nil {
			if rmErr := a.fs.Remove(stagedName); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				err = errors.Join(err, fmt.Errorf("failed to remove staging file: %w", rmErr))
			}
		}
	}()

	entries, err = writer.Write(Enumerate(a.fs, src), staged)
	if closeErr := staged.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close archive: %w", closeErr))
	}
	if err != nil {
		return 0, err
	}

	if err := a.fs.Chmod(stagedName, archiveMode); err != nil {
		return 0, fmt.Errorf("failed to set archive permissions: %w", err)
	}

	if err := a.fs.Rename(stagedName, output); err != nil {
		return 0, fmt.Errorf("failed to move archive into place: %w", err)
	}

	return entries, nil
}

func (a *Archiver) removeSource(src Source) error {
	if src.Kind == KindDirectory {
		return a.fs.RemoveAll(src.Path)
	}
	return a.fs.Remove(src.Path)
}
