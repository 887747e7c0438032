package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	v1 "github.com/infracollect/autozip/apis/v1"
	"github.com/infracollect/autozip/internal/archive"
	"github.com/infracollect/autozip/internal/publish"
	"go.uber.org/zap"
)

const (
	defaultFormat = archive.FormatZip

	// ISO8601Basic is a filesystem-safe timestamp format without colons.
	ISO8601Basic = "20060102T150405Z"
)

var (
	defaultValidator = validator.New(validator.WithRequiredStructEnabled())
)

// ParseArchiveJob parses a YAML or JSON job file and validates it.
func ParseArchiveJob(data []byte) (v1.ArchiveJob, error) {
	var job v1.ArchiveJob
	if err := yaml.Unmarshal(data, &job); err != nil {
		return v1.ArchiveJob{}, fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	if err := defaultValidator.Struct(job); err != nil {
		return v1.ArchiveJob{}, fmt.Errorf("failed to validate job: %w", err)
	}

	return job, nil
}

// BuildVariables returns the variables available to ${VAR} expansion:
// JOB_NAME, JOB_DATE_ISO8601, JOB_DATE_RFC3339 and every allowed
// environment variable. An allowed variable that is unset is an error.
func BuildVariables(job v1.ArchiveJob, allowedEnv []string) (map[string]string, error) {
	now := time.Now().UTC()
	variables := map[string]string{
		"JOB_NAME":         job.Metadata.Name,
		"JOB_DATE_ISO8601": now.Format(ISO8601Basic),
		"JOB_DATE_RFC3339": now.Format(time.RFC3339),
	}

	var errs error
	for _, name := range allowedEnv {
		value, ok := os.LookupEnv(name)
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("allowed environment variable %q is not set", name))
			continue
		}
		variables[name] = value
	}
	if errs != nil {
		return nil, errs
	}

	return variables, nil
}

// Outcome is the result of one archive in a job.
type Outcome struct {
	ID     string
	Result archive.Result
	Err    error
}

type Runner struct {
	logger    *zap.Logger
	job       v1.ArchiveJob
	archiver  *archive.Archiver
	publisher publish.Publisher
}

// New creates a runner for job. publisher may be nil.
func New(logger *zap.Logger, job v1.ArchiveJob, archiver *archive.Archiver, publisher publish.Publisher) *Runner {
	logger.Info("creating runner", zap.String("job_name", job.Metadata.Name), zap.Int("archives", len(job.Spec.Archives)))

	return &Runner{
		logger:    logger,
		job:       job,
		archiver:  archiver,
		publisher: publisher,
	}
}

// Run builds every archive of the job in order. A failed archive does not
// stop the others; all failures are joined into the returned error.
func (r *Runner) Run(ctx context.Context) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(r.job.Spec.Archives))
	var errs error

	for _, spec := range r.job.Spec.Archives {
		logger := r.logger.With(zap.String("archive_id", spec.ID))

		req, err := buildRequest(r.job.Spec.Defaults, spec)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("archive %s: %w", spec.ID, err))
			outcomes = append(outcomes, Outcome{ID: spec.ID, Err: err})
			continue
		}

		result, err := r.archiver.Build(ctx, req)
		if err == nil || errors.Is(err, archive.ErrCleanup) {
			if pubErr := r.publish(ctx, result); pubErr != nil {
				err = errors.Join(err, pubErr)
			}
		}
		if err != nil {
			logger.Error("archive failed", zap.Error(err))
			errs = errors.Join(errs, fmt.Errorf("archive %s: %w", spec.ID, err))
		}

		outcomes = append(outcomes, Outcome{ID: spec.ID, Result: result, Err: err})
	}

	if r.publisher != nil {
		if err := r.publisher.Close(ctx); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to close publisher: %w", err))
		}
	}

	return outcomes, errs
}

func (r *Runner) publish(ctx context.Context, result archive.Result) error {
	if r.publisher == nil {
		return nil
	}

	if err := publish.PublishFile(ctx, r.archiver.Fs(), r.publisher, result.OutputPath); err != nil {
		return err
	}

	r.logger.Info("published archive",
		zap.String("output", result.OutputPath),
		zap.String("publisher", r.publisher.Name()),
	)
	return nil
}

// buildRequest merges one archive entry over the job defaults. Unset values fall back to
// zip, keep the original and no timestamp.
func buildRequest(defaults *v1.ArchiveDefaults, spec v1.ArchiveSpec) (archive.Request, error) {
	req := archive.Request{
		Source:       spec.Source,
		Format:       defaultFormat,
		KeepOriginal: true,
	}

	if defaults != nil {
		if defaults.Format != "" {
			req.Format = archive.Format(defaults.Format)
		}
		if defaults.KeepOriginal != nil {
			req.KeepOriginal = *defaults.KeepOriginal
		}
		if defaults.AppendTimestamp != nil {
			req.AppendTimestamp = *defaults.AppendTimestamp
		}
	}

	if spec.Format != "" {
		req.Format = archive.Format(spec.Format)
	}
	if spec.KeepOriginal != nil {
		req.KeepOriginal = *spec.KeepOriginal
	}
	if spec.AppendTimestamp != nil {
		req.AppendTimestamp = *spec.AppendTimestamp
	}

	format, err := archive.ParseFormat(req.Format.String())
	if err != nil {
		return archive.Request{}, err
	}
	req.Format = format

	return req, nil
}
