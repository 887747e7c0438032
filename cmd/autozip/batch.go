package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/infracollect/autozip/internal/archive"
	"github.com/infracollect/autozip/internal/archive/writers"
	"github.com/infracollect/autozip/internal/runner"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var batchCommand = &cli.Command{
	Name:  "batch",
	Usage: "Build every archive described in a job file",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "allowed-env",
			Usage:   "Environment variables allowed in job configuration (can be repeated)",
			Sources: cli.EnvVars("AUTOZIP_ALLOWED_ENV"),
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write a JSON summary of the run to this file, or - for stdout",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "job",
			UsageText: "The job file to run, or - for stdin",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		jobFilename := command.StringArg("job")
		if jobFilename == "" {
			return fmt.Errorf("no job file provided")
		}

		jobFile, err := readJobFile(jobFilename)
		if err != nil {
			return fmt.Errorf("failed to read job file '%s': %w", jobFilename, err)
		}

		job, err := runner.ParseArchiveJob(jobFile)
		if err != nil {
			return fmt.Errorf("failed to parse job: %w", formatValidationError(err))
		}

		variables, err := runner.BuildVariables(job, command.StringSlice("allowed-env"))
		if err != nil {
			return fmt.Errorf("failed to build variables: %w", err)
		}

		if err := runner.ExpandTemplates(&job, variables); err != nil {
			return fmt.Errorf("failed to expand templates: %w", err)
		}

		publisher, err := runner.BuildPublisher(ctx, job.Spec.Publish)
		if err != nil {
			return fmt.Errorf("failed to create publisher: %w", err)
		}

		archiver := archive.New(afero.NewOsFs(), writers.NewDefaultRegistry(), archive.WithLogger(logger))
		r := runner.New(logger.Named("runner"), job, archiver, publisher)

		outcomes, err := r.Run(ctx)
		if reportPath := command.String("report"); reportPath != "" {
			if reportErr := writeReport(command.Root().Writer, reportPath, runner.NewReport(job.Metadata.Name, outcomes)); reportErr != nil {
				err = errors.Join(err, reportErr)
			}
		} else {
			for _, outcome := range outcomes {
				if outcome.Result.OutputPath != "" {
					fmt.Fprintf(command.Root().Writer, "%s\t%s\n", outcome.ID, outcome.Result.OutputPath)
				}
			}
		}
		if err != nil {
			return fmt.Errorf("failed to run job: %w", err)
		}

		logger.Info("job completed", zap.String("job_name", job.Metadata.Name), zap.Int("archives", len(outcomes)))
		return nil
	},
}

func writeReport(stdout io.Writer, path string, report runner.Report) (err error) {
	if path == "-" {
		return report.Encode(stdout, "  ")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	return report.Encode(f, "  ")
}
