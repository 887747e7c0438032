package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	v1 "github.com/infracollect/autozip/apis/v1"
	"github.com/infracollect/autozip/internal/publish"
	"github.com/infracollect/autozip/internal/runner"
	"github.com/infracollect/autozip/pkg/autozip"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var errAborted = errors.New("aborted by user")

var buildCommand = &cli.Command{
	Name:  "build",
	Usage: "Archive a file or directory next to it",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   string(autozip.FormatZip),
			Usage:   "Archive format (zip, gz, tar.gz, 7z, tar.zst, tar.lz4)",
			Sources: cli.EnvVars("AUTOZIP_FORMAT"),
			Action: func(ctx context.Context, command *cli.Command, s string) error {
				_, err := autozip.ParseFormat(s)
				return err
			},
		},
		&cli.BoolFlag{
			Name:    "keep-original",
			Value:   true,
			Usage:   "Keep the source after archiving; --keep-original=false deletes it",
			Sources: cli.EnvVars("AUTOZIP_KEEP_ORIGINAL"),
		},
		&cli.BoolFlag{
			Name:    "timestamp",
			Aliases: []string{"t"},
			Usage:   "Append _YYYYMMDDHHMMSS to the archive name",
			Sources: cli.EnvVars("AUTOZIP_TIMESTAMP"),
		},
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "Do not ask before deleting the source",
		},
		&cli.StringFlag{
			Name:    "publish-dir",
			Usage:   "Copy the finished archive into this directory",
			Sources: cli.EnvVars("AUTOZIP_PUBLISH_DIR"),
		},
		&cli.StringFlag{
			Name:    "publish-s3",
			Usage:   "Upload the finished archive to this S3 bucket",
			Sources: cli.EnvVars("AUTOZIP_PUBLISH_S3"),
		},
		&cli.StringFlag{
			Name:    "s3-prefix",
			Usage:   "Key prefix for S3 uploads",
			Sources: cli.EnvVars("AUTOZIP_S3_PREFIX"),
		},
		&cli.StringFlag{
			Name:    "s3-region",
			Usage:   "AWS region for S3 uploads",
			Sources: cli.EnvVars("AUTOZIP_S3_REGION", "AWS_REGION"),
		},
		&cli.StringFlag{
			Name:    "s3-endpoint",
			Usage:   "Custom S3 endpoint (MinIO, R2...)",
			Sources: cli.EnvVars("AUTOZIP_S3_ENDPOINT"),
		},
		&cli.BoolFlag{
			Name:    "s3-path-style",
			Usage:   "Use path-style S3 addressing",
			Sources: cli.EnvVars("AUTOZIP_S3_PATH_STYLE"),
		},
		&cli.BoolFlag{
			Name:  "stdout",
			Usage: "Stream the finished archive to stdout instead of printing its path",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "source",
			UsageText: "The file or directory to archive",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		source := command.StringArg("source")
		if source == "" {
			return fmt.Errorf("no source provided")
		}

		format, err := autozip.ParseFormat(command.String("format"))
		if err != nil {
			return err
		}

		req := autozip.Request{
			Source:          source,
			Format:          format,
			KeepOriginal:    command.Bool("keep-original"),
			AppendTimestamp: command.Bool("timestamp"),
		}

		if !req.KeepOriginal && isInteractive(ctx) && !command.Bool("yes") {
			ok, err := confirmDeletion(os.Stdin, os.Stderr, source)
			if err != nil {
				return err
			}
			if !ok {
				return errAborted
			}
		}

		opts := publishOptions{
			dir:       command.String("publish-dir"),
			bucket:    command.String("publish-s3"),
			prefix:    command.String("s3-prefix"),
			region:    command.String("s3-region"),
			endpoint:  command.String("s3-endpoint"),
			pathStyle: command.Bool("s3-path-style"),
			stdout:    command.Bool("stdout"),
		}
		publisher, err := newPublisher(ctx, opts, os.Stdout)
		if err != nil {
			return err
		}

		a := autozip.New(autozip.WithLogger(logger))
		res, err := a.Build(ctx, req)
		if err != nil && !errors.Is(err, autozip.ErrCleanup) {
			return err
		}
		buildErr := err

		if publisher != nil {
			if err := publishArchive(ctx, afero.NewOsFs(), publisher, res.OutputPath); err != nil {
				return errors.Join(buildErr, err)
			}
			logger.Info("published archive", zap.String("output", res.OutputPath), zap.String("publisher", publisher.Name()))
		}

		if !opts.stdout {
			fmt.Fprintln(command.Root().Writer, res.OutputPath)
		}

		return buildErr
	},
}

type publishOptions struct {
	dir       string
	bucket    string
	prefix    string
	region    string
	endpoint  string
	pathStyle bool
	stdout    bool
}

// newPublisher returns the publisher selected by opts, or nil when none is.
// At most one destination may be chosen.
func newPublisher(ctx context.Context, opts publishOptions, stdout io.Writer) (publish.Publisher, error) {
	selected := lo.Count([]bool{opts.dir != "", opts.bucket != "", opts.stdout}, true)
	if selected > 1 {
		return nil, fmt.Errorf("--publish-dir, --publish-s3 and --stdout are mutually exclusive")
	}

	switch {
	case opts.stdout:
		return publish.NewStreamPublisher(stdout), nil
	case opts.dir != "":
		return runner.BuildPublisher(ctx, &v1.PublishSpec{
			Folder: &v1.FolderPublishSpec{Path: opts.dir},
		})
	case opts.bucket != "":
		return runner.BuildPublisher(ctx, &v1.PublishSpec{
			S3: &v1.S3PublishSpec{
				Bucket:         opts.bucket,
				Prefix:         lo.EmptyableToPtr(opts.prefix),
				Region:         lo.EmptyableToPtr(opts.region),
				Endpoint:       lo.EmptyableToPtr(opts.endpoint),
				ForcePathStyle: opts.pathStyle,
			},
		})
	default:
		return nil, nil
	}
}

func publishArchive(ctx context.Context, fs afero.Fs, p publish.Publisher, path string) error {
	err := publish.PublishFile(ctx, fs, p, path)
	return errors.Join(err, p.Close(ctx))
}
