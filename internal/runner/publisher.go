package runner

import (
	"context"

	v1 "github.com/infracollect/autozip/apis/v1"
	"github.com/infracollect/autozip/internal/publish"
)

// BuildPublisher creates the publisher described by the publish block, or nil when
// the job publishes nowhere.
func BuildPublisher(ctx context.Context, spec *v1.PublishSpec) (publish.Publisher, error) {
	if spec == nil {
		return nil, nil
	}

	if spec.Folder != nil {
		return publish.NewFolderPublisherFromPath(spec.Folder.Path)
	}

	if spec.S3 != nil {
		cfg := publish.S3Config{
			Bucket:         spec.S3.Bucket,
			ForcePathStyle: spec.S3.ForcePathStyle,
			Metadata:       spec.S3.Metadata,
		}
		if spec.S3.Prefix != nil {
			cfg.Prefix = *spec.S3.Prefix
		}
		if spec.S3.Region != nil {
			cfg.Region = *spec.S3.Region
		}
		if spec.S3.Endpoint != nil {
			cfg.Endpoint = *spec.S3.Endpoint
		}
		if spec.S3.Credentials != nil {
			cfg.AccessKeyID = spec.S3.Credentials.AccessKeyID
			cfg.SecretAccessKey = spec.S3.Credentials.SecretAccessKey
		}
		return publish.NewS3Publisher(ctx, cfg)
	}

	return nil, nil
}
