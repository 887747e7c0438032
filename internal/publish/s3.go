package publish

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-cleanhttp"
)

// S3Uploader is the subset of the S3 upload manager used by S3Publisher.
type S3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
	// Metadata is attached to every uploaded object.
	Metadata map[string]string
}

// S3Publisher uploads archives to S3-compatible object storage.
type S3Publisher struct {
	bucket   string
	prefix   string
	metadata map[string]string
	uploader S3Uploader
}

func NewS3Publisher(ctx context.Context, cfg S3Config) (Publisher, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithHTTPClient(cleanhttp.DefaultPooledClient()),
	}

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// R2, MinIO and friends need a custom endpoint and often path-style addressing.
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	p := newS3Publisher(cfg.Bucket, cfg.Prefix, manager.NewUploader(client))
	p.metadata = cfg.Metadata
	return p, nil
}

func NewS3PublisherWithUploader(bucket, prefix string, uploader S3Uploader) Publisher {
	return newS3Publisher(bucket, prefix, uploader)
}

func newS3Publisher(bucket, prefix string, uploader S3Uploader) *S3Publisher {
	return &S3Publisher{
		bucket:   bucket,
		prefix:   prefix,
		uploader: uploader,
	}
}

func (p *S3Publisher) Name() string {
	if p.prefix != "" {
		return fmt.Sprintf("s3(%s/%s)", p.bucket, p.prefix)
	}
	return fmt.Sprintf("s3(%s)", p.bucket)
}

func (p *S3Publisher) Kind() string {
	return "s3"
}

func (p *S3Publisher) Publish(ctx context.Context, name string, data io.Reader) error {
	key := name
	if p.prefix != "" {
		key = path.Join(p.prefix, name)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   data,
	}
	if contentType := contentTypeFromPath(name); contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if len(p.metadata) > 0 {
		input.Metadata = p.metadata
	}

	if _, err := p.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to s3://%s/%s: %w", p.bucket, key, err)
	}

	return nil
}

func (p *S3Publisher) Close(ctx context.Context) error {
	return nil
}
