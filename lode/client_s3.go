package lode

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"

	"github.com/justapithecus/knotfold/types"
)

// S3Config locates a dataset in an S3 bucket. Endpoint and UsePathStyle
// cover S3-compatible stores such as MinIO or R2.
type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string // empty uses the SDK default chain
	Endpoint     string
	UsePathStyle bool
}

// Validate requires a bucket.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return types.NewError(types.CodeConfig, "s3 storage", "bucket is required")
	}
	return nil
}

// ParseS3Path splits "bucket[/prefix]" with an optional s3:// scheme.
// Surrounding slashes on the prefix are dropped.
func ParseS3Path(path string) (bucket, prefix string) {
	path = strings.TrimPrefix(path, "s3://")
	bucket, prefix, _ = strings.Cut(path, "/")
	return bucket, strings.Trim(prefix, "/")
}

// NewLodeS3Client opens a run partition in S3. Credentials come from the
// AWS default chain.
func NewLodeS3Client(cfg Config, s3cfg S3Config) (*LodeClient, error) {
	factory, err := newS3Factory(s3cfg)
	if err != nil {
		return nil, err
	}
	return NewLodeClientWithFactory(cfg, factory)
}

// newS3Factory is shared by the write client and the read dataset.
func newS3Factory(s3cfg S3Config) (lode.StoreFactory, error) {
	if err := s3cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := newS3Client(context.Background(), s3cfg)
	if err != nil {
		return nil, err
	}
	storeCfg := lodes3.Config{Bucket: s3cfg.Bucket, Prefix: s3cfg.Prefix}
	return func() (lode.Store, error) {
		return lodes3.New(client, storeCfg)
	}, nil
}

func newS3Client(ctx context.Context, s3cfg S3Config) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if s3cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(s3cfg.Region))
	}
	aws, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return s3.NewFromConfig(aws, func(o *s3.Options) {
		if s3cfg.Endpoint != "" {
			o.BaseEndpoint = &s3cfg.Endpoint
		}
		o.UsePathStyle = s3cfg.UsePathStyle
	}), nil
}
