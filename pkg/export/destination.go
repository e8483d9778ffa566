package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/viant/afs"
	"github.com/viant/afs/url"
)

// Destination stores a finished report under a name
type Destination interface {
	Name() string
	Put(ctx context.Context, name string, data []byte) error
}

// URLDestination uploads reports below a base URL. Any scheme afs supports
// works, including plain file paths.
type URLDestination struct {
	fs   afs.Service
	base string
}

// NewURLDestination creates a destination below base. A nil fs uses the
// default afs service.
func NewURLDestination(fs afs.Service, base string) *URLDestination {
	if fs == nil {
		fs = afs.New()
	}
	return &URLDestination{fs: fs, base: base}
}

func (d *URLDestination) Name() string { return "url" }

// URL returns the location a report with the given name is uploaded to
func (d *URLDestination) URL(name string) string {
	return url.Join(d.base, name)
}

func (d *URLDestination) Put(ctx context.Context, name string, data []byte) error {
	target := d.URL(name)
	if err := d.fs.Upload(ctx, target, 0644, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload %s: %w", target, err)
	}
	return nil
}

// PutObjectAPI is the part of the S3 client a destination needs
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures an S3 destination. Static credentials are used when
// AccessKeyID is set, the default credential chain otherwise.
type S3Config struct {
	Bucket          string `yaml:"bucket" validate:"required"`
	Prefix          string `yaml:"prefix,omitempty"`
	Region          string `yaml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty" validate:"omitempty,url"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
}

// S3Destination uploads reports to an S3 bucket
type S3Destination struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Destination builds an S3 client from cfg
func NewS3Destination(ctx context.Context, cfg S3Config) (*S3Destination, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3DestinationWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3DestinationWithClient uses an existing client
func NewS3DestinationWithClient(client PutObjectAPI, bucket, prefix string) *S3Destination {
	return &S3Destination{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (d *S3Destination) Name() string { return "s3" }

// ObjectKey returns the key a report with the given name is stored under
func (d *S3Destination) ObjectKey(name string) string {
	if d.prefix == "" {
		return name
	}
	return d.prefix + "/" + name
}

func (d *S3Destination) Put(ctx context.Context, name string, data []byte) error {
	key := d.ObjectKey(name)
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("failed to put s3://%s/%s: %w", d.bucket, key, err)
	}
	return nil
}
