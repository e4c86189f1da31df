// Package s3 uploads run output to AWS S3 or an S3-compatible service.
package s3

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	simconfig "github.com/daysim/daysim/pkg/config"
	simerrors "github.com/daysim/daysim/pkg/errors"
	"github.com/daysim/daysim/pkg/resilience"
)

// Config holds S3 client configuration.
type Config struct {
	// Region is the AWS region (e.g., "us-east-1")
	Region string

	// Bucket receives the uploads
	Bucket string

	// Prefix is prepended to every object key
	Prefix string

	// Endpoint overrides the default S3 endpoint (for S3-compatible services)
	Endpoint string

	// UsePathStyle forces path-style addressing (for MinIO, LocalStack)
	UsePathStyle bool

	// Credentials (optional - uses default chain if not provided)
	AccessKeyID     string
	SecretAccessKey string

	UploadTimeout time.Duration

	// Retry applies to each PutObject.
	Retry resilience.Backoff
}

// DefaultConfig returns sensible defaults for S3 configuration.
func DefaultConfig(bucket, region string) Config {
	return Config{
		Bucket:        bucket,
		Region:        region,
		UploadTimeout: 5 * time.Minute,
		Retry:         resilience.DefaultBackoff(),
	}
}

// FromOutput converts the s3 part of the output configuration.
func FromOutput(sc simconfig.S3Config) Config {
	cfg := DefaultConfig(sc.Bucket, sc.Region)
	cfg.Prefix = sc.Prefix
	cfg.Endpoint = sc.Endpoint
	cfg.UsePathStyle = sc.PathStyle
	cfg.AccessKeyID = sc.AccessKey
	cfg.SecretAccessKey = sc.SecretKey
	return cfg
}

// putObjectAPI is the part of *s3.Client the uploader needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader copies local files into the configured bucket.
type Uploader struct {
	cfg    Config
	client putObjectAPI
}

// NewUploader creates an uploader backed by a real S3 client.
func NewUploader(ctx context.Context, cfg Config) (*Uploader, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	// Use explicit credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, simerrors.Wrap(err, simerrors.CodeUpload, "load AWS config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newUploader(cfg, client), nil
}

func newUploader(cfg Config, client putObjectAPI) *Uploader {
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 5 * time.Minute
	}
	return &Uploader{cfg: cfg, client: client}
}

// Key returns the object key of a local file for a run:
// <prefix>/<runID>/<file name>.
func (u *Uploader) Key(runID, localPath string) string {
	return path.Join(u.cfg.Prefix, runID, filepath.Base(localPath))
}

// Upload puts one file and returns its object key. Failed puts are retried
// with the configured backoff; each attempt reopens the file.
func (u *Uploader) Upload(ctx context.Context, runID, localPath string) (string, error) {
	key := u.Key(runID, localPath)
	err := resilience.Retry(ctx, u.cfg.Retry, func(ctx context.Context) error {
		f, err := os.Open(localPath)
		if err != nil {
			return resilience.Permanent(simerrors.Wrap(err, simerrors.CodeUpload, "open output file").
				WithContext("path", localPath))
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(ctx, u.cfg.UploadTimeout)
		defer cancel()

		_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(u.cfg.Bucket),
			Key:         aws.String(key),
			Body:        f,
			ContentType: aws.String(contentType(localPath)),
			Metadata:    map[string]string{"daysim-run-id": runID},
		})
		return err
	})
	if err != nil {
		if simerrors.GetCode(err) == simerrors.CodeUpload {
			return "", err
		}
		return "", simerrors.Wrap(err, simerrors.CodeUpload, "put object").
			WithContext("bucket", u.cfg.Bucket).
			WithContext("key", key)
	}
	return key, nil
}

// UploadAll uploads every file, stopping at the first failure.
func (u *Uploader) UploadAll(ctx context.Context, runID string, files []string) ([]string, error) {
	keys := make([]string, 0, len(files))
	for _, f := range files {
		key, err := u.Upload(ctx, runID, f)
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// URI returns the s3:// location of key.
func (u *Uploader) URI(key string) string {
	return "s3://" + u.cfg.Bucket + "/" + key
}

func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".parquet":
		return "application/vnd.apache.parquet"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
