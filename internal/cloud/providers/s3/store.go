// Package s3 writes folder uploads to an S3 bucket (or an S3-compatible
// endpoint such as MinIO).
package s3

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/aiverify/aiv-upload/internal/config"
	"github.com/aiverify/aiv-upload/internal/http"
	"github.com/aiverify/aiv-upload/internal/logging"
)

// Environment variables for static credentials. When unset the default AWS
// chain (env, shared config, IMDS) is used.
const (
	EnvAccessKey = "AIVERIFY_S3_ACCESS_KEY"
	EnvSecretKey = "AIVERIFY_S3_SECRET_KEY"
)

// putObjectAPI is the subset of the S3 client used here.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store puts objects into one bucket.
type Store struct {
	client putObjectAPI
	bucket string
}

// NewStore builds an S3 client from cfg, sharing the proxy-aware transport.
func NewStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Store, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3_bucket is required")
	}

	httpClient, err := http.CreateTransferClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithHTTPClient(httpClient),
	}
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if ak, sk := os.Getenv(EnvAccessKey), os.Getenv(EnvSecretKey); ak != "" && sk != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider(ak, sk, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(strings.TrimSuffix(cfg.S3Endpoint, "/"))
			o.UsePathStyle = true
		}
	})

	return &Store{client: client, bucket: cfg.S3Bucket}, nil
}

// Name identifies the store in logs and receipts.
func (s *Store) Name() string {
	return "s3://" + s.bucket
}

// PutObject uploads body as key. Non-seekable bodies are buffered to a temp
// file first because request signing needs to rewind.
func (s *Store) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	rs, cleanup, err := seekable(body)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          rs,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	return err
}

func seekable(body io.Reader) (io.ReadSeeker, func(), error) {
	if rs, ok := body.(io.ReadSeeker); ok {
		return rs, func() {}, nil
	}
	tmp, err := os.CreateTemp("", "aiv-upload-*")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to buffer upload: %w", err)
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}
	if _, err := io.Copy(tmp, body); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to buffer upload: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, nil, err
	}
	return tmp, cleanup, nil
}
