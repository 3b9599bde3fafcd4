package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/S1riyS/happyphone/server/internal/config"
	"github.com/S1riyS/happyphone/server/pkg/logging"
	"github.com/S1riyS/happyphone/server/pkg/logging/slogext"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3BlobStore keeps each value as one JSON object under
// <prefix>/<table>/<user>.json.
type s3BlobStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Client builds a path-style client, suitable for MinIO and other S3
// compatible servers when an endpoint is given.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	const op = "repository.NewS3Client"

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

func NewS3BlobStore(client *s3.Client, bucket, prefix string) BlobStore {
	return &s3BlobStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *s3BlobStore) key(table, userID string) string {
	return path.Join(s.prefix, table, userID+".json")
}

func (s *s3BlobStore) Load(ctx context.Context, table, userID string) ([]byte, bool, error) {
	const op = "repository.s3BlobStore.Load"

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(table, userID)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return data, true, nil
}

func (s *s3BlobStore) Save(ctx context.Context, table, userID string, data []byte) error {
	const op = "repository.s3BlobStore.Save"

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(table, userID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		logger := logging.GetLoggerFromContextWithOp(ctx, op)
		logger.Error("Failed to put object", slogext.Err(err), slog.String("table", table))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// EnsureBucket creates the bucket when it is missing.
func EnsureBucket(ctx context.Context, client *s3.Client, bucket string) error {
	const op = "repository.EnsureBucket"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}

	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		logger.Error("Failed to create bucket", slogext.Err(err), slog.String("bucket", bucket))
		return fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("Created bucket", slog.String("bucket", bucket))
	return nil
}
