package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/DanielPopoola/atelier-orders/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the slice of the S3 API the proof store needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ProofStore keeps uploaded payment receipts in a bucket.
type S3ProofStore struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3ProofStore builds a store from the default AWS credential chain.
// A configured endpoint switches to path-style addressing for S3-compatible
// servers.
func NewS3ProofStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*S3ProofStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("proof store initialised",
		"bucket", cfg.Bucket,
		"region", cfg.Region,
		"prefix", cfg.Prefix,
	)

	return NewProofStore(client, cfg.Bucket, cfg.Prefix, logger), nil
}

func NewProofStore(client ObjectPutter, bucket, prefix string, logger *slog.Logger) *S3ProofStore {
	return &S3ProofStore{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger.With("component", "proof-store"),
	}
}

func (s *S3ProofStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	objectKey := path.Join(s.prefix, key)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Error("failed to put proof",
			"bucket", s.bucket,
			"key", objectKey,
			"error", err,
		)
		return fmt.Errorf("failed to put object (bucket=%s, key=%s): %w", s.bucket, objectKey, err)
	}

	s.logger.Debug("proof stored", "key", objectKey, "size", size)
	return nil
}
