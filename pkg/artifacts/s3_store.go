package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store implements Store using AWS S3.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string // Optional key prefix (e.g., "uploads/")
}

// S3StoreConfig holds configuration for S3Store.
type S3StoreConfig struct {
	Bucket   string
	Region   string
	Endpoint string // Optional custom endpoint (for MinIO, LocalStack, etc.)
	Prefix   string // Optional key prefix
}

// NewS3Store creates a new S3-backed upload store.
func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO/LocalStack
		}
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg, clientOpts),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Put uploads data and returns its s3:// URL.
func (s *S3Store) Put(ctx context.Context, folder, filename, contentType string, data []byte) (string, error) {
	key := s.prefix + objectKey(folder, filename, time.Now())
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put failed: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// Get downloads an object by its s3:// URL.
func (s *S3Store) Get(ctx context.Context, url string) ([]byte, error) {
	key, err := s.key(url)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed for %s: %w", url, err)
	}
	defer func() { _ = result.Body.Close() }()

	return io.ReadAll(result.Body)
}

// Delete removes an object by its s3:// URL.
func (s *S3Store) Delete(ctx context.Context, url string) error {
	key, err := s.key(url)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed for %s: %w", url, err)
	}
	return nil
}

func (s *S3Store) key(url string) (string, error) {
	want := "s3://" + s.bucket + "/"
	if !strings.HasPrefix(url, want) {
		return "", fmt.Errorf("invalid s3 url for bucket %s: %s", s.bucket, url)
	}
	return strings.TrimPrefix(url, want), nil
}
