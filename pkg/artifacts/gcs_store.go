//go:build gcp

package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// GCSStore implements Store using Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string // Optional key prefix (e.g., "uploads/")
}

// GCSStoreConfig holds configuration for GCSStore.
type GCSStoreConfig struct {
	Bucket string
	Prefix string // Optional key prefix
}

// NewGCSStore creates a new GCS-backed upload store.
func NewGCSStore(ctx context.Context, cfg GCSStoreConfig) (*GCSStore, error) {
	// Uses ADC by default
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Put uploads data and returns its gs:// URL.
func (s *GCSStore) Put(ctx context.Context, folder, filename, contentType string, data []byte) (string, error) {
	key := s.prefix + objectKey(folder, filename, time.Now())
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs close failed: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, key), nil
}

// Get downloads an object by its gs:// URL.
func (s *GCSStore) Get(ctx context.Context, url string) ([]byte, error) {
	key, err := s.key(url)
	if err != nil {
		return nil, err
	}

	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("upload not found: %s", url)
		}
		return nil, fmt.Errorf("gcs read failed for %s: %w", url, err)
	}
	defer func() { _ = r.Close() }()

	return io.ReadAll(r)
}

// Delete removes an object by its gs:// URL.
func (s *GCSStore) Delete(ctx context.Context, url string) error {
	key, err := s.key(url)
	if err != nil {
		return err
	}

	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("gcs delete failed for %s: %w", url, err)
	}
	return nil
}

func (s *GCSStore) key(url string) (string, error) {
	want := "gs://" + s.bucket + "/"
	if !strings.HasPrefix(url, want) {
		return "", fmt.Errorf("invalid gcs url for bucket %s: %s", s.bucket, url)
	}
	return strings.TrimPrefix(url, want), nil
}
