// Package artifacts stores uploaded document files: scanned signature
// pages, seal images and decree printouts. Objects are keyed by folder
// and a generated name; Put returns a URL whose scheme identifies the
// backend, and Get/Delete accept that URL back.
package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the contract for uploaded file storage.
type Store interface {
	// Put persists data under folder and returns the object URL.
	Put(ctx context.Context, folder, filename, contentType string, data []byte) (string, error)
	// Get retrieves data by the URL Put returned.
	Get(ctx context.Context, url string) ([]byte, error)
	// Delete removes an object by its URL.
	Delete(ctx context.Context, url string) error
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// objectKey builds "folder/20250303T100000-1a2b3c4d-name.pdf". The
// timestamp keeps listings chronological; the uuid fragment avoids
// collisions on same-second uploads.
func objectKey(folder, filename string, now time.Time) string {
	name := unsafeNameChars.ReplaceAllString(filepath.Base(filename), "_")
	if name == "" || name == "." {
		name = "file"
	}
	return fmt.Sprintf("%s/%s-%s-%s",
		strings.Trim(folder, "/"),
		now.UTC().Format("20060102T150405"),
		uuid.New().String()[:8],
		name)
}

const fileURLScheme = "file://"

// FileStore is a filesystem-backed implementation of Store.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a store rooted at the specified directory.
func NewFileStore(baseDir string) (*FileStore, error) {
	//nolint:gosec // G301: 0755 is intentional for shared upload directory
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure upload dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) Put(_ context.Context, folder, filename, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := objectKey(folder, filename, time.Now())
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))

	//nolint:gosec // G301: folder component comes from a fixed set
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to ensure folder: %w", err)
	}

	// Write to temp, then rename
	tmpPath := path + ".tmp"
	//nolint:gosec // G306: 0644 is intentional for readable uploads
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("failed to commit upload: %w", err)
	}

	return fileURLScheme + key, nil
}

func (s *FileStore) Get(_ context.Context, url string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, err := s.key(url)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.baseDir, filepath.FromSlash(key))) //nolint:gosec // key validated
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("upload not found: %s", url)
		}
		//nolint:wrapcheck // caller provides context
		return nil, err
	}
	defer f.Close() //nolint:errcheck // best-effort close

	//nolint:wrapcheck // caller provides context
	return io.ReadAll(f)
}

func (s *FileStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.key(url)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.baseDir, filepath.FromSlash(key))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete upload: %w", err)
	}
	return nil
}

func (s *FileStore) key(url string) (string, error) {
	if !strings.HasPrefix(url, fileURLScheme) {
		return "", fmt.Errorf("invalid file url: %s", url)
	}
	key := strings.TrimPrefix(url, fileURLScheme)
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid file url: %s", url)
	}
	return key, nil
}
