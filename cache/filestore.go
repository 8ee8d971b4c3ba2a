package cache

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/briangreenhill/openlaw/internal/auth"
)

// FileStore keeps blobs under a local directory. Its links point at the API
// server's /blobs route and are verified with the same BlobLink.
type FileStore struct {
	dir   string
	links auth.BlobLink
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string, links auth.BlobLink) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store: directory required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, links: links}, nil
}

// path maps a blob path to a file below the store directory.
func (s *FileStore) path(p string) (string, error) {
	local := filepath.FromSlash(p)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("file store: invalid blob path %q", p)
	}
	return filepath.Join(s.dir, local), nil
}

func (s *FileStore) Exists(_ context.Context, p string) (bool, error) {
	full, err := s.path(p)
	if err != nil {
		return false, err
	}
	fi, err := os.Stat(full)
	switch {
	case err == nil:
		return fi.Mode().IsRegular(), nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Put writes through a temporary file and a rename so readers never see a
// partial blob.
func (s *FileStore) Put(_ context.Context, p string, data []byte, _ string) error {
	full, err := s.path(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o700); err != nil {
		return err
	}
	tmpPath := full + ".tmp." + uuid.NewString()
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, full); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *FileStore) SignedURL(_ context.Context, p string, ttl time.Duration) (string, error) {
	if _, err := s.path(p); err != nil {
		return "", err
	}
	if len(s.links.Secret) == 0 {
		return "", errors.New("file store: link secret not configured")
	}
	u, _ := s.links.URL(p, ttl)
	return u, nil
}

// Get returns the blob and a content type derived from its extension.
func (s *FileStore) Get(_ context.Context, p string) ([]byte, string, error) {
	full, err := s.path(p)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return data, contentTypeFor(p), nil
}

func contentTypeFor(p string) string {
	if ct := mime.TypeByExtension(filepath.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
