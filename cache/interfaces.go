// Package cache stores upstream results as blobs and hands out time-limited
// links to them.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Reader.Get for a missing blob.
	ErrNotFound = errors.New("blob not found")
	// ErrStoreWrite wraps a failed upload.
	ErrStoreWrite = errors.New("blob store write failed")
	// ErrHandleIssuance wraps a failure to sign a link.
	ErrHandleIssuance = errors.New("signed url issuance failed")
)

// Store is a blob store able to issue time-limited links to its objects.
type Store interface {
	Exists(ctx context.Context, path string) (bool, error)
	// Put creates or overwrites the object at path.
	Put(ctx context.Context, path string, data []byte, contentType string) error
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// Reader is implemented by stores whose links are served by this process.
type Reader interface {
	Get(ctx context.Context, path string) (data []byte, contentType string, err error)
}

// Handle is a retrievable reference to a cached blob.
type Handle struct {
	URL       string    `json:"url"`
	Path      string    `json:"path"`
	ExpiresAt time.Time `json:"expires_at"`
	Hit       bool      `json:"hit"`
}
