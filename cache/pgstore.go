package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/briangreenhill/openlaw/internal/auth"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS blob_cache (
	path         TEXT PRIMARY KEY,
	content_type TEXT NOT NULL,
	body         BYTEA NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PGStore keeps blobs in a Postgres table. Links are served by the API
// server like FileStore's.
type PGStore struct {
	pool  *pgxpool.Pool
	links auth.BlobLink
}

// NewPGStore connects to dsn and creates the blob_cache table if needed.
func NewPGStore(ctx context.Context, dsn string, links auth.BlobLink) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg store: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg store: create schema: %w", err)
	}
	return &PGStore{pool: pool, links: links}, nil
}

func (s *PGStore) Close() { s.pool.Close() }

func (s *PGStore) Exists(ctx context.Context, path string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM blob_cache WHERE path = $1)`, path).Scan(&ok)
	return ok, err
}

func (s *PGStore) Put(ctx context.Context, path string, data []byte, contentType string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO blob_cache (path, content_type, body, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (path) DO UPDATE
		SET content_type = EXCLUDED.content_type,
		    body = EXCLUDED.body,
		    updated_at = EXCLUDED.updated_at`,
		path, contentType, data)
	return err
}

func (s *PGStore) SignedURL(_ context.Context, path string, ttl time.Duration) (string, error) {
	if len(s.links.Secret) == 0 {
		return "", errors.New("pg store: link secret not configured")
	}
	u, _ := s.links.URL(path, ttl)
	return u, nil
}

func (s *PGStore) Get(ctx context.Context, path string) ([]byte, string, error) {
	var (
		body []byte
		ct   string
	)
	err := s.pool.QueryRow(ctx, `SELECT body, content_type FROM blob_cache WHERE path = $1`, path).Scan(&body, &ct)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return body, ct, nil
}
