package cache

import (
	"context"
	"fmt"

	"github.com/briangreenhill/openlaw/internal/auth"
	"github.com/briangreenhill/openlaw/internal/config"
)

// Open builds the store selected by cfg.Backend. The returned func releases
// it.
func Open(ctx context.Context, cfg *config.ServerConfig) (Store, func(), error) {
	links := auth.BlobLink{Secret: []byte(cfg.StoreKey), BaseURL: cfg.StoreURL}
	switch cfg.Backend {
	case config.BackendS3:
		s, err := NewS3Store(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.StoreURL,
			AccessKey: cfg.StoreKey,
			SecretKey: cfg.StoreSecret,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case config.BackendFile:
		s, err := NewFileStore(cfg.StoreDir, links)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case config.BackendPostgres:
		s, err := NewPGStore(ctx, cfg.DatabaseURL, links)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}
