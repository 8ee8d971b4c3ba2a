package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServerFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://www.law.go.kr/DRF", cfg.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, BackendS3, cfg.Backend)
	assert.Equal(t, "caches-bucket", cfg.Bucket)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, time.Hour, cfg.SignedURLTTL)
	assert.False(t, cfg.StoreConfigured())

	_, err = cfg.Credential()
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestLoadServerOverrides(t *testing.T) {
	cfg, err := LoadServerFrom(map[string]string{
		"OPEN_LAW_OC":       "key",
		"OPEN_LAW_BASE_URL": "http://localhost:9000/DRF/",
		"OPEN_LAW_TIMEOUT":  "2s",
		"CACHE_BACKEND":     "s3",
		"STORE_URL":         "http://localhost:9001",
		"STORE_ACCESS_KEY":  "id",
		"STORE_SECRET_KEY":  "secret",
		"SIGNED_URL_TTL":    "10m",
		"LOG_LEVEL":         "DEBUG",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/DRF", cfg.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.SignedURLTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.StoreConfigured())

	oc, err := cfg.Credential()
	require.NoError(t, err)
	assert.Equal(t, "key", oc)
}

func TestLoadServerValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"CACHE_BACKEND": "memcached"}},
		{"postgres without database", map[string]string{"CACHE_BACKEND": "postgres"}},
		{"bad store url", map[string]string{"STORE_URL": "not a url"}},
		{"bad timeout", map[string]string{"OPEN_LAW_TIMEOUT": "soon"}},
		{"zero ttl", map[string]string{"SIGNED_URL_TTL": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadServerFrom(tt.env)
			assert.True(t, errors.Is(err, ErrConfig), "got %v", err)
		})
	}
}

func TestStoreConfiguredPerBackend(t *testing.T) {
	file := ServerConfig{Backend: BackendFile, StoreURL: "http://localhost:8080", StoreKey: "k", StoreDir: "/tmp/x"}
	assert.True(t, file.StoreConfigured())

	file.StoreKey = ""
	assert.False(t, file.StoreConfigured())

	pg := ServerConfig{Backend: BackendPostgres, StoreURL: "http://localhost:8080", StoreKey: "k"}
	assert.False(t, pg.StoreConfigured())
	pg.DatabaseURL = "postgres://localhost/x"
	assert.True(t, pg.StoreConfigured())
}
