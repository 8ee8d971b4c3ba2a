package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Cache backends selectable with CACHE_BACKEND.
const (
	BackendS3       = "s3"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// ServerConfig is read from the platform environment by the API server and
// the worker.
type ServerConfig struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error"`

	// The credential is checked per request so that the server still starts
	// (and reports a config error) without it.
	OC      string        `env:"OPEN_LAW_OC"`
	BaseURL string        `env:"OPEN_LAW_BASE_URL" envDefault:"https://www.law.go.kr/DRF" validate:"url"`
	Timeout time.Duration `env:"OPEN_LAW_TIMEOUT" envDefault:"15s" validate:"gt=0"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	Backend      string        `env:"CACHE_BACKEND" envDefault:"s3" validate:"oneof=s3 file postgres"`
	StoreURL     string        `env:"STORE_URL" validate:"omitempty,url"`
	StoreKey     string        `env:"STORE_ACCESS_KEY"`
	StoreSecret  string        `env:"STORE_SECRET_KEY"`
	StoreDir     string        `env:"STORE_DIR" envDefault:"./data/blobs" validate:"required_if=Backend file"`
	DatabaseURL  string        `env:"DATABASE_URL" validate:"required_if=Backend postgres"`
	Bucket       string        `env:"CACHE_BUCKET" envDefault:"caches-bucket" validate:"required"`
	Region       string        `env:"STORE_REGION" envDefault:"us-east-1"`
	SignedURLTTL time.Duration `env:"SIGNED_URL_TTL" envDefault:"1h" validate:"gt=0"`
}

var validate = validator.New()

// LoadServer parses and validates the server configuration from the process
// environment.
func LoadServer() (*ServerConfig, error) {
	return loadServer(env.Options{})
}

// LoadServerFrom is LoadServer over an explicit environment.
func LoadServerFrom(environ map[string]string) (*ServerConfig, error) {
	return loadServer(env.Options{Environment: environ})
}

func loadServer(opts env.Options) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return &cfg, nil
}

// Credential validates OPEN_LAW_OC.
func (c *ServerConfig) Credential() (string, error) {
	return ValidateCredential(c.OC)
}

// StoreConfigured reports whether the selected backend has the access
// entries it needs to cache detail lookups.
func (c *ServerConfig) StoreConfigured() bool {
	switch c.Backend {
	case BackendS3:
		return c.StoreURL != "" && c.StoreKey != "" && c.StoreSecret != ""
	case BackendFile:
		return c.StoreURL != "" && c.StoreKey != "" && c.StoreDir != ""
	case BackendPostgres:
		return c.StoreURL != "" && c.StoreKey != "" && c.DatabaseURL != ""
	}
	return false
}
