// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/openlaw/cache"
	"github.com/briangreenhill/openlaw/dispatch"
	"github.com/briangreenhill/openlaw/internal/auth"
	"github.com/briangreenhill/openlaw/internal/config"
	"github.com/briangreenhill/openlaw/internal/http/routes"
	"github.com/briangreenhill/openlaw/openlaw"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("svc", "api").Logger()
	if err := run(logger); err != nil {
		logger.Error().Err(err).Msg("api stopped")
		os.Exit(1)
	}
}

func run(logger zerolog.Logger) error {
	cfg, err := config.LoadServer()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	links := auth.BlobLink{Secret: []byte(cfg.StoreKey), BaseURL: cfg.StoreURL}
	opts := routes.ServerOptions{Links: links, Logger: logger}

	// A missing credential is reported per request rather than at startup.
	oc, err := cfg.Credential()
	if err != nil {
		logger.Warn().Err(err).Msg("open law credential unusable")
		opts.ConfigErr = err
	} else {
		client, err := openlaw.New(oc,
			openlaw.WithBaseURL(cfg.BaseURL),
			openlaw.WithTimeout(cfg.Timeout),
			openlaw.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("client: %w", err)
		}
		opts.Registry = dispatch.Setup(client)
	}

	if opts.Registry != nil && cfg.StoreConfigured() {
		store, closeStore, err := cache.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open %s blob store: %w", cfg.Backend, err)
		}
		defer closeStore()
		opts.Details = dispatch.NewDetailCache(opts.Registry, cache.NewBlobCache(store,
			cache.WithTTL(cfg.SignedURLTTL),
			cache.WithFillTimeout(3*cfg.Timeout),
			cache.WithLogger(logger),
		))
		if cfg.Backend != config.BackendS3 {
			if rd, ok := store.(cache.Reader); ok {
				opts.Blobs = rd
			}
		}
	} else {
		logger.Warn().Str("backend", cfg.Backend).Msg("blob store not configured, law.detail disabled")
	}

	s := routes.New(opts)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().Str("port", cfg.Port).Msg("starting api")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
