package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/openlaw/cache"
	"github.com/briangreenhill/openlaw/dispatch"
	"github.com/briangreenhill/openlaw/internal/config"
	"github.com/briangreenhill/openlaw/internal/jobs"
	"github.com/briangreenhill/openlaw/openlaw"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("svc", "worker").Logger()
	if err := run(logger); err != nil {
		logger.Error().Err(err).Msg("worker stopped")
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

	oc, err := cfg.Credential()
	if err != nil {
		return err
	}
	if !cfg.StoreConfigured() {
		return fmt.Errorf("%w: %s blob store is not configured", config.ErrConfig, cfg.Backend)
	}

	ctx := context.Background()
	store, closeStore, err := cache.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s blob store: %w", cfg.Backend, err)
	}
	defer closeStore()

	client, err := openlaw.New(oc,
		openlaw.WithBaseURL(cfg.BaseURL),
		openlaw.WithTimeout(cfg.Timeout),
		openlaw.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	details := dispatch.NewDetailCache(
		dispatch.Setup(client),
		cache.NewBlobCache(store,
			cache.WithTTL(cfg.SignedURLTTL),
			cache.WithFillTimeout(3*cfg.Timeout),
			cache.WithLogger(logger),
		),
	)

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			jobs.QueueCache: 10,
			"default":       5,
		},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(jobs.TaskWarmDetail, warmDetailHandler(details, logger))

	logger.Info().Str("redis", cfg.RedisAddr).Str("backend", cfg.Backend).Msg("worker running")
	return srv.Run(mux)
}
