package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/openlaw/cache"
	"github.com/briangreenhill/openlaw/internal/jobs"
	"github.com/briangreenhill/openlaw/openlaw"
)

type detailHandler interface {
	Handle(ctx context.Context, spec openlaw.RequestSpec) (cache.Handle, error)
}

func warmDetailHandler(details detailHandler, log zerolog.Logger) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		var p jobs.WarmDetailPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			log.Error().Err(err).Msg("bad payload")
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
		spec, err := p.Spec()
		if err != nil {
			log.Error().Err(err).Str("kind", p.Kind).Msg("bad payload")
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		start := time.Now()
		h, err := details.Handle(ctx, spec)
		duration := time.Since(start)
		if err != nil {
			if jobs.Retryable(err) {
				log.Warn().Err(err).Str("id", spec.ID).Dur("duration", duration).Msg("warm failed, will retry")
				return err
			}
			log.Error().Err(err).Str("id", spec.ID).Dur("duration", duration).Msg("warm failed permanently")
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		log.Info().Str("id", spec.ID).Str("path", h.Path).Bool("hit", h.Hit).Dur("duration", duration).Msg("warmed")
		return nil
	}
}
