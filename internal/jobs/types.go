package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/briangreenhill/openlaw/openlaw"
)

const TaskWarmDetail = "cache:warm_detail"

// QueueCache holds cache warming tasks.
const QueueCache = "cache"

type WarmDetailPayload struct {
	Kind    string `json:"kind"`
	IDOrMst string `json:"id_or_mst"`
}

// Spec converts the payload to a detail request.
func (p WarmDetailPayload) Spec() (openlaw.RequestSpec, error) {
	kind, err := openlaw.ParseKind(p.Kind)
	if err != nil {
		return openlaw.RequestSpec{}, err
	}
	spec := openlaw.RequestSpec{Kind: kind, Mode: openlaw.ModeDetail, ID: strings.TrimSpace(p.IDOrMst)}
	return spec, spec.Validate()
}

// NewWarmDetailTask validates p and builds the task for it.
func NewWarmDetailTask(p WarmDetailPayload) (*asynq.Task, error) {
	if _, err := p.Spec(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal warm payload: %w", err)
	}
	return asynq.NewTask(TaskWarmDetail, payload,
		asynq.Queue(QueueCache),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
	), nil
}

// Retryable reports whether a failed warm is worth another attempt: network
// failures, upstream 5xx and 429 are; bad input, other 4xx and decode
// failures are not.
func Retryable(err error) bool {
	if errors.Is(err, openlaw.ErrValidation) {
		return false
	}
	var fe *openlaw.FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case openlaw.KindNetwork:
			return true
		case openlaw.KindHTTP:
			return fe.Status >= 500 || fe.Status == http.StatusTooManyRequests
		default:
			return false
		}
	}
	return true
}
