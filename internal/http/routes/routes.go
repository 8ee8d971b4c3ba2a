package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/openlaw/cache"
	"github.com/briangreenhill/openlaw/dispatch"
	"github.com/briangreenhill/openlaw/internal/auth"
	appmw "github.com/briangreenhill/openlaw/internal/http/middleware"
	"github.com/briangreenhill/openlaw/internal/metrics"
	"github.com/briangreenhill/openlaw/openlaw"
)

// Actions served over HTTP.
var httpActions = map[string]bool{
	"law.search":    true,
	"law.detail":    true,
	"admrul.search": true,
}

type Server struct {
	Router    *chi.Mux
	Registry  *dispatch.Registry    // nil when the credential is unusable
	Details   *dispatch.DetailCache // nil when no blob store is configured
	Blobs     cache.Reader          // serves /blobs for file and postgres stores
	Links     auth.BlobLink
	ConfigErr error
	log       zerolog.Logger
}

type ServerOptions struct {
	Registry  *dispatch.Registry
	Details   *dispatch.DetailCache
	Blobs     cache.Reader
	Links     auth.BlobLink
	ConfigErr error
	Logger    zerolog.Logger
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("action", r.URL.Query().Get("action")).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)
	r.Use(appmw.CORS)

	s := &Server{
		Router:    r,
		Registry:  opts.Registry,
		Details:   opts.Details,
		Blobs:     opts.Blobs,
		Links:     opts.Links,
		ConfigErr: opts.ConfigErr,
		log:       opts.Logger,
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("write health check response")
		}
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/blobs/*", s.handleBlob)

	r.HandleFunc("/", s.handleAPI)
	r.HandleFunc("/api_openlaw", s.handleAPI)

	return s
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	action := q.Get("action")

	if r.Method != http.MethodGet {
		s.writeError(w, r, action, http.StatusMethodNotAllowed, map[string]any{"error": "only GET is supported"})
		return
	}
	if s.Registry == nil {
		msg := "OPEN_LAW_OC is not configured"
		if s.ConfigErr != nil {
			msg = s.ConfigErr.Error()
		}
		s.writeError(w, r, action, http.StatusInternalServerError, map[string]any{"error": msg})
		return
	}

	spec, err := openlaw.ParseAction(action)
	if err != nil || !httpActions[action] {
		s.writeError(w, r, action, http.StatusBadRequest, map[string]any{"error": "unknown action: " + action})
		return
	}

	switch spec.Mode {
	case openlaw.ModeSearch:
		s.handleSearch(w, r, spec)
	case openlaw.ModeDetail:
		s.handleDetail(w, r, spec)
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, spec openlaw.RequestSpec) {
	q := r.URL.Query()
	action := spec.Action()

	spec.Query = strings.TrimSpace(q.Get("query"))
	if spec.Query == "" {
		s.writeError(w, r, action, http.StatusBadRequest, map[string]any{"error": "query parameter is required"})
		return
	}
	var err error
	if spec.Page.Display, err = intParam(q.Get("display")); err != nil {
		s.writeError(w, r, action, http.StatusBadRequest, map[string]any{"error": "display must be a non-negative integer"})
		return
	}
	if spec.Page.Page, err = intParam(q.Get("page")); err != nil {
		s.writeError(w, r, action, http.StatusBadRequest, map[string]any{"error": "page must be a non-negative integer"})
		return
	}

	raw, err := s.Registry.Run(r.Context(), spec)
	if err != nil {
		s.writeUpstreamError(w, r, action, err)
		return
	}
	s.writeJSON(w, action, http.StatusOK, raw)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request, spec openlaw.RequestSpec) {
	action := spec.Action()

	spec.ID = strings.TrimSpace(r.URL.Query().Get("idOrMst"))
	if spec.ID == "" {
		s.writeError(w, r, action, http.StatusBadRequest, map[string]any{"error": "idOrMst parameter is required"})
		return
	}
	if s.Details == nil {
		s.writeError(w, r, action, http.StatusInternalServerError, map[string]any{
			"error": "blob store is not configured (STORE_URL / STORE_ACCESS_KEY)",
		})
		return
	}

	h, err := s.Details.Handle(r.Context(), spec)
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrStoreWrite):
		s.writeError(w, r, action, http.StatusInternalServerError, map[string]any{"error": "blob upload failed", "details": err.Error()})
		return
	case errors.Is(err, cache.ErrHandleIssuance):
		s.writeError(w, r, action, http.StatusInternalServerError, map[string]any{"error": "signed url issuance failed", "details": err.Error()})
		return
	default:
		s.writeUpstreamError(w, r, action, err)
		return
	}

	hlog.FromRequest(r).Debug().Str("path", h.Path).Bool("hit", h.Hit).Msg("detail served from blob cache")
	body, _ := json.Marshal(map[string]string{"url": h.URL})
	s.writeJSON(w, action, http.StatusOK, body)
}

func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	granted, err := s.Links.Verify(r.URL.Query().Get("token"))
	if err != nil || granted != path {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if s.Blobs == nil {
		http.NotFound(w, r)
		return
	}
	data, ct, err := s.Blobs.Get(r.Context(), path)
	if errors.Is(err, cache.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("path", path).Msg("read blob")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", ct)
	if _, err := w.Write(data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("write blob")
	}
}

func (s *Server) writeUpstreamError(w http.ResponseWriter, r *http.Request, action string, err error) {
	status := http.StatusInternalServerError
	msg := "upstream request failed"
	if errors.Is(err, openlaw.ErrValidation) {
		status = http.StatusBadRequest
		msg = "invalid request"
	}
	s.writeError(w, r, action, status, map[string]any{"error": msg, "message": err.Error()})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, action string, status int, body map[string]any) {
	level := zerolog.WarnLevel
	if status >= 500 {
		level = zerolog.ErrorLevel
	}
	hlog.FromRequest(r).WithLevel(level).Int("status", status).Interface("body", body).Msg("request failed")

	b, _ := json.Marshal(body)
	s.writeJSON(w, action, status, b)
}

func (s *Server) writeJSON(w http.ResponseWriter, action string, status int, body []byte) {
	if !httpActions[action] {
		action = "unknown"
	}
	metrics.HTTPRequests.WithLabelValues(action, strconv.Itoa(status)).Inc()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.log.Error().Err(err).Msg("write response")
	}
}

// intParam parses an optional non-negative integer; "" is zero.
func intParam(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("negative")
	}
	return n, nil
}
