package openlaw

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/openlaw/internal/metrics"
)

// DefaultTimeout bounds one upstream call.
const DefaultTimeout = 15 * time.Second

var errEmptyBody = errors.New("empty response body")

type Client struct {
	http    *http.Client
	baseURL string
	oc      string
	timeout time.Duration
	log     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithBaseURL overrides the DRF root. Unparseable values are ignored.
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if raw == "" {
			return
		}
		if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
			c.baseURL = strings.TrimRight(u.String(), "/")
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a client bound to one credential (the OC parameter).
func New(oc string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(oc) == "" {
		return nil, errors.New("openlaw: credential (OC) required")
	}
	c := &Client{
		http:    http.DefaultClient,
		baseURL: DefaultBaseURL,
		oc:      strings.TrimSpace(oc),
		timeout: DefaultTimeout,
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// BaseURL returns the DRF root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// URL builds the request URL for kind/mode with this client's credential.
func (c *Client) URL(kind Kind, mode Mode, params Params) (string, error) {
	return BuildURL(c.baseURL, kind, mode, c.oc, params)
}

// FetchJSON performs one GET and returns the validated JSON body. Failures are
// *FetchError values; nothing is retried here.
func (c *Client) FetchJSON(ctx context.Context, rawURL string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	redacted := RedactURL(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: redacted, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	c.log.Debug().Str("url", redacted).Msg("GET")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: redacted, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Debug().Int("status", resp.StatusCode).Str("url", redacted).Msg("upstream error status")
		return nil, &FetchError{Kind: KindHTTP, URL: redacted, Status: resp.StatusCode, Body: truncate(string(b), maxErrorBody)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: redacted, Err: err}
	}
	c.log.Debug().Int("status", resp.StatusCode).Int("length", len(body)).Msg("upstream response")

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &FetchError{Kind: KindDecode, URL: redacted, Err: errEmptyBody}
	}
	var raw json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &FetchError{Kind: KindDecode, URL: redacted, Body: truncate(string(trimmed), maxErrorBody), Err: err}
	}
	return raw, nil
}

// get builds, fetches and records one call.
func (c *Client) get(ctx context.Context, kind Kind, mode Mode, params Params) (json.RawMessage, error) {
	u, err := c.URL(kind, mode, params)
	if err != nil {
		return nil, err
	}
	raw, err := c.FetchJSON(ctx, u)
	metrics.UpstreamRequests.WithLabelValues(string(kind), string(mode), outcome(err)).Inc()
	return raw, err
}

// Search runs one page of a keyword search.
func (c *Client) Search(ctx context.Context, kind Kind, query string, page Page) (json.RawMessage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search requires a query", ErrValidation)
	}
	return c.get(ctx, kind, ModeSearch, Params{
		"query":   query,
		"display": optionalInt(page.Display),
		"page":    optionalInt(page.Page),
	})
}

// Do validates spec and runs the matching flow.
func (c *Client) Do(ctx context.Context, spec RequestSpec) (json.RawMessage, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Mode == ModeDetail {
		return c.Detail(ctx, spec.Kind, spec.ID)
	}
	return c.Search(ctx, spec.Kind, spec.Query, spec.Page)
}

func outcome(err error) string {
	var fe *FetchError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &fe):
		return fe.Kind.String()
	default:
		return "error"
	}
}
