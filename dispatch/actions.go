package dispatch

import (
	"context"
	"encoding/json"

	"github.com/briangreenhill/openlaw/openlaw"
)

// Fetcher is the part of *openlaw.Client the actions use.
type Fetcher interface {
	Search(ctx context.Context, kind openlaw.Kind, query string, page openlaw.Page) (json.RawMessage, error)
	Detail(ctx context.Context, kind openlaw.Kind, identifier string) (json.RawMessage, error)
}

type searchAction struct {
	kind openlaw.Kind
	f    Fetcher
}

func (a searchAction) Name() string { return string(a.kind) + "." + string(openlaw.ModeSearch) }

func (a searchAction) Run(ctx context.Context, spec openlaw.RequestSpec) (json.RawMessage, error) {
	return a.f.Search(ctx, a.kind, spec.Query, spec.Page)
}

type detailAction struct {
	kind openlaw.Kind
	f    Fetcher
}

func (a detailAction) Name() string { return string(a.kind) + "." + string(openlaw.ModeDetail) }

func (a detailAction) Run(ctx context.Context, spec openlaw.RequestSpec) (json.RawMessage, error) {
	return a.f.Detail(ctx, a.kind, spec.ID)
}

// Setup returns a registry with search and detail for both kinds.
func Setup(f Fetcher) *Registry {
	r := NewRegistry()
	for _, k := range []openlaw.Kind{openlaw.KindLaw, openlaw.KindAdmRul} {
		r.Register(searchAction{kind: k, f: f})
		r.Register(detailAction{kind: k, f: f})
	}
	return r
}
