// Package openlaw is a client for the law.go.kr open API (DRF endpoints).
//
// It builds search and detail URLs, fetches and validates JSON responses, and
// resolves detail lookups that may be keyed by either a law ID or an MST
// serial number.
package openlaw

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the upstream "target" of a request.
type Kind string

const (
	KindLaw    Kind = "law"    // statutes
	KindAdmRul Kind = "admrul" // administrative rules
)

// ParseKind accepts the CLI/HTTP spelling of a resource kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindLaw:
		return KindLaw, nil
	case KindAdmRul:
		return KindAdmRul, nil
	}
	return "", fmt.Errorf("%w: kind must be law or admrul, got %q", ErrValidation, s)
}

// Mode selects between the search endpoint and the detail endpoint.
type Mode string

const (
	ModeSearch Mode = "search"
	ModeDetail Mode = "detail"
)

// Page holds the optional paging parameters of a search. Zero means unset.
type Page struct {
	Page    int
	Display int
}

// RequestSpec is one logical request against the API.
type RequestSpec struct {
	Kind  Kind
	Mode  Mode
	Query string
	ID    string
	Page  Page
}

// ErrValidation reports an ambiguous or incomplete request.
var ErrValidation = errors.New("invalid request")

// Validate checks that exactly one of Query or ID is present and that it
// matches Mode.
func (s RequestSpec) Validate() error {
	if s.Kind != KindLaw && s.Kind != KindAdmRul {
		return fmt.Errorf("%w: unknown kind %q", ErrValidation, s.Kind)
	}
	hasQuery := strings.TrimSpace(s.Query) != ""
	hasID := strings.TrimSpace(s.ID) != ""
	if hasQuery == hasID {
		return fmt.Errorf("%w: exactly one of query or id is required", ErrValidation)
	}
	switch s.Mode {
	case ModeSearch:
		if !hasQuery {
			return fmt.Errorf("%w: search requires a query", ErrValidation)
		}
	case ModeDetail:
		if !hasID {
			return fmt.Errorf("%w: detail requires an id", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrValidation, s.Mode)
	}
	if s.Page.Page < 0 || s.Page.Display < 0 {
		return fmt.Errorf("%w: page and display must not be negative", ErrValidation)
	}
	return nil
}

// Action names the request the way the HTTP surface does ("law.search").
func (s RequestSpec) Action() string {
	return string(s.Kind) + "." + string(s.Mode)
}

// ParseAction is the inverse of RequestSpec.Action. The returned spec has
// Kind and Mode set and no selector.
func ParseAction(action string) (RequestSpec, error) {
	kind, mode, ok := strings.Cut(action, ".")
	if !ok {
		return RequestSpec{}, fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}
	k, err := ParseKind(kind)
	if err != nil {
		return RequestSpec{}, fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}
	switch Mode(mode) {
	case ModeSearch, ModeDetail:
		return RequestSpec{Kind: k, Mode: Mode(mode)}, nil
	}
	return RequestSpec{}, fmt.Errorf("%w: unknown action %q", ErrValidation, action)
}
