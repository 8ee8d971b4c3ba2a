// Package dispatch maps action names ("law.search", "law.detail", ...) to the
// client flows that serve them and writes their results.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/briangreenhill/openlaw/openlaw"
)

// ErrUnknownAction is returned for an action with no registered flow.
var ErrUnknownAction = errors.New("unknown action")

// Action serves one action name.
type Action interface {
	Name() string
	Run(ctx context.Context, spec openlaw.RequestSpec) (json.RawMessage, error)
}

// Registry manages the available actions.
type Registry struct {
	actions map[string]Action
}

func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// Register adds a, replacing any action of the same name.
func (r *Registry) Register(a Action) {
	r.actions[a.Name()] = a
}

func (r *Registry) Get(name string) (Action, bool) {
	a, ok := r.actions[name]
	return a, ok
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run validates spec and runs the action it names. Nothing is sent upstream
// for an invalid spec.
func (r *Registry) Run(ctx context.Context, spec openlaw.RequestSpec) (json.RawMessage, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	a, ok := r.Get(spec.Action())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, spec.Action())
	}
	return a.Run(ctx, spec)
}
