package dispatch

import (
	"context"
	"fmt"

	"github.com/briangreenhill/openlaw/cache"
	"github.com/briangreenhill/openlaw/openlaw"
)

// DetailCache serves detail lookups through a blob cache: the result is
// stored once and callers receive a signed link to it.
type DetailCache struct {
	reg   *Registry
	cache *cache.BlobCache
}

func NewDetailCache(reg *Registry, bc *cache.BlobCache) *DetailCache {
	return &DetailCache{reg: reg, cache: bc}
}

// Namespace returns the object prefix for detail results of kind.
func Namespace(kind openlaw.Kind) string {
	if kind == openlaw.KindAdmRul {
		return cache.NamespaceAdmRulDetail
	}
	return cache.NamespaceLawDetail
}

// Handle returns a link to the cached detail result for spec, fetching and
// storing it first on a miss.
func (d *DetailCache) Handle(ctx context.Context, spec openlaw.RequestSpec) (cache.Handle, error) {
	if err := spec.Validate(); err != nil {
		return cache.Handle{}, err
	}
	if spec.Mode != openlaw.ModeDetail {
		return cache.Handle{}, fmt.Errorf("%w: %s is not a detail action", openlaw.ErrValidation, spec.Action())
	}
	key, err := cache.Key(spec.Action(), map[string]any{"idOrMst": spec.ID})
	if err != nil {
		return cache.Handle{}, err
	}
	path := cache.ObjectPath(Namespace(spec.Kind), key)
	return d.cache.GetOrPut(ctx, path, func(ctx context.Context) ([]byte, error) {
		return d.reg.Run(ctx, spec)
	})
}
