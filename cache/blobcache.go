package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/briangreenhill/openlaw/internal/metrics"
)

// DefaultTTL is the lifetime of issued links.
const DefaultTTL = time.Hour

// DefaultFillTimeout bounds one shared fill.
const DefaultFillTimeout = 2 * time.Minute

const contentTypeJSON = "application/json"

// Producer computes the content of a missing blob.
type Producer func(ctx context.Context) ([]byte, error)

// BlobCache fills a Store on demand. An existing object is reused as is:
// entries never expire.
type BlobCache struct {
	store       Store
	ttl         time.Duration
	fillTimeout time.Duration
	log         zerolog.Logger
	group       singleflight.Group
	now         func() time.Time
}

type BlobCacheOption func(*BlobCache)

func WithTTL(d time.Duration) BlobCacheOption {
	return func(c *BlobCache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithFillTimeout bounds a fill independently of the callers waiting on it.
func WithFillTimeout(d time.Duration) BlobCacheOption {
	return func(c *BlobCache) {
		if d > 0 {
			c.fillTimeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) BlobCacheOption {
	return func(c *BlobCache) { c.log = l }
}

func NewBlobCache(store Store, opts ...BlobCacheOption) *BlobCache {
	c := &BlobCache{
		store: store,
		ttl:         DefaultTTL,
		fillTimeout: DefaultFillTimeout,
		log:         zerolog.Nop(),
		now:         time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Store returns the underlying store.
func (c *BlobCache) Store() Store { return c.store }

// GetOrPut returns a handle to the blob at path, calling produce and
// uploading its result when the blob does not exist yet. Concurrent calls for
// the same path share one fill. The fill is detached from ctx, so a caller
// that gives up only stops waiting; the others still get the result.
func (c *BlobCache) GetOrPut(ctx context.Context, path string, produce Producer) (Handle, error) {
	ch := c.group.DoChan(path, func() (any, error) {
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fillTimeout)
		defer cancel()
		return c.getOrPut(fillCtx, path, produce)
	})
	select {
	case <-ctx.Done():
		return Handle{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Handle{}, res.Err
		}
		return res.Val.(Handle), nil
	}
}

func (c *BlobCache) getOrPut(ctx context.Context, path string, produce Producer) (Handle, error) {
	exists, err := c.store.Exists(ctx, path)
	if err != nil {
		// Put is an upsert, so a failed check only costs a refetch.
		c.log.Warn().Err(err).Str("path", path).Msg("existence check failed, treating as miss")
		exists = false
	}

	if exists {
		metrics.BlobCacheLookups.WithLabelValues("hit").Inc()
		c.log.Debug().Str("path", path).Msg("blob cache hit")
		return c.handle(ctx, path, true)
	}

	metrics.BlobCacheLookups.WithLabelValues("miss").Inc()
	c.log.Debug().Str("path", path).Msg("blob cache miss")
	data, err := produce(ctx)
	if err != nil {
		return Handle{}, err
	}
	if err := c.store.Put(ctx, path, data, contentTypeJSON); err != nil {
		return Handle{}, fmt.Errorf("%w: %s: %w", ErrStoreWrite, path, err)
	}
	return c.handle(ctx, path, false)
}

func (c *BlobCache) handle(ctx context.Context, path string, hit bool) (Handle, error) {
	expires := c.now().Add(c.ttl)
	u, err := c.store.SignedURL(ctx, path, c.ttl)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %s: %w", ErrHandleIssuance, path, err)
	}
	return Handle{URL: u, Path: path, ExpiresAt: expires, Hit: hit}, nil
}
