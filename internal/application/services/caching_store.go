package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avatarctic/kvstore/internal/core/domain/kv"
	"github.com/avatarctic/kvstore/internal/core/ports"
	"golang.org/x/sync/singleflight"
)

// Utility helpers
func cacheSetSilently(c ports.Cache, ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, b, ttl)
}

func cacheGet[T any](c ports.Cache, ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// CachingStore decorates a Store with cache-aside reads. Only fresh entries
// are cached, and the cache TTL is capped by the entry's remaining lifetime,
// so a cached copy never outlives the staleness of the row it mirrors. Cache
// failures fall through to the inner store.
type CachingStore struct {
	inner ports.Store
	cache ports.Cache
	ttl   time.Duration
}

func NewCachingStore(inner ports.Store, cache ports.Cache, ttl time.Duration) ports.Store {
	return &CachingStore{inner: inner, cache: cache, ttl: ttl}
}

func (c *CachingStore) Initialize(ctx context.Context) error {
	return c.inner.Initialize(ctx)
}

func (c *CachingStore) IsInitialized() bool {
	return c.inner.IsInitialized()
}

func (c *CachingStore) Set(ctx context.Context, key string, value any, opts *kv.SetOptions) error {
	if err := c.inner.Set(ctx, key, value, opts); err != nil {
		return err
	}
	if c.cache != nil {
		_ = c.cache.Delete(ctx, entryCacheKey(key))
	}
	return nil
}

func (c *CachingStore) GetEntry(ctx context.Context, key string, opts *kv.GetOptions) (*kv.Entry, bool, error) {
	if v, ok := cacheGet[kv.Entry](c.cache, ctx, entryCacheKey(key)); ok {
		if !v.Stale(time.Now()) {
			return v, true, nil
		}
		// Expired while cached; fall through so the inner store applies
		// the stale-read policy.
	}

	res, err, _ := sf.Do(getFlightKey(key, opts), func() (any, error) {
		entry, found, err := c.inner.GetEntry(ctx, key, opts)
		if err != nil {
			return nil, err
		}
		if !found {
			return (*kv.Entry)(nil), nil
		}
		now := time.Now()
		if !entry.Stale(now) {
			ttl := c.ttl
			if rem, ok := entry.Remaining(now); ok && rem < ttl {
				ttl = rem
			}
			if ttl > 0 {
				cacheSetSilently(c.cache, ctx, entryCacheKey(key), entry, ttl)
			}
		}
		return entry, nil
	})
	if err != nil {
		return nil, false, err
	}
	entry, _ := res.(*kv.Entry)
	if entry == nil {
		return nil, false, nil
	}
	return entry, true, nil
}

func (c *CachingStore) Get(ctx context.Context, key string, opts *kv.GetOptions) (json.RawMessage, bool, error) {
	entry, found, err := c.GetEntry(ctx, key, opts)
	if err != nil || !found {
		return nil, false, err
	}
	return entry.Value, true, nil
}

func (c *CachingStore) Delete(ctx context.Context, key string) error {
	if err := c.inner.Delete(ctx, key); err != nil {
		return err
	}
	if c.cache != nil {
		_ = c.cache.Delete(ctx, entryCacheKey(key))
	}
	return nil
}

func (c *CachingStore) ClearExpired(ctx context.Context) (int64, error) {
	// Cached copies need no invalidation here: their TTL never exceeds the
	// entry's remaining lifetime.
	return c.inner.ClearExpired(ctx)
}

func (c *CachingStore) Close() error {
	return c.inner.Close()
}

func entryCacheKey(key string) string {
	return "kv:entry:" + key
}

// getFlightKey partitions in-flight loads by the caller's stale policy so
// coalesced callers always receive an answer consistent with their options.
func getFlightKey(key string, opts *kv.GetOptions) string {
	variant := "default"
	if opts != nil && opts.AllowStale != nil {
		if *opts.AllowStale {
			variant = "stale"
		} else {
			variant = "fresh"
		}
	}
	return "kv:get:" + variant + ":" + key
}

// Compile-time interface check
var _ ports.Store = (*CachingStore)(nil)

// Shared singleflight group for read coalescing
var sf singleflight.Group
