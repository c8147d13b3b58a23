package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avatarctic/kvstore/internal/application/services"
	"github.com/avatarctic/kvstore/internal/core/domain/kv"
	"github.com/avatarctic/kvstore/test/mocks"
)

func entryWithTTL(key string, value string, ttl time.Duration) *kv.Entry {
	exp := time.Now().Add(ttl).UnixMilli()
	return &kv.Entry{Key: key, Value: json.RawMessage(value), ExpiresAt: &exp}
}

func TestCachingStore_HitSkipsInnerStore(t *testing.T) {
	ctx := context.Background()
	cache := mocks.NewMemoryCache()

	innerCalls := 0
	inner := &mocks.StoreMock{
		GetEntryFn: func(ctx context.Context, key string, opts *kv.GetOptions) (*kv.Entry, bool, error) {
			innerCalls++
			return &kv.Entry{Key: key, Value: json.RawMessage(`"fresh"`)}, true, nil
		},
	}

	store := services.NewCachingStore(inner, cache, time.Minute)

	raw, found, err := store.Get(ctx, "key", nil)
	require.NoError(t, err)
	require.True(t, found)
	require.JSONEq(t, `"fresh"`, string(raw))
	require.Equal(t, 1, innerCalls)

	raw, found, err = store.Get(ctx, "key", nil)
	require.NoError(t, err)
	require.True(t, found)
	require.JSONEq(t, `"fresh"`, string(raw))
	require.Equal(t, 1, innerCalls, "second read should be served from cache")
}

func TestCachingStore_MissNotCached(t *testing.T) {
	ctx := context.Background()
	cache := mocks.NewMemoryCache()
	inner := &mocks.StoreMock{
		GetEntryFn: func(ctx context.Context, key string, opts *kv.GetOptions) (*kv.Entry, bool, error) {
			return nil, false, nil
		},
	}

	store := services.NewCachingStore(inner, cache, time.Minute)

	_, found, err := store.Get(ctx, "absent", nil)
	require.NoError(t, err)
	require.False(t, found)
	require.Zero(t, cache.Len(), "absent results must not be cached")
}

func TestCachingStore_WriteInvalidates(t *testing.T) {
	ctx := context.Background()
	cache := mocks.NewMemoryCache()

	value := `"v1"`
	inner := &mocks.StoreMock{
		GetEntryFn: func(ctx context.Context, key string, opts *kv.GetOptions) (*kv.Entry, bool, error) {
			return &kv.Entry{Key: key, Value: json.RawMessage(value)}, true, nil
		},
	}

	store := services.NewCachingStore(inner, cache, time.Minute)

	raw, _, err := store.Get(ctx, "key", nil)
	require.NoError(t, err)
	require.JSONEq(t, `"v1"`, string(raw))

	value = `"v2"`
	require.NoError(t, store.Set(ctx, "key", "v2", nil))

	raw, _, err = store.Get(ctx, "key", nil)
	require.NoError(t, err)
	require.JSONEq(t, `"v2"`, string(raw), "write must invalidate the cached copy")
}

func TestCachingStore_DeleteInvalidates(t *testing.T) {
	ctx := context.Background()
	cache := mocks.NewMemoryCache()

	present := true
	inner := &mocks.StoreMock{
		GetEntryFn: func(ctx context.Context, key string, opts *kv.GetOptions) (*kv.Entry, bool, error) {
			if !present {
				return nil, false, nil
			}
			return &kv.Entry{Key: key, Value: json.RawMessage(`"v"`)}, true, nil
		},
	}

	store := services.NewCachingStore(inner, cache, time.Minute)

	_, found, err := store.Get(ctx, "key", nil)
	require.NoError(t, err)
	require.True(t, found)

	present = false
	require.NoError(t, store.Delete(ctx, "key"))

	_, found, err = store.Get(ctx, "key", nil)
	require.NoError(t, err)
	require.False(t, found)
}

func TestCachingStore_CacheTTLCappedByRemainingLifetime(t *testing.T) {
	ctx := context.Background()
	cache := mocks.NewMemoryCache()
	inner := &mocks.StoreMock{
		GetEntryFn: func(ctx context.Context, key string, opts *kv.GetOptions) (*kv.Entry, bool, error) {
			return entryWithTTL(key, `"v"`, 80*time.Millisecond), true, nil
		},
	}

	store := services.NewCachingStore(inner, cache, time.Minute)

	_, found, err := store.Get(ctx, "key", nil)
	require.NoError(t, err)
	require.True(t, found)

	ttl, ok := cache.StoredTTL("kv:entry:key")
	require.True(t, ok)
	require.LessOrEqual(t, ttl, 80*time.Millisecond)
	require.Greater(t, ttl, time.Duration(0))
}

func TestCachingStore_StaleEntryNotCached(t *testing.T) {
	ctx := context.Background()
	cache := mocks.NewMemoryCache()
	inner := &mocks.StoreMock{
		GetEntryFn: func(ctx context.Context, key string, opts *kv.GetOptions) (*kv.Entry, bool, error) {
			return entryWithTTL(key, `"old"`, -time.Second), true, nil
		},
	}

	store := services.NewCachingStore(inner, cache, time.Minute)

	raw, found, err := store.Get(ctx, "key", staleOpts(true))
	require.NoError(t, err)
	require.True(t, found)
	require.JSONEq(t, `"old"`, string(raw))
	require.Zero(t, cache.Len(), "stale entries must not be cached")
}

func TestCachingStore_ExpiredCachedEntryReEvaluated(t *testing.T) {
	ctx := context.Background()
	cache := mocks.NewMemoryCache()

	innerCalls := 0
	inner := &mocks.StoreMock{
		GetEntryFn: func(ctx context.Context, key string, opts *kv.GetOptions) (*kv.Entry, bool, error) {
			innerCalls++
			if opts != nil && opts.AllowStale != nil && *opts.AllowStale {
				return entryWithTTL(key, `"old"`, -time.Second), true, nil
			}
			return nil, false, nil
		},
	}

	store := services.NewCachingStore(inner, cache, time.Minute)

	// Seed the cache with a copy that has since expired.
	expired := entryWithTTL("key", `"old"`, -time.Second)
	payload, err := json.Marshal(expired)
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, "kv:entry:key", payload, time.Minute))

	_, found, err := store.Get(ctx, "key", nil)
	require.NoError(t, err)
	require.False(t, found, "expired cached copy must not satisfy a fresh-only read")
	require.Equal(t, 1, innerCalls, "read should have fallen through to the inner store")
}

func TestCachingStore_CacheErrorFallsThrough(t *testing.T) {
	ctx := context.Background()
	cache := &mocks.CacheMock{
		GetFn: func(ctx context.Context, key string) ([]byte, bool, error) {
			return nil, false, fmt.Errorf("redis down")
		},
		SetFn: func(ctx context.Context, key string, value []byte, ttl time.Duration) error {
			return fmt.Errorf("redis down")
		},
		DeleteFn: func(ctx context.Context, key string) error {
			return fmt.Errorf("redis down")
		},
	}
	inner := &mocks.StoreMock{
		GetEntryFn: func(ctx context.Context, key string, opts *kv.GetOptions) (*kv.Entry, bool, error) {
			return &kv.Entry{Key: key, Value: json.RawMessage(`"v"`)}, true, nil
		},
	}

	store := services.NewCachingStore(inner, cache, time.Minute)

	raw, found, err := store.Get(ctx, "key", nil)
	require.NoError(t, err, "cache failures must not fail reads")
	require.True(t, found)
	require.JSONEq(t, `"v"`, string(raw))

	require.NoError(t, store.Set(ctx, "key", "v", nil), "cache failures must not fail writes")
}

func TestCachingStore_DelegatesLifecycle(t *testing.T) {
	initCalled := false
	closeCalled := false
	clearCalled := false
	inner := &mocks.StoreMock{
		InitializeFn:   func(ctx context.Context) error { initCalled = true; return nil },
		CloseFn:        func() error { closeCalled = true; return nil },
		ClearExpiredFn: func(ctx context.Context) (int64, error) { clearCalled = true; return 3, nil },
	}

	store := services.NewCachingStore(inner, mocks.NewMemoryCache(), time.Minute)

	require.NoError(t, store.Initialize(context.Background()))
	require.True(t, initCalled)
	require.True(t, store.IsInitialized())

	removed, err := store.ClearExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, removed)
	require.True(t, clearCalled)

	require.NoError(t, store.Close())
	require.True(t, closeCalled)
}
