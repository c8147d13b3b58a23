package ports

import (
	"context"
	"encoding/json"

	"github.com/avatarctic/kvstore/internal/core/domain/kv"
)

// Store is the TTL key-value store contract. Implementations MUST be safe
// for concurrent use; expiry is evaluated per read, never in the background.
type Store interface {
	// Initialize creates the backing table and index. It succeeds at most
	// once per store handle; later calls fail with kv.ErrAlreadyInitialized.
	Initialize(ctx context.Context) error
	// IsInitialized reports whether Initialize has completed successfully.
	// It never touches the backend.
	IsInitialized() bool
	// Set serializes value as JSON and upserts it under key. A nil opts
	// means no expiry.
	Set(ctx context.Context, key string, value any, opts *kv.SetOptions) error
	// Get returns the stored JSON for key. found is false when the key is
	// absent, or when the entry is stale and stale reads are not allowed.
	Get(ctx context.Context, key string, opts *kv.GetOptions) (json.RawMessage, bool, error)
	// GetEntry is Get returning the full entry, expiry included.
	GetEntry(ctx context.Context, key string, opts *kv.GetOptions) (*kv.Entry, bool, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// ClearExpired removes every entry expired at the time of the call and
	// returns the number of entries removed.
	ClearExpired(ctx context.Context) (int64, error)
	// Close releases the backend. Operations after Close are undefined.
	Close() error
}
