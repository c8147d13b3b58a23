// Package kv defines the entry model and operation options for the
// TTL key-value store.
package kv

import (
	"encoding/json"
	"time"
)

// Entry is one stored key-value pair. Value holds the serialized JSON text
// exactly as it was written. ExpiresAt is milliseconds since the Unix epoch;
// nil means the entry never expires.
type Entry struct {
	Key       string          `json:"key" db:"key"`
	Value     json.RawMessage `json:"value" db:"value"`
	ExpiresAt *int64          `json:"expires_at,omitempty" db:"expires_at"`
}

// Stale reports whether the entry is expired at the given instant.
// Entries without an expiry are never stale.
func (e *Entry) Stale(now time.Time) bool {
	return e.ExpiresAt != nil && *e.ExpiresAt <= now.UnixMilli()
}

// Remaining returns the time left before the entry expires. ok is false for
// entries without an expiry; the duration is zero or negative once expired.
func (e *Entry) Remaining(now time.Time) (time.Duration, bool) {
	if e.ExpiresAt == nil {
		return 0, false
	}
	return time.Duration(*e.ExpiresAt-now.UnixMilli()) * time.Millisecond, true
}

// SetOptions carries the optional arguments to Set. A nil TTL stores the
// entry without an expiry; a zero TTL marks it expired as of the write
// itself; a negative TTL is rejected before anything is written.
type SetOptions struct {
	TTL *time.Duration
}

// GetOptions carries the optional arguments to Get. AllowStale, when set,
// overrides the store-wide default for this read only.
type GetOptions struct {
	AllowStale *bool
}
