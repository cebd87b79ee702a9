package cache

import (
	"context"
	"time"
)

// Entry is one persisted cache record. Data holds JSON-encoded rows.
type Entry struct {
	Key       string
	Data      []byte
	ExpiresAt time.Time
}

// Store persists cache entries. Implementations do not check expiry;
// the Service does.
type Store interface {
	// Get returns the entry for key, or nil when there is none.
	Get(ctx context.Context, key string) (*Entry, error)
	// Put inserts or replaces an entry.
	Put(ctx context.Context, e Entry) error
	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// DeleteExpired removes entries with ExpiresAt at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
