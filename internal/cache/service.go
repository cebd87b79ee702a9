// Package cache provides the fingerprint-keyed, TTL-expiring query result cache.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
)

// DefaultTTL applies when a caller enables caching without a TTL.
const DefaultTTL = time.Hour

// Service reads and writes cached row sets through a Store.
type Service struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a cache service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached rows for key. Expired entries are misses even
// when they have not been swept yet.
func (s *Service) Get(ctx context.Context, key string) ([]core.Row, bool, error) {
	e, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, false, &core.CacheError{Op: "get", Key: key, Err: err}
	}
	if e == nil {
		return nil, false, nil
	}
	if !e.ExpiresAt.After(s.now()) {
		s.logger.Debug("cache entry expired", slog.String("key", key), slog.Time("expires_at", e.ExpiresAt))
		return nil, false, nil
	}

	rows, err := decodeRows(e.Data)
	if err != nil {
		return nil, false, &core.CacheError{Op: "decode", Key: key, Err: err}
	}
	if rows == nil {
		rows = []core.Row{}
	}
	return rows, true, nil
}

// Set stores rows under key until now+ttl. A non-positive ttl means DefaultTTL.
func (s *Service) Set(ctx context.Context, key string, rows []core.Row, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if rows == nil {
		rows = []core.Row{}
	}
	data, err := encodeRows(rows)
	if err != nil {
		return &core.CacheError{Op: "encode", Key: key, Err: err}
	}
	e := Entry{Key: key, Data: data, ExpiresAt: s.now().Add(ttl).UTC()}
	if err := s.store.Put(ctx, e); err != nil {
		return &core.CacheError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// Delete removes key.
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil {
		return &core.CacheError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// ClearExpired removes every expired entry and returns how many were removed.
func (s *Service) ClearExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, &core.CacheError{Op: "clear_expired", Err: err}
	}
	return n, nil
}
