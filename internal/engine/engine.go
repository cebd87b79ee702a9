// Package engine is the query orchestrator. It resolves catalog metadata,
// picks the physical data source, builds dialect SQL, runs it through a
// per-request adapter and wraps the round trip in the result cache.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/cache"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/metadata"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/secret"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/tier"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/adapter"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"

	// Dialects used to plan queries before an adapter is built.
	_ "github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/adapters/duckdb/dialect"
	_ "github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/adapters/postgres/dialect"
)

// DefaultTimeout bounds connect plus query for one execution.
const DefaultTimeout = 30 * time.Second

// AdapterFactory builds an unconnected adapter for a dialect.
type AdapterFactory func(name core.DialectName, logger *slog.Logger) (adapter.Adapter, error)

// Config holds engine dependencies.
type Config struct {
	// Metadata resolves connections, data sources and data sets. Required.
	Metadata metadata.Provider
	// Cache stores results for requests with UseCache set. Nil disables caching.
	Cache *cache.Service
	// Secrets opens connection passwords. Nil resolves only empty and env: passwords.
	Secrets secret.Decrypter
	// Adapters builds drivers; defaults to the adapter registry.
	Adapters AdapterFactory
	// Timeout bounds connect plus query; zero means DefaultTimeout.
	Timeout time.Duration
	// MaxRows is the tier resolver's row budget; zero means tier.MaxRows.
	MaxRows int64
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine executes time-series queries against catalog data sources.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	meta     metadata.Provider
	cache    *cache.Service
	secrets  secret.Decrypter
	adapters AdapterFactory
	timeout  time.Duration
	maxRows  int64
	logger   *slog.Logger
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Metadata == nil {
		return nil, errors.New("engine: metadata provider is required")
	}
	e := &Engine{
		meta:     cfg.Metadata,
		cache:    cfg.Cache,
		secrets:  cfg.Secrets,
		adapters: cfg.Adapters,
		timeout:  cfg.Timeout,
		maxRows:  cfg.MaxRows,
		logger:   cfg.Logger,
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.secrets == nil {
		e.secrets = &secret.Box{}
	}
	if e.adapters == nil {
		e.adapters = adapter.NewAdapter
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.maxRows <= 0 {
		e.maxRows = tier.MaxRows
	}
	return e, nil
}

// Metadata returns the provider the engine resolves records through.
func (e *Engine) Metadata() metadata.Provider {
	return e.meta
}

// ResolveDataSource picks the data source a data set query should read,
// applying the tier budget to pre-aggregated data sets.
func (e *Engine) ResolveDataSource(ctx context.Context, qc *core.QueryContext) (*core.DataSource, error) {
	if err := qc.Validate(); err != nil {
		return nil, err
	}
	ds, err := e.meta.GetDataSet(ctx, qc.DataSetID)
	if err != nil {
		return nil, err
	}
	id, err := tier.ResolveWithBudget(ds, qc.DateRange, qc.YColumn, e.maxRows)
	if err != nil {
		return nil, err
	}
	return e.meta.GetDataSource(ctx, id)
}

// connection loads an active connection.
func (e *Engine) connection(ctx context.Context, id string) (*core.Connection, error) {
	conn, err := e.meta.GetConnection(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conn.Active {
		return nil, &core.ValidationError{Field: "connectionId", Reason: fmt.Sprintf("connection %q is inactive", id)}
	}
	return conn, nil
}

// adapterConfig decrypts the password and maps a connection onto driver settings.
func (e *Engine) adapterConfig(conn *core.Connection) (adapter.Config, error) {
	password, err := e.secrets.Decrypt(conn.EncryptedPassword)
	if err != nil {
		return adapter.Config{}, &core.ConnectionError{Dialect: conn.Dialect, Err: fmt.Errorf("connection %q: %w", conn.ID, err)}
	}
	cfg := adapter.Config{
		Type:     conn.Dialect,
		Host:     conn.Host,
		Port:     conn.Port,
		Database: conn.Database,
		Username: conn.Username,
		Password: password,
		Options:  conn.Options,
		Params:   conn.Params,
	}
	if conn.Dialect == core.DialectDuckDB {
		cfg.Path = conn.Database
	}
	return cfg, nil
}

// open builds and connects the adapter for conn. The returned adapter is
// always non-nil when err is nil; on error it has already been closed.
func (e *Engine) open(ctx context.Context, conn *core.Connection, logger *slog.Logger) (adapter.Adapter, error) {
	cfg, err := e.adapterConfig(conn)
	if err != nil {
		return nil, err
	}
	adp, err := e.adapters(conn.Dialect, logger)
	if err != nil {
		return nil, err
	}
	if err := adp.Connect(ctx, cfg); err != nil {
		if cerr := adp.Close(); cerr != nil {
			logger.Warn("failed to close adapter", slog.Any("error", cerr))
		}
		return nil, err
	}
	return adp, nil
}

// Inspect returns a connected adapter for a catalog connection, for schema
// discovery and health checks. The caller must Close it.
func (e *Engine) Inspect(ctx context.Context, connectionID string) (adapter.Adapter, error) {
	conn, err := e.connection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	return e.open(ctx, conn, e.logger.With(slog.String("connection_id", conn.ID)))
}
