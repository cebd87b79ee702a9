package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/cache"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/querybuilder"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/dialect"
)

// Request is one query against a specific data source.
type Request struct {
	Context      core.QueryContext
	ConnectionID string
	DataSourceID string
	UseCache     bool
	// CacheTTL applies when UseCache is set; zero means cache.DefaultTTL.
	CacheTTL time.Duration
}

// Plan is a request resolved against the catalog, ready to run.
type Plan struct {
	Connection *core.Connection
	DataSource *core.DataSource
	Table      string
	Query      *querybuilder.Query
	CacheKey   string
}

// Result is the outcome of Execute.
type Result struct {
	Rows      []core.Row
	Cached    bool
	RequestID string
	Plan      *Plan
	Elapsed   time.Duration
}

// Plan validates a request, loads its metadata and builds its SQL without
// touching a backend.
func (e *Engine) Plan(ctx context.Context, req Request) (*Plan, error) {
	qc := &req.Context
	if err := qc.Validate(); err != nil {
		return nil, err
	}

	src, err := e.meta.GetDataSource(ctx, req.DataSourceID)
	if err != nil {
		return nil, err
	}
	if src.ConnectionID != req.ConnectionID {
		// Not owned by this connection.
		return nil, &core.NotFoundError{Kind: "data source", ID: req.DataSourceID}
	}
	conn, err := e.connection(ctx, req.ConnectionID)
	if err != nil {
		return nil, err
	}

	d, ok := dialect.Get(string(conn.Dialect))
	if !ok {
		return nil, &core.ValidationError{Field: "dialect", Reason: "unsupported dialect " + string(conn.Dialect)}
	}

	table := src.QualifiedName()
	q, err := querybuilder.Build(qc, d, table, src.Columns)
	if err != nil {
		return nil, err
	}

	key, err := cache.GenerateKey(map[string]any{
		"connectionId": conn.ID,
		"dataSourceId": src.ID,
		"context":      qc,
	})
	if err != nil {
		return nil, err
	}

	return &Plan{Connection: conn, DataSource: src, Table: table, Query: q, CacheKey: key}, nil
}

// Execute runs one request: plan, cache lookup, adapter round trip and cache
// write-through. Cache failures are logged and never returned; driver errors
// are returned unchanged.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	requestID := uuid.NewString()
	logger := e.logger.With(
		slog.String("request_id", requestID),
		slog.String("connection_id", req.ConnectionID),
		slog.String("data_source_id", req.DataSourceID),
	)

	plan, err := e.Plan(ctx, req)
	if err != nil {
		logger.Debug("request rejected", slog.Any("error", err))
		return nil, err
	}

	useCache := req.UseCache && e.cache != nil
	if useCache {
		rows, hit, err := e.cache.Get(ctx, plan.CacheKey)
		switch {
		case err != nil:
			logger.Warn("cache read failed", slog.Any("error", err))
		case hit:
			logger.Debug("cache hit", slog.String("key", plan.CacheKey), slog.Int("rows", len(rows)))
			return &Result{Rows: rows, Cached: true, RequestID: requestID, Plan: plan, Elapsed: time.Since(start)}, nil
		}
	}

	rows, err := e.run(ctx, plan, logger)
	if err != nil {
		return nil, err
	}

	if useCache {
		if err := e.cache.Set(ctx, plan.CacheKey, rows, req.CacheTTL); err != nil {
			logger.Warn("cache write failed", slog.Any("error", err))
		}
	}

	elapsed := time.Since(start)
	logger.Info("query executed",
		slog.String("dialect", string(plan.Connection.Dialect)),
		slog.String("table", plan.Table),
		slog.Int("rows", len(rows)),
		slog.Duration("elapsed", elapsed))
	return &Result{Rows: rows, RequestID: requestID, Plan: plan, Elapsed: elapsed}, nil
}

// run opens an adapter, executes the planned query and closes the adapter
// on every path.
func (e *Engine) run(ctx context.Context, plan *Plan, logger *slog.Logger) (rows []core.Row, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	adp, err := e.open(ctx, plan.Connection, logger)
	if err != nil {
		logger.Warn("connect failed", slog.Any("error", err))
		return nil, err
	}
	defer func() {
		if cerr := adp.Close(); cerr != nil {
			logger.Warn("failed to close adapter", slog.Any("error", cerr))
		}
	}()

	logger.Debug("executing query", slog.String("sql", plan.Query.SQL), slog.Int("args", len(plan.Query.Args)))
	rows, err = adp.Query(ctx, plan.Query.SQL, plan.Query.Args...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Warn("query timed out", slog.Duration("timeout", e.timeout))
		}
		return nil, err
	}
	return rows, nil
}

// DataSetRequest is a query against a logical data set. The physical data
// source and its connection are resolved by the engine.
type DataSetRequest struct {
	Context  core.QueryContext
	UseCache bool
	CacheTTL time.Duration
}

// ExecuteDataSet resolves the data source for a data set query, using the
// tier budget for pre-aggregated data sets, and executes it.
func (e *Engine) ExecuteDataSet(ctx context.Context, req DataSetRequest) (*Result, error) {
	src, err := e.ResolveDataSource(ctx, &req.Context)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, Request{
		Context:      req.Context,
		ConnectionID: src.ConnectionID,
		DataSourceID: src.ID,
		UseCache:     req.UseCache,
		CacheTTL:     req.CacheTTL,
	})
}
