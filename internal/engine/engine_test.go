package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/cache"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/metadata"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/secret"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/testutil"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/adapter"
	pgdialect "github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/adapters/postgres/dialect"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter records calls and returns canned results.
type fakeAdapter struct {
	mu         sync.Mutex
	connectErr error
	queryErr   error
	rows       []core.Row
	block      bool

	cfg      adapter.Config
	connects int
	closes   int
	lastSQL  string
	lastArgs []any
}

func (f *fakeAdapter) Connect(_ context.Context, cfg adapter.Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	f.cfg = cfg
	return f.connectErr
}

func (f *fakeAdapter) TestConnection(context.Context) bool { return f.connectErr == nil }

func (f *fakeAdapter) ListSchemas(context.Context) ([]string, error) { return []string{"public"}, nil }

func (f *fakeAdapter) ListTablesBySchema(context.Context, string) ([]string, error) {
	return []string{"metrics"}, nil
}

func (f *fakeAdapter) GetTableSchema(context.Context, string, string) ([]core.ColumnSchema, error) {
	return nil, nil
}

func (f *fakeAdapter) Query(ctx context.Context, sql string, args ...any) ([]core.Row, error) {
	f.mu.Lock()
	f.lastSQL = sql
	f.lastArgs = args
	block := f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, &core.QueryError{SQL: sql, Err: ctx.Err()}
	}
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakeAdapter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeAdapter) Dialect() *dialect.Dialect { return pgdialect.Postgres }

// factory hands out one fake adapter and counts constructions.
type factory struct {
	adp   *fakeAdapter
	built int
}

func (f *factory) New(core.DialectName, *slog.Logger) (adapter.Adapter, error) {
	f.built++
	return f.adp, nil
}

func ts(s string) core.Timestamp {
	t, err := core.ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return t
}

func testContext() core.QueryContext {
	return core.QueryContext{
		DataSetID: "cpu",
		XColumn:   "ts",
		YColumn:   "usage",
		DateRange: core.DateRange{From: ts("2024-01-01T00:00:00Z"), To: ts("2024-01-11T00:00:00Z")},
	}
}

func testCatalog() metadata.Catalog {
	cols := []core.Column{
		{Name: "ts", DataType: "timestamptz", Active: true},
		{Name: "usage", DataType: "float8", Active: true},
		{Name: "host", DataType: "text", Active: false},
	}
	return metadata.Catalog{
		Connections: []core.Connection{
			{ID: "pg", Dialect: core.DialectPostgres, Host: "db", Port: 5432, Database: "metrics", Username: "reader", Active: true},
			{ID: "pg-other", Dialect: core.DialectPostgres, Active: true},
			{ID: "pg-off", Dialect: core.DialectPostgres, Active: false},
		},
		DataSources: []core.DataSource{
			{ID: "raw", ConnectionID: "pg", TableName: "cpu", SchemaName: "public", Columns: cols},
			{ID: "hourly", ConnectionID: "pg", TableName: "cpu_1h", SchemaName: "agg", Columns: cols},
			{ID: "off", ConnectionID: "pg-off", TableName: "cpu", Columns: cols},
		},
		DataSets: []core.DataSet{{
			ID: "cpu", Type: core.DataSetPreaggregated,
			DataSourceIDs: []string{"raw", "hourly"},
			Tiers:         []core.TierConfig{{DataSourceID: "hourly", Interval: 1, TimeUnit: core.UnitHours}},
		}},
	}
}

func newTestEngine(t *testing.T, f *factory, svc *cache.Service, opts ...func(*Config)) *Engine {
	t.Helper()
	cfg := Config{
		Metadata: metadata.MustStatic(testCatalog()),
		Cache:    svc,
		Adapters: f.New,
		Logger:   testutil.NewTestLogger(t),
	}
	for _, o := range opts {
		o(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func TestNew_RequiresMetadata(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestExecute_RejectsBeforeIO(t *testing.T) {
	bad := testContext()
	bad.YColumn = ""

	tests := []struct {
		name    string
		req     Request
		wantErr any
	}{
		{"invalid context", Request{Context: bad, ConnectionID: "pg", DataSourceID: "raw"}, &core.ValidationError{}},
		{"missing data source", Request{Context: testContext(), ConnectionID: "pg", DataSourceID: "nope"}, &core.NotFoundError{}},
		{"missing connection", Request{Context: testContext(), ConnectionID: "nope", DataSourceID: "raw"}, &core.NotFoundError{}},
		{"source of another connection", Request{Context: testContext(), ConnectionID: "pg-other", DataSourceID: "raw"}, &core.NotFoundError{}},
		{"inactive connection", Request{Context: testContext(), ConnectionID: "pg-off", DataSourceID: "off"}, &core.ValidationError{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &factory{adp: &fakeAdapter{}}
			e := newTestEngine(t, f, nil)

			_, err := e.Execute(context.Background(), tt.req)
			require.Error(t, err)
			switch tt.wantErr.(type) {
			case *core.ValidationError:
				var ve *core.ValidationError
				assert.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
			case *core.NotFoundError:
				var nf *core.NotFoundError
				assert.True(t, errors.As(err, &nf), "want NotFoundError, got %v", err)
			}
			assert.Zero(t, f.built, "no adapter should be constructed")
		})
	}
}

func TestExecute_BuildsAndRuns(t *testing.T) {
	rows := []core.Row{{"ts": "2024-01-01T00:00:00Z", "usage": 1.5}}
	f := &factory{adp: &fakeAdapter{rows: rows}}
	e := newTestEngine(t, f, nil)

	res, err := e.Execute(context.Background(), Request{Context: testContext(), ConnectionID: "pg", DataSourceID: "raw"})
	require.NoError(t, err)

	assert.Equal(t, rows, res.Rows)
	assert.False(t, res.Cached)
	assert.NotEmpty(t, res.RequestID)
	assert.Equal(t, "public.cpu", res.Plan.Table)
	assert.Contains(t, f.adp.lastSQL, `FROM "public"."cpu"`)
	assert.Contains(t, f.adp.lastSQL, `BETWEEN $1 AND $2`)
	assert.Equal(t, []any{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
	}, f.adp.lastArgs)

	assert.Equal(t, core.DialectPostgres, f.adp.cfg.Type)
	assert.Equal(t, "db", f.adp.cfg.Host)
	assert.Equal(t, 1, f.adp.connects)
	assert.Equal(t, 1, f.adp.closes)
}

func TestExecute_AllowsInactiveColumnByName(t *testing.T) {
	f := &factory{adp: &fakeAdapter{}}
	e := newTestEngine(t, f, nil)

	qc := testContext()
	qc.Filters = []core.Filter{{Column: "host", Op: core.OpEq, Value: "web-1"}}
	_, err := e.Execute(context.Background(), Request{Context: qc, ConnectionID: "pg", DataSourceID: "raw"})
	require.NoError(t, err)
	assert.Contains(t, f.adp.lastSQL, `"host" = $3`)

	qc.Filters = []core.Filter{{Column: "unknown", Op: core.OpEq, Value: "x"}}
	_, err = e.Execute(context.Background(), Request{Context: qc, ConnectionID: "pg", DataSourceID: "raw"})
	var ve *core.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestExecute_ClosesOnQueryError(t *testing.T) {
	qerr := &core.QueryError{SQL: "SELECT", Err: errors.New("relation does not exist")}
	f := &factory{adp: &fakeAdapter{queryErr: qerr}}
	e := newTestEngine(t, f, nil)

	_, err := e.Execute(context.Background(), Request{Context: testContext(), ConnectionID: "pg", DataSourceID: "raw"})
	require.Error(t, err)
	var got *core.QueryError
	require.True(t, errors.As(err, &got))
	assert.Same(t, qerr, got)
	assert.Equal(t, 1, f.adp.closes, "adapter must be closed exactly once")
}

func TestExecute_ClosesOnConnectError(t *testing.T) {
	cerr := &core.ConnectionError{Dialect: core.DialectPostgres, Err: errors.New("refused")}
	f := &factory{adp: &fakeAdapter{connectErr: cerr}}
	e := newTestEngine(t, f, nil)

	_, err := e.Execute(context.Background(), Request{Context: testContext(), ConnectionID: "pg", DataSourceID: "raw"})
	var got *core.ConnectionError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 1, f.adp.closes)
}

func TestExecute_Timeout(t *testing.T) {
	f := &factory{adp: &fakeAdapter{block: true}}
	e := newTestEngine(t, f, nil, func(c *Config) { c.Timeout = 20 * time.Millisecond })

	_, err := e.Execute(context.Background(), Request{Context: testContext(), ConnectionID: "pg", DataSourceID: "raw"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, f.adp.closes)
}

func TestExecute_Cache(t *testing.T) {
	rows := []core.Row{{"ts": "2024-01-01T00:00:00Z", "usage": 2.0}}
	f := &factory{adp: &fakeAdapter{rows: rows}}
	svc := cache.NewService(cache.NewMemoryStore())
	e := newTestEngine(t, f, svc)
	ctx := context.Background()
	req := Request{Context: testContext(), ConnectionID: "pg", DataSourceID: "raw", UseCache: true, CacheTTL: time.Minute}

	first, err := e.Execute(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := e.Execute(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, rows, second.Rows)
	assert.Equal(t, 1, f.built, "cache hit must not construct an adapter")
	assert.Equal(t, first.Plan.CacheKey, second.Plan.CacheKey)

	// Without UseCache the cache is bypassed.
	req.UseCache = false
	third, err := e.Execute(ctx, req)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 2, f.built)
}

func TestExecute_CacheKeyVariesWithContext(t *testing.T) {
	f := &factory{adp: &fakeAdapter{}}
	e := newTestEngine(t, f, nil)
	ctx := context.Background()

	a, err := e.Plan(ctx, Request{Context: testContext(), ConnectionID: "pg", DataSourceID: "raw"})
	require.NoError(t, err)

	qc := testContext()
	qc.Aggregation = &core.Aggregation{Kind: core.AggAvg, Resolution: core.UnitHours}
	b, err := e.Plan(ctx, Request{Context: qc, ConnectionID: "pg", DataSourceID: "raw"})
	require.NoError(t, err)
	assert.NotEqual(t, a.CacheKey, b.CacheKey)
	assert.Contains(t, b.Query.SQL, "AVG(")

	c, err := e.Plan(ctx, Request{Context: testContext(), ConnectionID: "pg", DataSourceID: "hourly"})
	require.NoError(t, err)
	assert.NotEqual(t, a.CacheKey, c.CacheKey)
}

// brokenStore fails every operation.
type brokenStore struct{}

var errBroken = errors.New("cache offline")

func (brokenStore) Get(context.Context, string) (*cache.Entry, error)        { return nil, errBroken }
func (brokenStore) Put(context.Context, cache.Entry) error                  { return errBroken }
func (brokenStore) Delete(context.Context, string) error                    { return errBroken }
func (brokenStore) DeleteExpired(context.Context, time.Time) (int64, error) { return 0, errBroken }

func TestExecute_CacheErrorsAreNotFatal(t *testing.T) {
	rows := []core.Row{{"ts": "2024-01-01T00:00:00Z", "usage": 3.0}}
	f := &factory{adp: &fakeAdapter{rows: rows}}
	e := newTestEngine(t, f, cache.NewService(brokenStore{}))

	res, err := e.Execute(context.Background(), Request{Context: testContext(), ConnectionID: "pg", DataSourceID: "raw", UseCache: true})
	require.NoError(t, err)
	assert.Equal(t, rows, res.Rows)
	assert.Equal(t, 1, f.adp.closes)
}

func TestExecute_DecryptsPassword(t *testing.T) {
	key, err := secret.GenerateKey()
	require.NoError(t, err)
	box, err := secret.NewBox(key)
	require.NoError(t, err)
	sealed, err := box.Encrypt("s3cret")
	require.NoError(t, err)

	catalog := testCatalog()
	catalog.Connections[0].EncryptedPassword = sealed

	f := &factory{adp: &fakeAdapter{}}
	e, err := New(Config{Metadata: metadata.MustStatic(catalog), Secrets: box, Adapters: f.New})
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), Request{Context: testContext(), ConnectionID: "pg", DataSourceID: "raw"})
	require.NoError(t, err)
	assert.Equal(t, "s3cret", f.adp.cfg.Password)

	// Without the key the request fails before an adapter is built.
	e, err = New(Config{Metadata: metadata.MustStatic(catalog), Adapters: f.New})
	require.NoError(t, err)
	f.built = 0
	_, err = e.Execute(context.Background(), Request{Context: testContext(), ConnectionID: "pg", DataSourceID: "raw"})
	assert.True(t, errors.Is(err, secret.ErrNoKey))
	var cerr *core.ConnectionError
	require.True(t, errors.As(err, &cerr), "want ConnectionError, got %v", err)
	assert.Equal(t, core.DialectPostgres, cerr.Dialect)
	assert.Zero(t, f.built)

	// A tampered password is a ConnectionError too.
	catalog.Connections[0].EncryptedPassword = sealed[:len(sealed)-4] + "AAAA"
	e, err = New(Config{Metadata: metadata.MustStatic(catalog), Adapters: f.New, Secrets: box})
	require.NoError(t, err)
	_, err = e.Execute(context.Background(), Request{Context: testContext(), ConnectionID: "pg", DataSourceID: "raw"})
	require.True(t, errors.As(err, &cerr), "want ConnectionError, got %v", err)
	assert.Zero(t, f.built)
}

func TestExecuteDataSet_PicksTier(t *testing.T) {
	f := &factory{adp: &fakeAdapter{}}
	e := newTestEngine(t, f, nil)
	ctx := context.Background()

	// Ten days at one hour is 240 buckets, within budget.
	res, err := e.ExecuteDataSet(ctx, DataSetRequest{Context: testContext()})
	require.NoError(t, err)
	assert.Equal(t, "hourly", res.Plan.DataSource.ID)
	assert.True(t, strings.Contains(f.adp.lastSQL, `"agg"."cpu_1h"`))

	src, err := e.ResolveDataSource(ctx, &core.QueryContext{
		DataSetID: "cpu", XColumn: "ts", YColumn: "usage",
		DateRange: core.DateRange{From: ts("2024-01-01T00:00:00Z"), To: ts("2024-01-01T00:00:00Z")},
	})
	require.NoError(t, err)
	assert.Equal(t, "raw", src.ID, "zero range falls back to the first source")

	qc := testContext()
	qc.DataSetID = "missing"
	_, err = e.ExecuteDataSet(ctx, DataSetRequest{Context: qc})
	var nf *core.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestInspect(t *testing.T) {
	f := &factory{adp: &fakeAdapter{}}
	e := newTestEngine(t, f, nil)

	adp, err := e.Inspect(context.Background(), "pg")
	require.NoError(t, err)
	schemas, err := adp.ListSchemas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"public"}, schemas)
	require.NoError(t, adp.Close())

	_, err = e.Inspect(context.Background(), "pg-off")
	var ve *core.ValidationError
	assert.True(t, errors.As(err, &ve))
}
