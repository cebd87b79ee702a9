// Package mongostore serves the metadata catalog from MongoDB.
//
// Records live in three collections keyed by _id: connections, data_sources
// and data_sets.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/metadata"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names.
const (
	ConnectionsCollection = "connections"
	DataSourcesCollection = "data_sources"
	DataSetsCollection    = "data_sets"
)

// DefaultDatabase is used when the URI and config name none.
const DefaultDatabase = "dashquery"

// Store is a metadata.Provider backed by a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// Connect opens a client for uri and pings it.
func Connect(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetAppName("dashquery"))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := New(client.Database(database), logger)
	s.client = client
	return s, nil
}

// New wraps an existing database handle. Close is a no-op for such stores.
func New(db *mongo.Database, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, logger: logger}
}

// Close disconnects a client opened by Connect.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func findByID[T any](ctx context.Context, coll *mongo.Collection, kind, id string) (*T, error) {
	var doc T
	err := coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &core.NotFoundError{Kind: kind, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("find %s %q: %w", kind, id, err)
	}
	return &doc, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection) ([]T, error) {
	cur, err := coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	var docs []T
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return docs, nil
}

// GetConnection implements metadata.Provider.
func (s *Store) GetConnection(ctx context.Context, id string) (*core.Connection, error) {
	doc, err := findByID[connectionDoc](ctx, s.db.Collection(ConnectionsCollection), "connection", id)
	if err != nil {
		return nil, err
	}
	c := doc.toCore()
	return &c, nil
}

// GetDataSource implements metadata.Provider.
func (s *Store) GetDataSource(ctx context.Context, id string) (*core.DataSource, error) {
	doc, err := findByID[dataSourceDoc](ctx, s.db.Collection(DataSourcesCollection), "data source", id)
	if err != nil {
		return nil, err
	}
	src := doc.toCore()
	return &src, nil
}

// GetDataSet implements metadata.Provider.
func (s *Store) GetDataSet(ctx context.Context, id string) (*core.DataSet, error) {
	doc, err := findByID[dataSetDoc](ctx, s.db.Collection(DataSetsCollection), "data set", id)
	if err != nil {
		return nil, err
	}
	ds := doc.toCore()
	return &ds, nil
}

// ListConnections implements metadata.Lister.
func (s *Store) ListConnections(ctx context.Context) ([]core.Connection, error) {
	docs, err := findAll[connectionDoc](ctx, s.db.Collection(ConnectionsCollection))
	if err != nil {
		return nil, err
	}
	out := make([]core.Connection, len(docs))
	for i, d := range docs {
		out[i] = d.toCore()
	}
	return out, nil
}

// ListDataSets implements metadata.Lister.
func (s *Store) ListDataSets(ctx context.Context) ([]core.DataSet, error) {
	docs, err := findAll[dataSetDoc](ctx, s.db.Collection(DataSetsCollection))
	if err != nil {
		return nil, err
	}
	out := make([]core.DataSet, len(docs))
	for i, d := range docs {
		out[i] = d.toCore()
	}
	return out, nil
}

// Import upserts every record of a catalog, for seeding a database from a
// catalog file. The catalog is validated first.
func (s *Store) Import(ctx context.Context, c metadata.Catalog) error {
	if _, err := metadata.NewStatic(c); err != nil {
		return err
	}
	upsert := options.Replace().SetUpsert(true)
	for _, conn := range c.Connections {
		if _, err := s.db.Collection(ConnectionsCollection).ReplaceOne(ctx,
			bson.D{{Key: "_id", Value: conn.ID}}, connectionFromCore(conn), upsert); err != nil {
			return fmt.Errorf("import connection %q: %w", conn.ID, err)
		}
	}
	for _, src := range c.DataSources {
		if _, err := s.db.Collection(DataSourcesCollection).ReplaceOne(ctx,
			bson.D{{Key: "_id", Value: src.ID}}, dataSourceFromCore(src), upsert); err != nil {
			return fmt.Errorf("import data source %q: %w", src.ID, err)
		}
	}
	for _, ds := range c.DataSets {
		if _, err := s.db.Collection(DataSetsCollection).ReplaceOne(ctx,
			bson.D{{Key: "_id", Value: ds.ID}}, dataSetFromCore(ds), upsert); err != nil {
			return fmt.Errorf("import data set %q: %w", ds.ID, err)
		}
	}
	s.logger.Info("catalog imported",
		slog.String("database", s.db.Name()),
		slog.Int("connections", len(c.Connections)),
		slog.Int("data_sources", len(c.DataSources)),
		slog.Int("data_sets", len(c.DataSets)))
	return nil
}

var (
	_ metadata.Provider = (*Store)(nil)
	_ metadata.Lister   = (*Store)(nil)
)
