// Package filestore serves the metadata catalog from a YAML file.
//
// The file holds three lists, connections, data_sources and data_sets, using
// the snake_case keys of the core types. With Watch enabled the catalog is
// reloaded when the file changes; a broken edit keeps the last good snapshot.
package filestore

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/metadata"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
)

// Store is a metadata.Provider backed by a YAML catalog file.
type Store struct {
	path     string
	logger   *slog.Logger
	provider *file.File
	snapshot atomic.Pointer[metadata.Static]
	reloads  atomic.Int64
}

// Open loads the catalog at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{
		path:     path,
		logger:   logger,
		provider: file.Provider(path),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load parses a catalog file without keeping a Store around.
func Load(path string) (metadata.Catalog, error) {
	return load(file.Provider(path), path)
}

func load(p *file.File, path string) (metadata.Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(p, yaml.Parser()); err != nil {
		return metadata.Catalog{}, fmt.Errorf("error reading catalog %s: %w", path, err)
	}
	var c metadata.Catalog
	if err := k.Unmarshal("", &c); err != nil {
		return metadata.Catalog{}, fmt.Errorf("unable to decode catalog %s: %w", path, err)
	}
	return c, nil
}

// Reload re-reads the file and swaps in the new snapshot.
func (s *Store) Reload() error {
	c, err := load(s.provider, s.path)
	if err != nil {
		return err
	}
	snap, err := metadata.NewStatic(c)
	if err != nil {
		return fmt.Errorf("invalid catalog %s: %w", s.path, err)
	}
	s.snapshot.Store(snap)
	s.reloads.Add(1)
	s.logger.Debug("catalog loaded",
		slog.String("path", s.path),
		slog.Int("connections", len(c.Connections)),
		slog.Int("data_sources", len(c.DataSources)),
		slog.Int("data_sets", len(c.DataSets)))
	return nil
}

// Reloads reports how many snapshots have been loaded, including the first.
func (s *Store) Reloads() int64 {
	return s.reloads.Load()
}

// Watch reloads the catalog whenever the file changes.
func (s *Store) Watch() error {
	return s.provider.Watch(func(_ interface{}, err error) {
		if err != nil {
			s.logger.Warn("catalog watch error", slog.String("path", s.path), slog.Any("error", err))
			return
		}
		if err := s.Reload(); err != nil {
			s.logger.Warn("catalog reload failed, keeping previous snapshot",
				slog.String("path", s.path), slog.Any("error", err))
		}
	})
}

// Close stops watching the file.
func (s *Store) Close() error {
	return s.provider.Unwatch()
}

func (s *Store) current() *metadata.Static {
	return s.snapshot.Load()
}

// GetConnection implements metadata.Provider.
func (s *Store) GetConnection(ctx context.Context, id string) (*core.Connection, error) {
	return s.current().GetConnection(ctx, id)
}

// GetDataSource implements metadata.Provider.
func (s *Store) GetDataSource(ctx context.Context, id string) (*core.DataSource, error) {
	return s.current().GetDataSource(ctx, id)
}

// GetDataSet implements metadata.Provider.
func (s *Store) GetDataSet(ctx context.Context, id string) (*core.DataSet, error) {
	return s.current().GetDataSet(ctx, id)
}

// ListConnections implements metadata.Lister.
func (s *Store) ListConnections(ctx context.Context) ([]core.Connection, error) {
	return s.current().ListConnections(ctx)
}

// ListDataSets implements metadata.Lister.
func (s *Store) ListDataSets(ctx context.Context) ([]core.DataSet, error) {
	return s.current().ListDataSets(ctx)
}

var (
	_ metadata.Provider = (*Store)(nil)
	_ metadata.Lister   = (*Store)(nil)
)
