// Package config loads dashquery settings from defaults, a YAML file,
// DASHQUERY_ environment variables and command-line flags, in increasing
// order of precedence.
package config

import "time"

// Config holds all dashquery configuration options.
type Config struct {
	Catalog   CatalogConfig `koanf:"catalog"`
	Cache     CacheConfig   `koanf:"cache"`
	Query     QueryConfig   `koanf:"query"`
	SecretKey string        `koanf:"secret_key"`
	Verbose   bool          `koanf:"verbose"`
	Output    string        `koanf:"output"`

	// FileUsed is the config file that was loaded, if any.
	FileUsed string `koanf:"-"`
}

// CatalogConfig selects the metadata provider.
type CatalogConfig struct {
	Driver string      `koanf:"driver"` // file or mongo
	Path   string      `koanf:"path"`
	Watch  bool        `koanf:"watch"`
	Mongo  MongoConfig `koanf:"mongo"`
}

// MongoConfig locates the MongoDB catalog.
type MongoConfig struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

// CacheConfig configures the durable result cache.
type CacheConfig struct {
	Path          string        `koanf:"path"` // SQLite file, or :memory:
	DefaultTTL    time.Duration `koanf:"default_ttl"`
	SweepSchedule string        `koanf:"sweep_schedule"`
}

// QueryConfig bounds query execution.
type QueryConfig struct {
	Timeout time.Duration `koanf:"timeout"`
	MaxRows int64         `koanf:"max_rows"`
}
