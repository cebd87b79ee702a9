package config

import "time"

// Catalog drivers.
const (
	CatalogFile  = "file"
	CatalogMongo = "mongo"
)

// Default configuration values.
const (
	DefaultCatalogPath   = "catalog.yaml"
	DefaultCachePath     = ".dashquery/cache.db"
	DefaultCacheTTL      = time.Hour
	DefaultSweepSchedule = "@every 10m"
	DefaultTimeout       = 30 * time.Second
	DefaultMaxRows       = 2000
	DefaultMongoDatabase = "dashquery"
	DefaultOutput        = "table"
)

// OutputFormats lists the accepted values of the output setting.
var OutputFormats = []string{"table", "json", "csv", "yaml"}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"catalog.driver":         CatalogFile,
		"catalog.path":           DefaultCatalogPath,
		"catalog.watch":          false,
		"catalog.mongo.database": DefaultMongoDatabase,
		"cache.path":             DefaultCachePath,
		"cache.default_ttl":      DefaultCacheTTL.String(),
		"cache.sweep_schedule":   DefaultSweepSchedule,
		"query.timeout":          DefaultTimeout.String(),
		"query.max_rows":         DefaultMaxRows,
		"verbose":                false,
		"output":                 DefaultOutput,
	}
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Driver: CatalogFile,
			Path:   DefaultCatalogPath,
			Mongo:  MongoConfig{Database: DefaultMongoDatabase},
		},
		Cache: CacheConfig{
			Path:          DefaultCachePath,
			DefaultTTL:    DefaultCacheTTL,
			SweepSchedule: DefaultSweepSchedule,
		},
		Query:  QueryConfig{Timeout: DefaultTimeout, MaxRows: DefaultMaxRows},
		Output: DefaultOutput,
	}
}
