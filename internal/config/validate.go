package config

import (
	"fmt"
	"slices"
)

// Validate checks settings that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	switch c.Catalog.Driver {
	case CatalogFile:
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog.path is required for the file catalog")
		}
	case CatalogMongo:
		if c.Catalog.Mongo.URI == "" {
			return fmt.Errorf("catalog.mongo.uri is required for the mongo catalog")
		}
	default:
		return fmt.Errorf("unknown catalog driver %q (want %s or %s)", c.Catalog.Driver, CatalogFile, CatalogMongo)
	}
	if c.Query.Timeout <= 0 {
		return fmt.Errorf("query.timeout must be positive, got %s", c.Query.Timeout)
	}
	if c.Query.MaxRows <= 0 {
		return fmt.Errorf("query.max_rows must be positive, got %d", c.Query.MaxRows)
	}
	if c.Cache.DefaultTTL < 0 {
		return fmt.Errorf("cache.default_ttl must not be negative")
	}
	if !slices.Contains(OutputFormats, c.Output) {
		return fmt.Errorf("unknown output format %q (want one of %v)", c.Output, OutputFormats)
	}
	return nil
}
