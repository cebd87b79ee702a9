// Package core defines the shared language of the dashquery engine.
//
// This package contains:
//   - Catalog read models (Connection, DataSource, DataSet, TierConfig)
//   - The abstract query request (QueryContext, Aggregation, Filter)
//   - Adapter-facing types (AdapterConfig, ColumnSchema, Row)
//   - The error taxonomy shared by every layer
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
