package core

import (
	"fmt"
	"strings"
)

// DialectName identifies the SQL dialect spoken by a connection.
type DialectName string

// Supported dialects.
const (
	// DialectPostgres is the row-oriented relational backend.
	DialectPostgres DialectName = "postgres"
	// DialectDuckDB is the columnar analytical backend.
	DialectDuckDB DialectName = "duckdb"
)

// Connection holds credentials, dialect and network location for one physical database.
// The password is stored encrypted and is only decrypted when an adapter is built.
type Connection struct {
	ID                string            `json:"id" koanf:"id"`
	Name              string            `json:"name" koanf:"name"`
	Dialect           DialectName       `json:"dialect" koanf:"dialect"`
	Host              string            `json:"host" koanf:"host"`
	Port              int               `json:"port" koanf:"port"`
	Database          string            `json:"database" koanf:"database"` // file path for duckdb
	Username          string            `json:"username" koanf:"username"`
	EncryptedPassword string            `json:"encryptedPassword" koanf:"encrypted_password"`
	Active            bool              `json:"active" koanf:"active"`
	Options           map[string]string `json:"options,omitempty" koanf:"options"`
	Params            map[string]any    `json:"params,omitempty" koanf:"params"`
}

// Column is the catalog description of a table column.
// Inactive columns are metadata-only: hidden from discovery but still queryable by name.
type Column struct {
	Name        string `json:"name" koanf:"name"`
	DataType    string `json:"dataType" koanf:"data_type"`
	Active      bool   `json:"active" koanf:"active"`
	Description string `json:"description,omitempty" koanf:"description"`
}

// DataSource is a single physical table reference within a Connection.
type DataSource struct {
	ID           string   `json:"id" koanf:"id"`
	ConnectionID string   `json:"connectionId" koanf:"connection_id"`
	TableName    string   `json:"tableName" koanf:"table_name"`
	SchemaName   string   `json:"schemaName,omitempty" koanf:"schema_name"`
	Columns      []Column `json:"columns,omitempty" koanf:"columns"`
}

// QualifiedName returns schema.table, or the bare table when no schema is set.
func (ds *DataSource) QualifiedName() string {
	if ds.SchemaName == "" {
		return ds.TableName
	}
	return ds.SchemaName + "." + ds.TableName
}

// ActiveColumns returns the columns that should appear in discovery lists.
func (ds *DataSource) ActiveColumns() []Column {
	cols := make([]Column, 0, len(ds.Columns))
	for _, c := range ds.Columns {
		if c.Active {
			cols = append(cols, c)
		}
	}
	return cols
}

// DataSetType classifies how a DataSet combines its sources.
type DataSetType string

// DataSet kinds.
const (
	DataSetCombined      DataSetType = "combined"
	DataSetPreaggregated DataSetType = "preaggregated"
)

// TimeUnit is the unit of a tier interval or a bucketing resolution.
type TimeUnit string

// Time units, finest first.
const (
	UnitSeconds TimeUnit = "seconds"
	UnitMinutes TimeUnit = "minutes"
	UnitHours   TimeUnit = "hours"
	UnitDays    TimeUnit = "days"
)

// Seconds returns the length of one unit in seconds, or 0 for an unknown unit.
func (u TimeUnit) Seconds() int64 {
	switch u {
	case UnitSeconds:
		return 1
	case UnitMinutes:
		return 60
	case UnitHours:
		return 3600
	case UnitDays:
		return 86400
	default:
		return 0
	}
}

// ParseTimeUnit accepts the canonical plural names and their singular forms.
func ParseTimeUnit(s string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "second", "seconds":
		return UnitSeconds, nil
	case "minute", "minutes":
		return UnitMinutes, nil
	case "hour", "hours":
		return UnitHours, nil
	case "day", "days":
		return UnitDays, nil
	default:
		return "", &ValidationError{Field: "timeUnit", Reason: fmt.Sprintf("unknown time unit %q", s)}
	}
}

// TierConfig annotates one pre-aggregated DataSource with its time resolution.
type TierConfig struct {
	DataSourceID string   `json:"dataSourceId" koanf:"data_source_id"`
	Interval     int      `json:"interval" koanf:"interval"`
	TimeUnit     TimeUnit `json:"timeUnit" koanf:"time_unit"`
}

// IntervalSeconds is the tier resolution in seconds; zero when undefined.
func (t TierConfig) IntervalSeconds() int64 {
	if t.Interval <= 0 {
		return 0
	}
	return int64(t.Interval) * t.TimeUnit.Seconds()
}

// DataSet is a logical query target backed by one or more DataSources or nested DataSets.
type DataSet struct {
	ID            string       `json:"id" koanf:"id"`
	Name          string       `json:"name" koanf:"name"`
	Type          DataSetType  `json:"type,omitempty" koanf:"type"`
	DataSourceIDs []string     `json:"dataSourceIds,omitempty" koanf:"data_source_ids"`
	DataSetIDs    []string     `json:"dataSetIds,omitempty" koanf:"data_set_ids"`
	Tiers         []TierConfig `json:"tiers,omitempty" koanf:"tiers"`
}

// Validate checks the structural invariants of a DataSet.
func (d *DataSet) Validate() error {
	if d.ID == "" {
		return &ValidationError{Field: "id", Reason: "data set id is required"}
	}
	if len(d.DataSourceIDs)+len(d.DataSetIDs) > 1 && d.Type == "" {
		return &ValidationError{Field: "type", Reason: "type is required when a data set has more than one member"}
	}
	switch d.Type {
	case "", DataSetCombined, DataSetPreaggregated:
	default:
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown data set type %q", d.Type)}
	}
	for i, t := range d.Tiers {
		if t.DataSourceID == "" {
			return &ValidationError{Field: fmt.Sprintf("tiers[%d].dataSourceId", i), Reason: "is required"}
		}
	}
	return nil
}
