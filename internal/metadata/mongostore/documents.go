package mongostore

import (
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type connectionDoc struct {
	ID                string            `bson:"_id"`
	Name              string            `bson:"name,omitempty"`
	Dialect           string            `bson:"dialect"`
	Host              string            `bson:"host,omitempty"`
	Port              int               `bson:"port,omitempty"`
	Database          string            `bson:"database,omitempty"`
	Username          string            `bson:"username,omitempty"`
	EncryptedPassword string            `bson:"encrypted_password,omitempty"`
	Active            bool              `bson:"active"`
	Options           map[string]string `bson:"options,omitempty"`
	Params            bson.M            `bson:"params,omitempty"`
}

type columnDoc struct {
	Name        string `bson:"name"`
	DataType    string `bson:"data_type"`
	Active      bool   `bson:"active"`
	Description string `bson:"description,omitempty"`
}

type dataSourceDoc struct {
	ID           string      `bson:"_id"`
	ConnectionID string      `bson:"connection_id"`
	TableName    string      `bson:"table_name"`
	SchemaName   string      `bson:"schema_name,omitempty"`
	Columns      []columnDoc `bson:"columns,omitempty"`
}

type tierDoc struct {
	DataSourceID string `bson:"data_source_id"`
	Interval     int    `bson:"interval"`
	TimeUnit     string `bson:"time_unit"`
}

type dataSetDoc struct {
	ID            string    `bson:"_id"`
	Name          string    `bson:"name,omitempty"`
	Type          string    `bson:"type,omitempty"`
	DataSourceIDs []string  `bson:"data_source_ids,omitempty"`
	DataSetIDs    []string  `bson:"data_set_ids,omitempty"`
	Tiers         []tierDoc `bson:"tiers,omitempty"`
}

func (d connectionDoc) toCore() core.Connection {
	c := core.Connection{
		ID:                d.ID,
		Name:              d.Name,
		Dialect:           core.DialectName(d.Dialect),
		Host:              d.Host,
		Port:              d.Port,
		Database:          d.Database,
		Username:          d.Username,
		EncryptedPassword: d.EncryptedPassword,
		Active:            d.Active,
		Options:           d.Options,
	}
	if len(d.Params) > 0 {
		c.Params = make(map[string]any, len(d.Params))
		for k, v := range d.Params {
			c.Params[k] = plain(v)
		}
	}
	return c
}

func connectionFromCore(c core.Connection) connectionDoc {
	return connectionDoc{
		ID:                c.ID,
		Name:              c.Name,
		Dialect:           string(c.Dialect),
		Host:              c.Host,
		Port:              c.Port,
		Database:          c.Database,
		Username:          c.Username,
		EncryptedPassword: c.EncryptedPassword,
		Active:            c.Active,
		Options:           c.Options,
		Params:            bson.M(c.Params),
	}
}

func (d dataSourceDoc) toCore() core.DataSource {
	src := core.DataSource{
		ID:           d.ID,
		ConnectionID: d.ConnectionID,
		TableName:    d.TableName,
		SchemaName:   d.SchemaName,
	}
	for _, c := range d.Columns {
		src.Columns = append(src.Columns, core.Column(c))
	}
	return src
}

func dataSourceFromCore(s core.DataSource) dataSourceDoc {
	d := dataSourceDoc{
		ID:           s.ID,
		ConnectionID: s.ConnectionID,
		TableName:    s.TableName,
		SchemaName:   s.SchemaName,
	}
	for _, c := range s.Columns {
		d.Columns = append(d.Columns, columnDoc(c))
	}
	return d
}

func (d dataSetDoc) toCore() core.DataSet {
	ds := core.DataSet{
		ID:            d.ID,
		Name:          d.Name,
		Type:          core.DataSetType(d.Type),
		DataSourceIDs: d.DataSourceIDs,
		DataSetIDs:    d.DataSetIDs,
	}
	for _, t := range d.Tiers {
		ds.Tiers = append(ds.Tiers, core.TierConfig{
			DataSourceID: t.DataSourceID,
			Interval:     t.Interval,
			TimeUnit:     core.TimeUnit(t.TimeUnit),
		})
	}
	return ds
}

func dataSetFromCore(ds core.DataSet) dataSetDoc {
	d := dataSetDoc{
		ID:            ds.ID,
		Name:          ds.Name,
		Type:          string(ds.Type),
		DataSourceIDs: ds.DataSourceIDs,
		DataSetIDs:    ds.DataSetIDs,
	}
	for _, t := range ds.Tiers {
		d.Tiers = append(d.Tiers, tierDoc{
			DataSourceID: t.DataSourceID,
			Interval:     t.Interval,
			TimeUnit:     string(t.TimeUnit),
		})
	}
	return d
}

// plain converts nested BSON containers into maps and slices so params decode
// the same way they do from YAML.
func plain(v any) any {
	switch x := v.(type) {
	case bson.D:
		m := make(map[string]any, len(x))
		for _, e := range x {
			m[e.Key] = plain(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = plain(e)
		}
		return m
	case bson.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	default:
		return v
	}
}
