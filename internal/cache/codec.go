package cache

import (
	"encoding/json"
	"fmt"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
)

// cell is one encoded row value. K names the Go kind of V so decoding
// yields the same scalar types the adapter produced; values of other
// types carry no kind and decode as generic JSON.
type cell struct {
	K string          `json:"k,omitempty"`
	V json.RawMessage `json:"v"`
}

func kindOf(v any) string {
	switch v.(type) {
	case int:
		return "int"
	case int8:
		return "int8"
	case int16:
		return "int16"
	case int32:
		return "int32"
	case int64:
		return "int64"
	case uint:
		return "uint"
	case uint8:
		return "uint8"
	case uint16:
		return "uint16"
	case uint32:
		return "uint32"
	case uint64:
		return "uint64"
	case float32:
		return "float32"
	case float64:
		return "float64"
	}
	return ""
}

func encodeRows(rows []core.Row) ([]byte, error) {
	out := make([]map[string]cell, len(rows))
	for i, r := range rows {
		m := make(map[string]cell, len(r))
		for col, v := range r {
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", col, err)
			}
			m[col] = cell{K: kindOf(v), V: raw}
		}
		out[i] = m
	}
	return json.Marshal(out)
}

func decodeRows(data []byte) ([]core.Row, error) {
	var cells []map[string]cell
	if err := json.Unmarshal(data, &cells); err != nil {
		return nil, err
	}
	rows := make([]core.Row, len(cells))
	for i, m := range cells {
		r := make(core.Row, len(m))
		for col, c := range m {
			v, err := decodeCell(c)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", col, err)
			}
			r[col] = v
		}
		rows[i] = r
	}
	return rows, nil
}

func decodeCell(c cell) (any, error) {
	switch c.K {
	case "int", "int8", "int16", "int32", "int64":
		var n int64
		if err := json.Unmarshal(c.V, &n); err != nil {
			return nil, err
		}
		switch c.K {
		case "int":
			return int(n), nil
		case "int8":
			return int8(n), nil
		case "int16":
			return int16(n), nil
		case "int32":
			return int32(n), nil
		}
		return n, nil
	case "uint", "uint8", "uint16", "uint32", "uint64":
		var n uint64
		if err := json.Unmarshal(c.V, &n); err != nil {
			return nil, err
		}
		switch c.K {
		case "uint":
			return uint(n), nil
		case "uint8":
			return uint8(n), nil
		case "uint16":
			return uint16(n), nil
		case "uint32":
			return uint32(n), nil
		}
		return n, nil
	case "float32":
		var f float32
		if err := json.Unmarshal(c.V, &f); err != nil {
			return nil, err
		}
		return f, nil
	case "float64":
		var f float64
		if err := json.Unmarshal(c.V, &f); err != nil {
			return nil, err
		}
		return f, nil
	case "":
		var v any
		if err := json.Unmarshal(c.V, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, fmt.Errorf("unknown cached value kind %q", c.K)
}
