package querybuilder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
)

type valueKind int

const (
	kindOther valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindTime
)

// typeParams strips precision and length suffixes such as NUMERIC(18,3) or VARCHAR(64).
var typeParams = regexp.MustCompile(`\s*\(.*\)\s*$`)

func columnTypes(columns []core.Column) map[string]string {
	if len(columns) == 0 {
		return nil
	}
	m := make(map[string]string, len(columns))
	for _, c := range columns {
		if c.DataType != "" {
			m[c.Name] = c.DataType
		}
	}
	return m
}

func classify(dataType string) valueKind {
	t := strings.ToUpper(strings.TrimSpace(typeParams.ReplaceAllString(dataType, "")))
	switch t {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "HUGEINT",
		"INT2", "INT4", "INT8", "SERIAL", "BIGSERIAL", "SMALLSERIAL",
		"UINTEGER", "UBIGINT", "USMALLINT", "UTINYINT":
		return kindInt
	case "DOUBLE", "DOUBLE PRECISION", "FLOAT", "FLOAT4", "FLOAT8", "REAL",
		"NUMERIC", "DECIMAL":
		return kindFloat
	case "BOOLEAN", "BOOL":
		return kindBool
	case "TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE",
		"TIMESTAMP WITHOUT TIME ZONE", "DATE":
		return kindTime
	}
	return kindOther
}

// coerce converts a filter value to the Go type matching the column's
// declared type. String operands from the --where parser are parsed; values
// for columns without metadata or of an unknown type pass through untouched.
func coerce(column, dataType string, v any) (any, error) {
	if ts, ok := v.(core.Timestamp); ok {
		return ts.Time(), nil
	}
	s, ok := v.(string)
	if !ok || dataType == "" {
		return v, nil
	}

	invalid := func(err error) error {
		return &core.ValidationError{
			Field:  "filter.value",
			Reason: fmt.Sprintf("%q is not a valid %s for column %q: %v", s, dataType, column, err),
		}
	}

	switch classify(dataType) {
	case kindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, invalid(err)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, invalid(err)
		}
		return f, nil
	case kindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, invalid(err)
		}
		return b, nil
	case kindTime:
		ts, err := parseTime(strings.TrimSpace(s))
		if err != nil {
			return nil, invalid(err)
		}
		return ts, nil
	}
	return v, nil
}

func parseTime(s string) (time.Time, error) {
	if ts, err := core.ParseTimestamp(s); err == nil {
		return ts.Time(), nil
	}
	return time.ParseInLocation(time.DateOnly, s, time.UTC)
}
