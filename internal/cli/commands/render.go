package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
	"gopkg.in/yaml.v3"
)

// renderRows writes rows in the requested format. cols fixes the column
// order; when empty it is derived from the rows.
func renderRows(w io.Writer, format string, cols []string, rows []core.Row) error {
	if len(cols) == 0 {
		cols = columnsOf(rows)
	}
	switch format {
	case "json":
		return renderJSON(w, rows)
	case "csv":
		return renderCSV(w, cols, rows)
	case "yaml":
		return renderYAML(w, rows)
	default:
		return renderTable(w, cols, rows)
	}
}

// columnsOf returns the union of row keys, sorted.
func columnsOf(rows []core.Row) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func renderTable(w io.Writer, cols []string, rows []core.Row) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, r := range rows {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			row[i] = formatValue(r[c])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func renderCSV(w io.Writer, cols []string, rows []core.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	for _, r := range rows {
		record := make([]string, len(cols))
		for i, c := range cols {
			if r[c] != nil {
				record[i] = formatValue(r[c])
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

// renderList prints one value per line, or a JSON/YAML array.
func renderList(w io.Writer, format string, items []string) error {
	switch format {
	case "json":
		return renderJSON(w, items)
	case "yaml":
		return renderYAML(w, items)
	default:
		if len(items) == 0 {
			return nil
		}
		_, err := fmt.Fprintln(w, strings.Join(items, "\n"))
		return err
	}
}
