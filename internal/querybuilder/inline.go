package querybuilder

import (
	"strconv"
	"strings"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/dialect"
)

// Inline renders the query with its arguments substituted as literals.
// The result is for display and logging only and is never executed.
func (q *Query) Inline(d *dialect.Dialect) string {
	var sb strings.Builder
	next := 0
	inString := false
	sql := q.SQL

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '\'':
			inString = !inString
			sb.WriteByte(c)
		case inString:
			sb.WriteByte(c)
		case c == '?':
			sb.WriteString(q.literal(d, next))
			next++
		case c == '$' && i+1 < len(sql) && isDigit(sql[i+1]):
			j := i + 1
			for j < len(sql) && isDigit(sql[j]) {
				j++
			}
			n, _ := strconv.Atoi(sql[i+1 : j])
			sb.WriteString(q.literal(d, n-1))
			i = j - 1
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func (q *Query) literal(d *dialect.Dialect, idx int) string {
	if idx < 0 || idx >= len(q.Args) {
		return "NULL"
	}
	return d.Literal(q.Args[idx])
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
