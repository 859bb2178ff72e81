package db

import (
	"fmt"
	"strings"
	"time"
)

// Filter accumulates WHERE clauses with positional arguments.
type Filter struct {
	table   string
	cols    string
	where   string
	args    []interface{}
	idx     int
	orderBy string
	limit   int
	offset  int
}

// NewFilter starts a filter over table selecting cols.
func NewFilter(table, cols string) *Filter {
	return &Filter{table: table, cols: cols, idx: 1}
}

// Add appends a raw clause fragment (without leading "AND"). Use "$%d"
// verbs for each argument; they are numbered in order.
func (f *Filter) Add(clause string, args ...interface{}) *Filter {
	nums := make([]interface{}, len(args))
	for i := range args {
		nums[i] = f.idx + i
	}
	f.where += " AND " + fmt.Sprintf(clause, nums...)
	f.args = append(f.args, args...)
	f.idx += len(args)
	return f
}

// Contains matches col case-insensitively against a substring.
func (f *Filter) Contains(col, value string) *Filter {
	return f.Add(col+` ILIKE '%%' || $%d || '%%'`, escapeLike(value))
}

// AnyContains matches when col contains any of values.
func (f *Filter) AnyContains(col string, values []string) *Filter {
	if len(values) == 0 {
		return f
	}
	parts := make([]string, len(values))
	args := make([]interface{}, len(values))
	for i, v := range values {
		parts[i] = col + ` ILIKE '%%' || $%d || '%%'`
		args[i] = escapeLike(v)
	}
	return f.Add("("+strings.Join(parts, " OR ")+")", args...)
}

// EqualFold matches col case-insensitively.
func (f *Filter) EqualFold(col, value string) *Filter {
	return f.Add("LOWER("+col+") = LOWER($%d)", value)
}

// Equal matches col exactly.
func (f *Filter) Equal(col string, value interface{}) *Filter {
	return f.Add(col+" = $%d", value)
}

// OnDate matches rows whose col falls on the UTC calendar day of day.
func (f *Filter) OnDate(col string, day time.Time) *Filter {
	return f.Add("("+col+" AT TIME ZONE 'UTC')::date = $%d::date", day.UTC().Format("2006-01-02"))
}

// SameDate matches a DATE column against the calendar day of day.
func (f *Filter) SameDate(col string, day time.Time) *Filter {
	return f.Add(col+" = $%d::date", day.UTC().Format("2006-01-02"))
}

// OrderBy sets the ORDER BY expression.
func (f *Filter) OrderBy(orderBy string) *Filter {
	f.orderBy = orderBy
	return f
}

// Page limits the result. A non-positive limit leaves it unbounded.
func (f *Filter) Page(limit, offset int) *Filter {
	f.limit, f.offset = limit, offset
	return f
}

// SQL renders the SELECT.
func (f *Filter) SQL() string {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1%s", f.cols, f.table, f.where)
	if f.orderBy != "" {
		sql += " ORDER BY " + f.orderBy
	}
	if f.limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d OFFSET %d", f.limit, f.offset)
	}
	return sql
}

// Args returns the positional arguments for SQL.
func (f *Filter) Args() []interface{} {
	return f.args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
