package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Upsert writes one row keyed by Conflict. Columns not in Conflict are
// overwritten on conflict (last writer wins) and updated_at is bumped.
type Upsert struct {
	Table    string
	Conflict []string
	Columns  []string
	Values   []interface{}
}

// SQL renders the statement. It returns whether the row was inserted.
func (u Upsert) SQL() string {
	keys := make(map[string]bool, len(u.Conflict))
	for _, k := range u.Conflict {
		keys[k] = true
	}

	var sets []string
	for _, col := range u.Columns {
		if !keys[col] {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	sets = append(sets, "updated_at = NOW()")

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s RETURNING (xmax = 0)",
		u.Table,
		strings.Join(u.Columns, ", "),
		placeholders(1, len(u.Columns)),
		strings.Join(u.Conflict, ", "),
		strings.Join(sets, ", "),
	)
}

// Exec runs the upsert and reports whether a new row was created.
func (u Upsert) Exec(ctx context.Context, q Querier) (bool, error) {
	if len(u.Columns) != len(u.Values) {
		return false, fmt.Errorf("upsert %s: %d columns but %d values", u.Table, len(u.Columns), len(u.Values))
	}
	var created bool
	if err := q.QueryRow(ctx, u.SQL(), u.Values...).Scan(&created); err != nil {
		return false, fmt.Errorf("upsert %s: %w", u.Table, err)
	}
	return created, nil
}

// Insert appends one row to an event-style table.
type Insert struct {
	Table   string
	Columns []string
	Values  []interface{}
}

func (i Insert) SQL() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		i.Table, strings.Join(i.Columns, ", "), placeholders(1, len(i.Columns)))
}

func (i Insert) Exec(ctx context.Context, q Querier) error {
	if len(i.Columns) != len(i.Values) {
		return fmt.Errorf("insert %s: %d columns but %d values", i.Table, len(i.Columns), len(i.Values))
	}
	if _, err := q.Exec(ctx, i.SQL(), i.Values...); err != nil {
		return fmt.Errorf("insert %s: %w", i.Table, err)
	}
	return nil
}

func placeholders(start, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(ph, ", ")
}

// JSON encodes v for a jsonb column. A nil value is stored as JSON null.
func JSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return b
}
