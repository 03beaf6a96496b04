// Package query runs SQL over converted Parquet output via DuckDB.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/logtab/logtab/internal/model"
	"github.com/logtab/logtab/pkg/errors"
)

// Engine wraps an in-memory DuckDB instance and reads converted output
// through read_parquet(). One engine can serve many queries; callers must
// Close it when done.
type Engine struct {
	db *sql.DB
}

// NewEngine opens an in-memory DuckDB instance.
func NewEngine() (*Engine, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDuckDBInit, "failed to open DuckDB")
	}
	return &Engine{db: db}, nil
}

// Close releases database resources.
func (e *Engine) Close() error {
	return e.db.Close()
}

// DB exposes the underlying connection for advanced queries.
func (e *Engine) DB() *sql.DB {
	return e.db
}

// ResultTable holds a query result in display-ready form.
type ResultTable struct {
	Columns []string
	Rows    [][]string
}

// Raw executes a SQL query and materializes the result. Callers can use
// read_parquet() against any file_part*.parquet glob.
func (e *Engine) Raw(ctx context.Context, query string, args ...interface{}) (*ResultTable, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDuckDBQuery, "query failed").
			WithContext("query", query)
	}
	defer rows.Close()
	return materialize(rows)
}

// TimeRange returns the first and last timestamps across the converted
// output matched by glob.
func (e *Engine) TimeRange(ctx context.Context, glob string) (first, last float64, err error) {
	query := fmt.Sprintf(
		`SELECT MIN(%s), MAX(%s) FROM read_parquet('%s')`,
		model.ColTimestamp, model.ColTimestamp, escapePath(glob))
	row := e.db.QueryRowContext(ctx, query)
	if err := row.Scan(&first, &last); err != nil {
		return 0, 0, errors.Wrap(err, errors.CodeDuckDBQuery, "time range query failed").
			WithContext("glob", glob)
	}
	return first, last, nil
}

// EntryCounts returns the number of rows per entry id, descending by count.
func (e *Engine) EntryCounts(ctx context.Context, glob string) (map[uint32]int64, error) {
	query := fmt.Sprintf(
		`SELECT %s, COUNT(*) AS cnt FROM read_parquet('%s') GROUP BY %s ORDER BY cnt DESC`,
		model.ColEntry, escapePath(glob), model.ColEntry)
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDuckDBQuery, "entry count query failed").
			WithContext("glob", glob)
	}
	defer rows.Close()

	counts := make(map[uint32]int64)
	for rows.Next() {
		var id uint32
		var c int64
		if err := rows.Scan(&id, &c); err != nil {
			return nil, errors.Wrap(err, errors.CodeDuckDBQuery, "scan failed")
		}
		counts[id] = c
	}
	return counts, rows.Err()
}

// SignalStats returns min, max, and mean of one numeric column over the
// converted output.
func (e *Engine) SignalStats(ctx context.Context, glob, column string) (min, max, mean float64, err error) {
	query := fmt.Sprintf(
		`SELECT MIN("%s"), MAX("%s"), AVG("%s") FROM read_parquet('%s') WHERE "%s" IS NOT NULL`,
		column, column, column, escapePath(glob), column)
	row := e.db.QueryRowContext(ctx, query)
	if err := row.Scan(&min, &max, &mean); err != nil {
		return 0, 0, 0, errors.Wrap(err, errors.CodeDuckDBQuery, "signal stats query failed").
			WithContext("column", column)
	}
	return min, max, mean, nil
}

// materialize scans every row into strings for display.
func materialize(rows *sql.Rows) (*ResultTable, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDuckDBQuery, "failed to read columns")
	}

	table := &ResultTable{Columns: cols}
	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, errors.CodeDuckDBQuery, "scan failed")
		}
		out := make([]string, len(cols))
		for i, v := range vals {
			if v == nil {
				out[i] = "NULL"
				continue
			}
			out[i] = fmt.Sprintf("%v", v)
		}
		table.Rows = append(table.Rows, out)
	}
	return table, rows.Err()
}

func escapePath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
