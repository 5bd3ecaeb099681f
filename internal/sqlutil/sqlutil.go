// Package sqlutil holds small helpers shared by the SQL-building packages.
package sqlutil

import (
	"database/sql"
	"fmt"
	"strings"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// InClauseArgs returns a comma-separated list of "?" placeholders and the
// corresponding args slice.
//
// If items is empty, it returns "NULL" and no args, so `IN (NULL)` matches nothing.
func InClauseArgs[T any](items []T) (placeholders string, args []any) {
	if len(items) == 0 {
		return "NULL", nil
	}
	ph := make([]string, len(items))
	args = make([]any, len(items))
	for i, item := range items {
		ph[i] = "?"
		args[i] = item
	}
	return strings.Join(ph, ", "), args
}

// BulkInsert builds a single multi-row INSERT statement.
//
// Every row must have exactly len(columns) values. Table and column names are
// interpolated and must come from trusted code.
func BulkInsert(verb, table string, columns []string, rows [][]any) (string, []any, error) {
	if len(rows) == 0 {
		return "", nil, fmt.Errorf("bulk insert into %s: no rows", table)
	}
	if verb == "" {
		verb = "INSERT"
	}
	rowPh := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	values := make([]string, len(rows))
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("bulk insert into %s: row %d has %d values, want %d", table, i, len(row), len(columns))
		}
		values[i] = rowPh
		args = append(args, row...)
	}
	query := fmt.Sprintf("%s INTO %s (%s) VALUES %s", verb, table, strings.Join(columns, ", "), strings.Join(values, ", "))
	return query, args, nil
}

// Chunk splits rows into batches of at most size rows.
func Chunk[T any](rows []T, size int) [][]T {
	if size <= 0 || len(rows) <= size {
		if len(rows) == 0 {
			return nil
		}
		return [][]T{rows}
	}
	var out [][]T
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}

// ScanRows scans all rows into a slice using the provided scanner.
func ScanRows[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ScanInt64s collects a single integer column.
func ScanInt64s(rows *sql.Rows) ([]int64, error) {
	return ScanRows(rows, func(r *sql.Rows) (int64, error) {
		var v int64
		err := r.Scan(&v)
		return v, err
	})
}
