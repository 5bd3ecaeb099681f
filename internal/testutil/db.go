// Package testutil provides reusable helpers for database-backed tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/aidanlsb/elements/internal/store"
)

// TestDB is a migrated temporary database.
type TestDB struct {
	DB *sql.DB
	t  *testing.T
}

// NewDB opens a fresh migrated database under t.TempDir.
func NewDB(t *testing.T) *TestDB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "elements.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &TestDB{DB: db, t: t}
}

// Exec runs fixture statements, failing the test on error.
func (d *TestDB) Exec(query string, args ...any) *TestDB {
	d.t.Helper()
	if _, err := d.DB.Exec(query, args...); err != nil {
		d.t.Fatalf("fixture failed: %v\n%s", err, query)
	}
	return d
}

// Count returns SELECT COUNT(*) for the given FROM/WHERE tail.
func (d *TestDB) Count(tail string, args ...any) int {
	d.t.Helper()
	var n int
	if err := d.DB.QueryRow("SELECT COUNT(*) FROM "+tail, args...).Scan(&n); err != nil {
		d.t.Fatalf("count failed: %v", err)
	}
	return n
}

// Element inserts a bare elements row and returns its id.
func (d *TestDB) Element(typ string) int64 {
	d.t.Helper()
	res, err := d.DB.Exec(
		"INSERT INTO elements (uid, type, dateCreated, dateUpdated) VALUES (lower(hex(randomblob(16))), ?, '2024-01-01 00:00:00', '2024-01-01 00:00:00')",
		typ,
	)
	if err != nil {
		d.t.Fatalf("insert element: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}
