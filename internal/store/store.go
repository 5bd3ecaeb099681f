// Package store opens the SQLite database and owns its schema.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"
)

// SchemaVersion is bumped whenever the DDL below changes incompatibly.
const SchemaVersion = 3

var (
	// ErrSchemaMismatch indicates the database was created by an incompatible version.
	ErrSchemaMismatch = errors.New("database schema version mismatch")
)

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates missing tables and records the schema version.
func Migrate(db *sql.DB) error {
	var current string
	err := db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&current)
	switch {
	case err == nil:
		if v, _ := strconv.Atoi(current); v != SchemaVersion {
			return fmt.Errorf("%w: have %s, want %d", ErrSchemaMismatch, current, SchemaVersion)
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		// meta does not exist yet on a fresh database
	}

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.Exec(
		"INSERT INTO meta (key, value) VALUES ('schema_version', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		strconv.Itoa(SchemaVersion),
	); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// WithTx runs fn in a transaction, committing when it returns nil.
func WithTx(db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
