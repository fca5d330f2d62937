// Package cache stores and loads precomputed point clouds and caches
// reconstruction results.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// OpenDB opens the sqlite database at path, creating its directory and the
// point cloud and user tables.
func OpenDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := InitializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitializeSchema creates missing tables.
func InitializeSchema(db *sql.DB) error {
	stmts := []string{`
	CREATE TABLE IF NOT EXISTS point_clouds (
		name TEXT PRIMARY KEY,
		num_points INTEGER NOT NULL,
		data BLOB NOT NULL, -- binary PCD
		created_at INTEGER NOT NULL
	)`, `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("creating schema failed: %w", err)
		}
	}
	return nil
}
