// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists ingredient lists in a local SQLite database.
type SQLiteStore struct {
	sqlStore
	path  string
	table string
}

// NewSQLiteStore opens (or creates) the database at path and ensures the table exists.
func NewSQLiteStore(ctx context.Context, path, table string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite store: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("sqlite store: create directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent session flushes.
	db.SetMaxOpenConns(1)

	table = strings.TrimSpace(table)
	if table == "" {
		table = defaultTable
	}
	s := &SQLiteStore{path: path, table: table}
	quoted := quoteIdentifier(table)
	s.sqlStore = sqlStore{
		db:          db,
		name:        "sqlite",
		selectQuery: fmt.Sprintf("SELECT ingredientes FROM %s WHERE user_id = ?", quoted),
		upsertQuery: fmt.Sprintf("INSERT INTO %s (user_id, ingredientes, updated_at) VALUES (?, ?, ?) ON CONFLICT(user_id) DO UPDATE SET ingredientes = excluded.ingredientes, updated_at = excluded.updated_at", quoted),
	}

	createQuery := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		user_id TEXT PRIMARY KEY,
		ingredientes TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`, quoted)
	if _, err = db.ExecContext(ctx, createQuery); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite store: create table: %w", err)
	}
	return s, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }
