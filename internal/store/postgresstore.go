// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const defaultTable = "geladeiras"

// PostgresStoreConfig captures configuration required to initialize a Postgres-backed store.
type PostgresStoreConfig struct {
	DSN    string
	Schema string
	Table  string
}

// PostgresStore persists ingredient lists as JSONB rows keyed by user id.
type PostgresStore struct {
	sqlStore
	cfg PostgresStoreConfig
}

// NewPostgresStore opens the connection and ensures the schema exists.
func NewPostgresStore(ctx context.Context, cfg PostgresStoreConfig) (*PostgresStore, error) {
	trimmedDSN := strings.TrimSpace(cfg.DSN)
	if trimmedDSN == "" {
		return nil, fmt.Errorf("postgres store: DSN is required")
	}
	db, err := sql.Open("pgx", trimmedDSN)
	if err != nil {
		return nil, fmt.Errorf("postgres store: open database connection: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres store: ping database: %w", err)
	}
	store := newPostgresStoreWithDB(db, cfg)
	if err = store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func newPostgresStoreWithDB(db *sql.DB, cfg PostgresStoreConfig) *PostgresStore {
	cfg.Schema = strings.TrimSpace(cfg.Schema)
	cfg.Table = strings.TrimSpace(cfg.Table)
	if cfg.Table == "" {
		cfg.Table = defaultTable
	}
	s := &PostgresStore{cfg: cfg}
	table := s.fullTableName(cfg.Table)
	s.sqlStore = sqlStore{
		db:          db,
		name:        "postgres",
		selectQuery: fmt.Sprintf("SELECT ingredientes::text FROM %s WHERE user_id = $1", table),
		upsertQuery: fmt.Sprintf("INSERT INTO %s (user_id, ingredientes, updated_at) VALUES ($1, $2::jsonb, $3) ON CONFLICT (user_id) DO UPDATE SET ingredientes = EXCLUDED.ingredientes, updated_at = EXCLUDED.updated_at", table),
	}
	return s
}

// EnsureSchema creates the schema (when configured) and the pantry table.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s.cfg.Schema != "" {
		query := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", quoteIdentifier(s.cfg.Schema))
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("postgres store: create schema: %w", err)
		}
	}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		user_id TEXT PRIMARY KEY,
		ingredientes JSONB NOT NULL DEFAULT '[]'::jsonb,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, s.fullTableName(s.cfg.Table))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("postgres store: create table: %w", err)
	}
	return nil
}

func (s *PostgresStore) fullTableName(name string) string {
	if s.cfg.Schema == "" {
		return quoteIdentifier(name)
	}
	return quoteIdentifier(s.cfg.Schema) + "." + quoteIdentifier(name)
}
