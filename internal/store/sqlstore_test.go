// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T, cfg PostgresStoreConfig) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return newPostgresStoreWithDB(db, cfg), mock
}

func TestPostgresStore_GetFound(t *testing.T) {
	store, mock := newMockPostgres(t, PostgresStoreConfig{})

	rows := sqlmock.NewRows([]string{"ingredientes"}).AddRow(`["arroz","feijão"]`)
	mock.ExpectQuery(`SELECT ingredientes::text FROM "geladeiras" WHERE user_id = $1`).
		WithArgs("u1").
		WillReturnRows(rows)

	items, found, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"arroz", "feijão"}, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMissing(t *testing.T) {
	store, mock := newMockPostgres(t, PostgresStoreConfig{Schema: "app", Table: "pantry"})

	mock.ExpectQuery(`SELECT ingredientes::text FROM "app"."pantry" WHERE user_id = $1`).
		WithArgs("u2").
		WillReturnError(sql.ErrNoRows)

	items, found, err := store.Get(context.Background(), "u2")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNullColumn(t *testing.T) {
	store, mock := newMockPostgres(t, PostgresStoreConfig{})

	mock.ExpectQuery(`SELECT ingredientes::text FROM "geladeiras" WHERE user_id = $1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"ingredientes"}).AddRow(nil))

	items, found, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, items)
}

func TestPostgresStore_Upsert(t *testing.T) {
	store, mock := newMockPostgres(t, PostgresStoreConfig{})

	mock.ExpectExec(`INSERT INTO "geladeiras" (user_id, ingredientes, updated_at) VALUES ($1, $2::jsonb, $3) ON CONFLICT (user_id) DO UPDATE SET ingredientes = EXCLUDED.ingredientes, updated_at = EXCLUDED.updated_at`).
		WithArgs("u1", `["tomato"]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Upsert(context.Background(), "u1", []string{"tomato"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertEmptyListWritesArray(t *testing.T) {
	store, mock := newMockPostgres(t, PostgresStoreConfig{})

	mock.ExpectExec(`INSERT INTO "geladeiras" (user_id, ingredientes, updated_at) VALUES ($1, $2::jsonb, $3) ON CONFLICT (user_id) DO UPDATE SET ingredientes = EXCLUDED.ingredientes, updated_at = EXCLUDED.updated_at`).
		WithArgs("u1", `[]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Upsert(context.Background(), "u1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertError(t *testing.T) {
	store, mock := newMockPostgres(t, PostgresStoreConfig{})

	mock.ExpectExec(`INSERT INTO "geladeiras" (user_id, ingredientes, updated_at) VALUES ($1, $2::jsonb, $3) ON CONFLICT (user_id) DO UPDATE SET ingredientes = EXCLUDED.ingredientes, updated_at = EXCLUDED.updated_at`).
		WithArgs("u1", `["tomato"]`, sqlmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := store.Upsert(context.Background(), "u1", []string{"tomato"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	store, mock := newMockPostgres(t, PostgresStoreConfig{Schema: "app"})

	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "app"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "app"."geladeiras" (
		user_id TEXT PRIMARY KEY,
		ingredientes JSONB NOT NULL DEFAULT '[]'::jsonb,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RejectsEmptyUserID(t *testing.T) {
	store, _ := newMockPostgres(t, PostgresStoreConfig{})
	_, _, err := store.Get(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyUserID)
	assert.ErrorIs(t, store.Upsert(context.Background(), "", nil), ErrEmptyUserID)
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"geladeiras"`, quoteIdentifier("geladeiras"))
	assert.Equal(t, `"we""ird"`, quoteIdentifier(`we"ird`))
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "db", "pantry.db"), "")
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, "sqlite", store.Name())

	_, found, err := store.Get(ctx, "ana")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Upsert(ctx, "ana", []string{"tomato", "egg"}))
	items, found, err := store.Get(ctx, "ana")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"tomato", "egg"}, items)

	require.NoError(t, store.Upsert(ctx, "ana", []string{}))
	items, found, err = store.Get(ctx, "ana")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, items)
}
