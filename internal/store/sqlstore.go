// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// sqlStore holds the query logic shared by the relational backends.
// Each backend supplies its own dialect-specific statements.
type sqlStore struct {
	db          *sql.DB
	name        string
	selectQuery string
	upsertQuery string
	now         func() time.Time
}

func (s *sqlStore) Get(ctx context.Context, userID string) ([]string, bool, error) {
	if err := checkUserID(userID); err != nil {
		return nil, false, err
	}
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, s.selectQuery, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s store: select record: %w", s.name, err)
	}
	items, err := decodeList([]byte(raw.String))
	if err != nil {
		return nil, false, fmt.Errorf("%s store: decode record: %w", s.name, err)
	}
	return items, true, nil
}

func (s *sqlStore) Upsert(ctx context.Context, userID string, ingredients []string) error {
	if err := checkUserID(userID); err != nil {
		return err
	}
	payload, err := encodeList(ingredients)
	if err != nil {
		return fmt.Errorf("%s store: encode record: %w", s.name, err)
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	if _, err = s.db.ExecContext(ctx, s.upsertQuery, userID, string(payload), now().UTC()); err != nil {
		return fmt.Errorf("%s store: upsert record: %w", s.name, err)
	}
	return nil
}

func (s *sqlStore) Name() string { return s.name }

func (s *sqlStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
