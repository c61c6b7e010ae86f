// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/minhageladeira/geladeira/internal/util"
)

// FileStore keeps one JSON record per user under the State Box pantries directory.
// Writes are atomic (temp file + rename) and refused in read-only mode.
type FileStore struct {
	sb *util.StateBox
}

// NewFileStore creates a file-backed store rooted in sb.
func NewFileStore(sb *util.StateBox) (*FileStore, error) {
	if sb == nil {
		return nil, fmt.Errorf("file store: state box is required")
	}
	if !sb.IsReadOnly() {
		if err := sb.EnsureDir(sb.PantriesDir()); err != nil {
			return nil, fmt.Errorf("file store: %w", err)
		}
	}
	return &FileStore{sb: sb}, nil
}

func (s *FileStore) Get(ctx context.Context, userID string) ([]string, bool, error) {
	if err := checkUserID(userID); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(s.sb.PantryPath(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("file store: read record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("file store: decode record: %w", err)
	}
	if rec.Ingredients == nil {
		rec.Ingredients = []string{}
	}
	return rec.Ingredients, true, nil
}

func (s *FileStore) Upsert(ctx context.Context, userID string, ingredients []string) error {
	if err := checkUserID(userID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	rec := Record{
		UserID:      userID,
		Ingredients: cloneList(ingredients),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := util.SecureWriteJSON(s.sb, s.sb.PantryPath(userID), rec); err != nil {
		return fmt.Errorf("file store: write record: %w", err)
	}
	return nil
}

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) Close() error { return nil }
