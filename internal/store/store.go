// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package store implements the remote store clients that persist one ingredient list per user.
// Every backend offers the same two operations: read the list for a user, and overwrite it
// (create the record if absent, replace it if present).
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrEmptyUserID is returned when an operation is attempted without a user identifier.
var ErrEmptyUserID = errors.New("store: empty user id")

// IngredientStore reads and writes the single per-user ingredient record.
type IngredientStore interface {
	// Get returns the stored list. found is false when the user has no record yet.
	Get(ctx context.Context, userID string) (ingredients []string, found bool, err error)
	// Upsert overwrites the user's record with the full list.
	Upsert(ctx context.Context, userID string, ingredients []string) error
	// Name identifies the backend in logs and status output.
	Name() string
	Close() error
}

// Record is the serialized form of a user's pantry.
// Field names follow the backend table layout (geladeiras.user_id / geladeiras.ingredientes).
type Record struct {
	UserID      string    `json:"user_id"`
	Ingredients []string  `json:"ingredientes"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func checkUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	return nil
}

// cloneList never returns nil so encoders emit [] rather than null.
func cloneList(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func encodeList(ingredients []string) ([]byte, error) {
	return json.Marshal(cloneList(ingredients))
}

func decodeList(data []byte) ([]string, error) {
	if len(data) == 0 || string(data) == "null" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// hashedKey maps an arbitrary user id to a filesystem and URL safe key.
func hashedKey(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}
