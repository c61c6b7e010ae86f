// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory. Records do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]string)}
}

func (s *MemoryStore) Get(_ context.Context, userID string) ([]string, bool, error) {
	if err := checkUserID(userID); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	items, ok := s.records[userID]
	if !ok {
		return nil, false, nil
	}
	return cloneList(items), true, nil
}

func (s *MemoryStore) Upsert(_ context.Context, userID string, ingredients []string) error {
	if err := checkUserID(userID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[userID] = cloneList(ingredients)
	return nil
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Close() error { return nil }
