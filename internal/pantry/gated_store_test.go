// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pantry

import (
	"context"
	"sync"
)

// gatedStore blocks every Upsert until the test releases it, recording
// what was written and how many writes overlapped.
type gatedStore struct {
	entered chan []string
	release chan struct{}

	mu          sync.Mutex
	records     map[string][]string
	writes      [][]string
	inFlight    int
	maxInFlight int
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		entered: make(chan []string, 16),
		release: make(chan struct{}),
		records: map[string][]string{},
	}
}

func (g *gatedStore) Get(_ context.Context, userID string) ([]string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	items, ok := g.records[userID]
	return append([]string(nil), items...), ok, nil
}

func (g *gatedStore) Upsert(ctx context.Context, userID string, items []string) error {
	g.mu.Lock()
	g.inFlight++
	if g.inFlight > g.maxInFlight {
		g.maxInFlight = g.inFlight
	}
	g.mu.Unlock()

	g.entered <- append([]string(nil), items...)
	select {
	case <-g.release:
	case <-ctx.Done():
		g.mu.Lock()
		g.inFlight--
		g.mu.Unlock()
		return ctx.Err()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight--
	g.records[userID] = append([]string(nil), items...)
	g.writes = append(g.writes, append([]string(nil), items...))
	return nil
}

func (g *gatedStore) Name() string { return "gated" }
func (g *gatedStore) Close() error { return nil }

func (g *gatedStore) Writes() [][]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][]string(nil), g.writes...)
}

func (g *gatedStore) MaxInFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxInFlight
}
