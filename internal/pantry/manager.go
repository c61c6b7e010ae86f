// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pantry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/minhageladeira/geladeira/internal/identity"
	"github.com/minhageladeira/geladeira/internal/metrics"
	"github.com/minhageladeira/geladeira/internal/store"
	"github.com/minhageladeira/geladeira/internal/voice"
	log "github.com/sirupsen/logrus"
)

// ManagerOptions configures session lifetime.
type ManagerOptions struct {
	Sync SyncOptions
	// IdleTimeout closes sessions without activity for this long. Zero disables reaping.
	IdleTimeout time.Duration
	// NewVoice builds the voice capture for a new session. Nil disables voice.
	NewVoice func() *voice.Capture
}

// Manager holds one Session per identity key.
type Manager struct {
	store   store.IngredientStore
	clock   clock.Clock
	metrics *metrics.Metrics

	mu       sync.Mutex
	opts     ManagerOptions
	sessions map[string]*Session
	// draining holds keys whose session is being closed; the channel closes
	// once that session's final write is done.
	draining map[string]chan struct{}
	closed   bool
}

// NewManager creates a manager. st may be nil (all sessions ephemeral).
func NewManager(st store.IngredientStore, clk clock.Clock, opts ManagerOptions, m *metrics.Metrics) *Manager {
	if clk == nil {
		clk = clock.New()
	}
	return &Manager{
		store:    st,
		clock:    clk,
		metrics:  m,
		opts:     opts,
		sessions: make(map[string]*Session),
		draining: make(map[string]chan struct{}),
	}
}

// Acquire returns the hydrated session for id, creating it on first use.
// While a previous session for id is still closing, Acquire waits for its final
// write so the replacement hydrates from up-to-date data.
func (m *Manager) Acquire(ctx context.Context, id identity.Identity) (*Session, error) {
	key := id.Key()

	m.mu.Lock()
	for {
		if m.closed {
			m.mu.Unlock()
			return nil, ErrManagerClosed
		}
		done, closing := m.draining[key]
		if !closing {
			break
		}
		m.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		m.mu.Lock()
	}
	sess, ok := m.sessions[key]
	if !ok {
		var capture *voice.Capture
		if m.opts.NewVoice != nil {
			capture = m.opts.NewVoice()
		}
		sess = NewSession(SessionContext{Identity: id, Voice: capture}, m.store, m.clock, m.opts.Sync, m.metrics)
		m.sessions[key] = sess
		m.metrics.SessionOpened()
		log.WithField("session", key).Debug("pantry: session opened")
	}
	m.mu.Unlock()

	sess.Touch()
	if err := sess.Hydrate(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

// Do runs fn against the session for id. A session reaped between Acquire and fn
// is reacquired once.
func (m *Manager) Do(ctx context.Context, id identity.Identity, fn func(*Session) error) error {
	for attempt := 0; ; attempt++ {
		sess, err := m.Acquire(ctx, id)
		if err != nil {
			return err
		}
		err = fn(sess)
		if errors.Is(err, ErrSessionClosed) && attempt == 0 {
			continue
		}
		return err
	}
}

// Lookup returns the existing session for id without creating one.
func (m *Manager) Lookup(id identity.Identity) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id.Key()]
	return sess, ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// SetSyncOptions applies new settings to future and live sessions.
func (m *Manager) SetSyncOptions(opts SyncOptions, idle time.Duration) {
	m.mu.Lock()
	m.opts.Sync = opts
	m.opts.IdleTimeout = idle
	live := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		live = append(live, sess)
	}
	m.mu.Unlock()

	for _, sess := range live {
		sess.SetSyncOptions(opts)
	}
}

// ReapIdle closes sessions idle for longer than the idle timeout and returns how many were closed.
func (m *Manager) ReapIdle(ctx context.Context) int {
	m.mu.Lock()
	idle := m.opts.IdleTimeout
	if idle <= 0 {
		m.mu.Unlock()
		return 0
	}
	cutoff := m.clock.Now().Add(-idle)
	var victims []*Session
	for key, sess := range m.sessions {
		if sess.LastActive().Before(cutoff) {
			victims = append(victims, sess)
			delete(m.sessions, key)
			m.draining[key] = make(chan struct{})
		}
	}
	m.mu.Unlock()

	for _, sess := range victims {
		key := sess.Identity().Key()
		if err := sess.Close(ctx); err != nil {
			log.WithField("session", key).Errorf("pantry: close idle session: %v", err)
		}
		m.metrics.SessionClosed()

		m.mu.Lock()
		close(m.draining[key])
		delete(m.draining, key)
		m.mu.Unlock()
	}
	if len(victims) > 0 {
		log.Debugf("pantry: reaped %d idle session(s)", len(victims))
	}
	return len(victims)
}

// Run reaps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := m.clock.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ReapIdle(ctx)
		}
	}
}

// Close tears down every session, flushing dirty lists according to the sync options.
// The first flush error is returned after all sessions were closed.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var firstErr error
	for _, sess := range sessions {
		if err := sess.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		m.metrics.SessionClosed()
	}
	return firstErr
}
