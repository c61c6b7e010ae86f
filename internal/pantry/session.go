// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pantry owns the in-memory ingredient list of a session and keeps it
// synchronized with the remote store through a debounced full-snapshot upsert.
package pantry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/minhageladeira/geladeira/internal/identity"
	"github.com/minhageladeira/geladeira/internal/metrics"
	"github.com/minhageladeira/geladeira/internal/store"
	"github.com/minhageladeira/geladeira/internal/voice"
	log "github.com/sirupsen/logrus"
)

// State is the lifecycle position of a session.
type State int32

const (
	StateUninitialized State = iota
	StateHydrating
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHydrating:
		return "hydrating"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// SessionContext carries the collaborators a session needs instead of ambient lookups.
type SessionContext struct {
	Identity identity.Identity
	// Voice may be nil when speech capture is not configured.
	Voice *voice.Capture
}

// SyncOptions tunes persistence.
type SyncOptions struct {
	Debounce     time.Duration
	WriteTimeout time.Duration
	FlushOnClose bool
}

// DefaultSyncOptions mirrors the configuration defaults.
func DefaultSyncOptions() SyncOptions {
	return SyncOptions{
		Debounce:     300 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		FlushOnClose: true,
	}
}

// View is a consistent snapshot of a session for callers.
type View struct {
	UserID      string   `json:"user_id,omitempty"`
	Persistent  bool     `json:"persistent"`
	State       string   `json:"state"`
	Dirty       bool     `json:"dirty"`
	Listening   bool     `json:"listening"`
	Ingredients []string `json:"ingredients"`
}

// Session is the ingredient list state machine for one identity.
type Session struct {
	sctx    SessionContext
	store   store.IngredientStore
	clock   clock.Clock
	sched   *Scheduler
	opts    SyncOptions
	metrics *metrics.Metrics
	logger  *log.Entry

	hydrateOnce sync.Once
	ready       chan struct{}

	mu         sync.Mutex
	state      State
	list       *IngredientList
	persistent bool
	closed     bool
	gen        uint64
	savedGen   uint64
	lastActive time.Time
	subs       map[uint64]chan []string
	nextSub    uint64

	// writeMu keeps at most one store write in flight.
	writeMu sync.Mutex
	// drained is set by Close once its final write finished; guarded by writeMu.
	drained bool
}

// NewSession creates an uninitialized session. st may be nil, which disables persistence.
func NewSession(sctx SessionContext, st store.IngredientStore, clk clock.Clock, opts SyncOptions, m *metrics.Metrics) *Session {
	if clk == nil {
		clk = clock.New()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultSyncOptions().WriteTimeout
	}
	fields := log.Fields{"session": sctx.Identity.Key()}
	return &Session{
		sctx:       sctx,
		store:      st,
		clock:      clk,
		sched:      NewScheduler(clk, opts.Debounce),
		opts:       opts,
		metrics:    m,
		logger:     log.WithFields(fields),
		ready:      make(chan struct{}),
		list:       NewIngredientList(),
		lastActive: clk.Now(),
		subs:       make(map[uint64]chan []string),
	}
}

// Identity returns the identity the session was built for.
func (s *Session) Identity() identity.Identity { return s.sctx.Identity }

// Hydrate loads the stored list once. Concurrent callers wait for the first load.
// A store failure is logged and leaves an empty list with persistence enabled.
func (s *Session) Hydrate(ctx context.Context) error {
	s.hydrateOnce.Do(func() {
		// Hydration outlives the request that triggered it.
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.syncOptions().WriteTimeout)
		go func() {
			defer cancel()
			defer close(s.ready)
			s.hydrate(hctx)
		}()
	})
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) hydrate(ctx context.Context) {
	s.mu.Lock()
	s.state = StateHydrating
	s.mu.Unlock()

	userID := s.sctx.Identity.UserID
	if !s.sctx.Identity.Authenticated() || s.store == nil {
		s.mu.Lock()
		s.persistent = false
		s.state = StateReady
		s.mu.Unlock()
		s.metrics.Hydration("anonymous")
		s.logger.Debug("pantry: anonymous session, persistence disabled")
		return
	}

	items, found, err := s.store.Get(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistent = true
	switch {
	case err != nil:
		s.logger.Warnf("pantry: hydration failed, starting with an empty list: %v", err)
		s.metrics.Hydration("error")
	case !found:
		s.metrics.Hydration("empty")
	default:
		// Adopted as-is: no dirty mark, so loading never writes back.
		s.list = NewIngredientList(items...)
		s.metrics.Hydration("found")
		s.logger.Debugf("pantry: hydrated %d ingredient(s)", s.list.Len())
	}
	s.state = StateReady
	s.publishLocked()
}

// Ready returns a channel closed once hydration finished.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// Add appends text. changed is false for empty or duplicate input.
func (s *Session) Add(text string) (bool, error) {
	return s.mutate("add", func(l *IngredientList) bool {
		_, added := l.Add(text)
		return added
	})
}

// Remove deletes text if present. Removing an absent element is not an error.
func (s *Session) Remove(text string) (bool, error) {
	return s.mutate("remove", func(l *IngredientList) bool {
		return l.Remove(text)
	})
}

// Clear empties the list. Clearing an empty list changes nothing and schedules no write.
func (s *Session) Clear() (bool, error) {
	return s.mutate("clear", func(l *IngredientList) bool {
		return l.Clear()
	})
}

func (s *Session) mutate(op string, apply func(*IngredientList) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrSessionClosed
	}
	if s.state != StateReady {
		return false, ErrNotReady
	}
	s.lastActive = s.clock.Now()
	if !apply(s.list) {
		return false, nil
	}
	s.gen++
	s.metrics.Mutation(op)
	if s.persistent {
		s.sched.Schedule(s.flushFromTimer)
	}
	s.publishLocked()
	return true, nil
}

// List returns a copy of the current ordered list.
func (s *Session) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Items()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dirty reports unsaved changes relative to the last successful write.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistent && s.gen != s.savedGen
}

// Persistent reports whether changes are written to the store.
func (s *Session) Persistent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistent
}

// WritePending reports whether a debounced write is armed.
func (s *Session) WritePending() bool { return s.sched.Pending() }

// View returns a snapshot for API responses.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		UserID:      s.sctx.Identity.UserID,
		Persistent:  s.persistent,
		State:       s.state.String(),
		Dirty:       s.persistent && s.gen != s.savedGen,
		Listening:   s.sctx.Voice.Listening(),
		Ingredients: s.list.Items(),
	}
}

// Touch marks the session as active now.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = s.clock.Now()
	s.mu.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// SetSyncOptions applies new sync settings to a live session. The debounce
// interval takes effect with the next mutation; a zero WriteTimeout keeps the current one.
func (s *Session) SetSyncOptions(opts SyncOptions) {
	if opts.Debounce > 0 {
		s.sched.SetDelay(opts.Debounce)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if opts.Debounce > 0 {
		s.opts.Debounce = opts.Debounce
	}
	if opts.WriteTimeout > 0 {
		s.opts.WriteTimeout = opts.WriteTimeout
	}
	s.opts.FlushOnClose = opts.FlushOnClose
}

func (s *Session) syncOptions() SyncOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

func (s *Session) flushFromTimer() {
	ctx, cancel := context.WithTimeout(context.Background(), s.syncOptions().WriteTimeout)
	defer cancel()
	_ = s.persist(ctx)
}

// Flush cancels the pending timer and writes immediately when dirty.
func (s *Session) Flush(ctx context.Context) error {
	s.sched.Cancel()
	return s.persist(ctx)
}

// persist writes the current snapshot. The snapshot is taken after acquiring
// writeMu, so a write queued behind an in-flight one always carries the newest list.
func (s *Session) persist(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.persistLocked(ctx)
}

// persistLocked requires writeMu.
func (s *Session) persistLocked(ctx context.Context) error {
	if s.drained {
		return nil
	}
	s.mu.Lock()
	if !s.persistent || s.gen == s.savedGen {
		s.mu.Unlock()
		return nil
	}
	snapshot := s.list.Items()
	gen := s.gen
	userID := s.sctx.Identity.UserID
	s.mu.Unlock()

	if err := s.store.Upsert(ctx, userID, snapshot); err != nil {
		s.metrics.SyncWrite("error")
		s.logger.Errorf("pantry: write of %d ingredient(s) failed: %v", len(snapshot), err)
		return fmt.Errorf("pantry: upsert: %w", err)
	}

	s.mu.Lock()
	if gen > s.savedGen {
		s.savedGen = gen
	}
	s.mu.Unlock()
	s.metrics.SyncWrite("ok")
	s.logger.Debugf("pantry: wrote %d ingredient(s)", len(snapshot))
	return nil
}

// Close tears the session down. A pending write is cancelled and an in-flight one
// is waited for; a list still dirty after that is flushed synchronously when
// FlushOnClose is set, otherwise dropped. Once Close returns no write for this
// session reaches the store any more.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	pending := s.sched.Cancel()
	for _, ch := range subs {
		close(ch)
	}
	s.sctx.Voice.Stop()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	defer func() { s.drained = true }()

	s.mu.Lock()
	dirty := s.persistent && s.gen != s.savedGen
	flush := s.opts.FlushOnClose
	s.mu.Unlock()

	if !dirty {
		return nil
	}
	if !flush {
		s.metrics.SyncWrite("dropped")
		s.logger.Warnf("pantry: dropping unsaved changes on close (pending timer: %t)", pending)
		return nil
	}
	return s.persistLocked(ctx)
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Subscribe returns a channel receiving the list after every change, starting with the
// current list. Slow readers only see the latest snapshot. The channel is closed by
// cancel or when the session closes.
func (s *Session) Subscribe() (<-chan []string, func()) {
	ch := make(chan []string, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	if s.state == StateReady {
		ch <- s.list.Items()
	}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

func (s *Session) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	snapshot := s.list.Items()
	for _, ch := range s.subs {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// Listen recognizes one utterance through the session's voice capture.
// The transcript is returned as a draft; with add it is also added to the list.
func (s *Session) Listen(ctx context.Context, audio io.Reader, contentType string, add bool) (string, bool, error) {
	capture := s.sctx.Voice
	if !capture.Available() {
		return "", false, voice.ErrUnavailable
	}
	s.Touch()

	events, err := capture.Start(ctx, audio, contentType)
	if err != nil {
		return "", false, err
	}
	transcript, err := voice.Await(events)
	if err != nil {
		if errors.Is(err, voice.ErrStopped) {
			s.metrics.VoiceCapture("stopped")
		} else {
			s.metrics.VoiceCapture("error")
		}
		return "", false, err
	}
	s.metrics.VoiceCapture("result")
	if !add {
		return transcript, false, nil
	}
	added, err := s.Add(transcript)
	return transcript, added, err
}

// StopListening aborts a running voice capture.
func (s *Session) StopListening() bool {
	return s.sctx.Voice.Stop()
}
