// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pantry

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Scheduler is a single-slot trailing-edge debouncer. It holds at most one pending task;
// Schedule cancels the pending one and arms a new timer measured from now.
// Cancelling only stops the timer, a task that already started keeps running.
type Scheduler struct {
	clock clock.Clock

	mu    sync.Mutex
	delay time.Duration
	timer *clock.Timer
	seq   uint64
}

// NewScheduler returns a scheduler firing delay after the last Schedule call.
// A nil clk uses the wall clock.
func NewScheduler(clk clock.Clock, delay time.Duration) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{clock: clk, delay: delay}
}

// Schedule replaces any pending task with fn.
func (s *Scheduler) Schedule(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.seq++
	seq := s.seq
	s.timer = s.clock.AfterFunc(s.delay, func() {
		s.mu.Lock()
		// A Stop racing with an expiring timer can still deliver the callback.
		if seq != s.seq {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending task. It reports whether one was pending.
func (s *Scheduler) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if s.timer == nil {
		return false
	}
	s.timer.Stop()
	s.timer = nil
	return true
}

// Pending reports whether a task is armed.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// SetDelay changes the interval used by subsequent Schedule calls.
func (s *Scheduler) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

func (s *Scheduler) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay
}
