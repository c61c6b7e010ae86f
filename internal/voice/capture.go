// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package voice turns a recorded utterance into ingredient text.
// A Capture runs one recognition at a time and reports it as a stream of events
// that always terminates with EventEnded.
package voice

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrUnavailable is returned when no recognizer is configured.
	ErrUnavailable = errors.New("voice: speech recognition unavailable")
	// ErrAlreadyListening is returned when Start is called during a capture.
	ErrAlreadyListening = errors.New("voice: already listening")
	// ErrStopped is reported by Await when a capture ended without a result.
	ErrStopped = errors.New("voice: capture stopped")
	// ErrNoSpeech is reported when the recognizer returned an empty transcript.
	ErrNoSpeech = errors.New("voice: no speech recognized")
)

// Recognizer converts audio into text.
type Recognizer interface {
	Recognize(ctx context.Context, audio io.Reader, contentType string) (string, error)
}

// EventKind tags a capture event.
type EventKind int

const (
	EventResult EventKind = iota
	EventError
	EventEnded
)

func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Event is one signal of a capture.
type Event struct {
	Kind       EventKind
	Transcript string
	Err        error
}

// Capture serializes recognitions for one session.
type Capture struct {
	rec Recognizer

	mu        sync.Mutex
	listening bool
	stopped   bool
	cancel    context.CancelFunc
}

// NewCapture wraps rec. A nil rec yields a capture that reports ErrUnavailable.
func NewCapture(rec Recognizer) *Capture {
	return &Capture{rec: rec}
}

// Available reports whether recognition can be started at all.
func (c *Capture) Available() bool {
	return c != nil && c.rec != nil
}

// Listening reports whether a capture is in progress.
func (c *Capture) Listening() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}

// Start begins recognizing audio. The returned channel delivers at most one
// EventResult or EventError, then EventEnded, then is closed.
func (c *Capture) Start(ctx context.Context, audio io.Reader, contentType string) (<-chan Event, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}

	c.mu.Lock()
	if c.listening {
		c.mu.Unlock()
		return nil, ErrAlreadyListening
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.listening = true
	c.stopped = false
	c.cancel = cancel
	c.mu.Unlock()

	events := make(chan Event, 2)
	go func() {
		text, err := c.rec.Recognize(runCtx, audio, contentType)

		c.mu.Lock()
		stopped := c.stopped
		c.listening = false
		c.stopped = false
		c.cancel = nil
		c.mu.Unlock()
		cancel()

		switch {
		case err != nil && stopped:
			log.Debugf("voice: capture stopped before a result: %v", err)
		case err != nil:
			log.Warnf("voice: recognition failed: %v", err)
			events <- Event{Kind: EventError, Err: err}
		default:
			text = strings.ToLower(strings.TrimSpace(text))
			if text == "" {
				events <- Event{Kind: EventError, Err: ErrNoSpeech}
			} else {
				events <- Event{Kind: EventResult, Transcript: text}
			}
		}
		events <- Event{Kind: EventEnded}
		close(events)
	}()
	return events, nil
}

// Stop aborts the running capture. It returns false when nothing was listening.
func (c *Capture) Stop() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.listening || c.cancel == nil {
		return false
	}
	c.stopped = true
	c.cancel()
	return true
}

// Await drains events and returns the transcript or the failure.
// A capture that ended without result or error yields ErrStopped.
func Await(events <-chan Event) (string, error) {
	var (
		transcript string
		err        error
	)
	for ev := range events {
		switch ev.Kind {
		case EventResult:
			transcript = ev.Transcript
		case EventError:
			err = ev.Err
		}
	}
	if err != nil {
		return "", err
	}
	if transcript == "" {
		return "", ErrStopped
	}
	return transcript, nil
}
