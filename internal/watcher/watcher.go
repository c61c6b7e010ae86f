// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package watcher reloads the configuration file when it changes on disk.
package watcher

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fsnotify/fsnotify"
	"github.com/minhageladeira/geladeira/internal/config"
	"github.com/minhageladeira/geladeira/internal/pantry"
	log "github.com/sirupsen/logrus"
)

// DefaultSettle coalesces the burst of events editors emit for a single save.
const DefaultSettle = 100 * time.Millisecond

// ReloadFunc receives each successfully parsed configuration.
type ReloadFunc func(cfg *config.Config)

// Watcher watches a single config file and invokes a callback with the reloaded config.
type Watcher struct {
	path     string
	onReload ReloadFunc
	lookup   func(keys ...string) (string, bool)
	sched    *pantry.Scheduler

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}
	reloads int
}

// New returns a watcher for path. A nil clk uses the wall clock.
func New(path string, clk clock.Clock, onReload ReloadFunc) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("watcher: empty config path")
	}
	if onReload == nil {
		return nil, errors.New("watcher: nil reload callback")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watcher: resolve %s: %w", path, err)
	}
	return &Watcher{
		path:     abs,
		onReload: onReload,
		lookup:   config.LookupEnv,
		sched:    pantry.NewScheduler(clk, DefaultSettle),
	}, nil
}

// Start begins watching. The parent directory is watched so that atomic
// rename-on-save editors keep triggering reloads.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	if err = fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watcher: watch %s: %w", filepath.Dir(w.path), err)
	}
	w.fsw = fsw
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go w.loop(fsw, w.stop, w.done)
	log.Infof("watching config file %s", w.path)
	return nil
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debugf("config file event: %s", event)
			w.sched.Schedule(func() {
				if errReload := w.Reload(); errReload != nil {
					log.Errorf("config reload failed: %v", errReload)
				}
			})
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Errorf("config watcher error: %v", err)
		case <-stop:
			return
		}
	}
}

// Reload parses the file now and hands the result to the callback.
// A file that fails to parse leaves the running configuration untouched.
func (w *Watcher) Reload() error {
	cfg, err := config.LoadConfig(w.path)
	if err != nil {
		return err
	}
	config.ApplyEnvOverrides(cfg, w.lookup)

	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()

	log.Info("configuration reloaded")
	w.onReload(cfg)
	return nil
}

// Reloads returns the number of successful reloads.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Stop ends watching and discards a pending reload.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw, stop, done := w.fsw, w.stop, w.done
	w.fsw = nil
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	close(stop)
	_ = fsw.Close()
	<-done
	w.sched.Cancel()
}
