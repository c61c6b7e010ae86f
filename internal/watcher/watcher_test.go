// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/minhageladeira/geladeira/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reloadRecorder struct {
	mu   sync.Mutex
	cfgs []*config.Config
}

func (r *reloadRecorder) record(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfgs = append(r.cfgs, cfg)
}

func (r *reloadRecorder) last() *config.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.cfgs) == 0 {
		return nil
	}
	return r.cfgs[len(r.cfgs)-1]
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", nil, func(*config.Config) {})
	assert.Error(t, err)
	_, err = New("config.yaml", nil, nil)
	assert.Error(t, err)
}

func TestReload_AppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "sync:\n  debounce-ms: 500\n")

	rec := &reloadRecorder{}
	w, err := New(path, nil, rec.record)
	require.NoError(t, err)
	w.lookup = func(keys ...string) (string, bool) {
		if keys[0] == "PGSTORE_DSN" {
			return "postgres://localhost/pantry", true
		}
		return "", false
	}

	require.NoError(t, w.Reload())
	cfg := rec.last()
	require.NotNil(t, cfg)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.Debounce())
	assert.Equal(t, "postgres", cfg.Store.Type)
	assert.Equal(t, 1, w.Reloads())
}

func TestReload_InvalidFileKeepsRunningConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "sync: [unterminated\n")

	rec := &reloadRecorder{}
	w, err := New(path, nil, rec.record)
	require.NoError(t, err)

	assert.Error(t, w.Reload())
	assert.Nil(t, rec.last())
	assert.Equal(t, 0, w.Reloads())
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "port: 8080\n")

	rec := &reloadRecorder{}
	w, err := New(path, nil, rec.record)
	require.NoError(t, err)
	w.lookup = func(...string) (string, bool) { return "", false }
	require.NoError(t, w.Start())
	defer w.Stop()

	writeFile(t, path, "port: 9090\n")

	require.Eventually(t, func() bool {
		cfg := rec.last()
		return cfg != nil && cfg.Port == 9090
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "port: 8080\n")

	rec := &reloadRecorder{}
	w, err := New(path, nil, rec.record)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	writeFile(t, filepath.Join(dir, "other.yaml"), "port: 1\n")
	time.Sleep(3 * DefaultSettle)
	assert.Equal(t, 0, w.Reloads())
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "")

	w, err := New(path, nil, func(*config.Config) {})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	require.NoError(t, w.Start())
	w.Stop()
	w.Stop()
}
