// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFormatter_Format(t *testing.T) {
	entry := &log.Entry{
		Time:    time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		Level:   log.WarnLevel,
		Message: "store write failed\n",
		Data: log.Fields{
			"request_id": "abcd1234",
			"user":       "ana",
			"items":      3,
		},
	}

	out, err := (&LogFormatter{}).Format(entry)
	require.NoError(t, err)

	assert.Equal(t, "[2026-01-02 15:04:05] [abcd1234] [warn ] store write failed | items=3, user=ana\n", string(out))
}

func TestLogFormatter_NoRequestID(t *testing.T) {
	entry := &log.Entry{
		Time:    time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		Level:   log.InfoLevel,
		Message: "hydrated",
		Data:    log.Fields{},
	}

	out, err := (&LogFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-01-02 15:04:05] [--------] [info ] hydrated\n", string(out))
}

func TestGinLogrusLogger_AssignsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinLogrusLogger())

	var seen string
	router.GET("/ping", func(c *gin.Context) {
		seen = RequestID(c)
		c.String(http.StatusOK, "pong")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, seen, 8)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	router.ServeHTTP(w, req)
	assert.Equal(t, "upstream-id", seen)
}

func TestEnforceLogDirSizeLimit(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	files := []string{"old.log", "mid.log", DefaultFileName}
	for i, name := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 100)), 0600))
		mod := now.Add(time.Duration(i-len(files)) * time.Hour)
		require.NoError(t, os.Chtimes(path, mod, mod))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(strings.Repeat("y", 1000)), 0600))

	removed, err := enforceLogDirSizeLimit(dir, 150, filepath.Join(dir, DefaultFileName))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = os.Stat(filepath.Join(dir, DefaultFileName))
	assert.NoError(t, err, "active log must be protected")
	_, err = os.Stat(filepath.Join(dir, "old.log"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err, "non-log files are ignored")
}

func TestLogFormatter_SessionKeyWithoutRequest(t *testing.T) {
	entry := &log.Entry{
		Time:    time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		Level:   log.DebugLevel,
		Message: "pantry: wrote 2 ingredient(s)",
		Data:    log.Fields{"session": "user:ana"},
	}

	out, err := (&LogFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-01-02 15:04:05] [user:ana] [debug] pantry: wrote 2 ingredient(s)\n", string(out))
}

func TestLogFormatter_RequestIDWinsOverSession(t *testing.T) {
	entry := &log.Entry{
		Time:    time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		Level:   log.InfoLevel,
		Message: "added",
		Data:    log.Fields{"request_id": "abcd1234", "session": "anon:tab-1"},
	}

	out, err := (&LogFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-01-02 15:04:05] [abcd1234] [info ] added | session=anon:tab-1\n", string(out))
}

func TestConfigureLogOutput_ToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, ConfigureLogOutput(Options{Dir: dir, ToFile: true}))
	t.Cleanup(func() { _ = ConfigureLogOutput(Options{}) })

	log.Info("written to the rotating file")

	data, err := os.ReadFile(filepath.Join(dir, DefaultFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to the rotating file")
}
