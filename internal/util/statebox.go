// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package util provides utility functions for the geladeira server.
package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// StateBox manages the canonical state directory for geladeira.
// It provides centralized path resolution for all mutable application data:
// file-backed pantry records, the SQLite database and rotated logs.
type StateBox struct {
	rootPath string
	readOnly bool
	mu       sync.RWMutex
}

// NewStateBox creates a new StateBox instance.
// It reads GELADEIRA_STATE_DIR and GELADEIRA_READONLY from environment variables.
// If GELADEIRA_STATE_DIR is not set, it defaults to ~/.geladeira.
// If GELADEIRA_READONLY is set to "1", the StateBox operates in read-only mode.
func NewStateBox() (*StateBox, error) {
	stateDir := os.Getenv("GELADEIRA_STATE_DIR")
	if stateDir == "" {
		stateDir = "~/.geladeira"
	}

	resolvedPath, err := ExpandPath(stateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve state directory: %w", err)
	}

	return &StateBox{
		rootPath: resolvedPath,
		readOnly: os.Getenv("GELADEIRA_READONLY") == "1",
	}, nil
}

// ExpandPath expands a leading tilde to the user's home directory and cleans the result.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("path is empty")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Clean(path), nil
}

// RootPath returns the resolved State Box root directory.
func (sb *StateBox) RootPath() string {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.rootPath
}

// IsReadOnly returns whether the State Box is in read-only mode.
func (sb *StateBox) IsReadOnly() bool {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.readOnly
}

// PantriesDir returns the path to the directory holding file-backed pantry records.
func (sb *StateBox) PantriesDir() string {
	return filepath.Join(sb.RootPath(), "pantries")
}

// LogsDir returns the path to the rotated log directory.
func (sb *StateBox) LogsDir() string {
	return filepath.Join(sb.RootPath(), "logs")
}

// PantryPath returns the record path for a user.
// The user identifier is hashed so arbitrary identifiers never escape the pantries directory.
func (sb *StateBox) PantryPath(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return filepath.Join(sb.PantriesDir(), hex.EncodeToString(sum[:])+".json")
}

// ResolvePath joins a relative path with the State Box root.
// If the path is already absolute or starts with tilde, it is returned as-is after cleaning.
func (sb *StateBox) ResolvePath(relativePath string) string {
	if relativePath == "" {
		return sb.RootPath()
	}

	if strings.HasPrefix(relativePath, "~") || filepath.IsAbs(relativePath) {
		cleaned, err := ExpandPath(relativePath)
		if err != nil {
			return filepath.Clean(relativePath)
		}
		return cleaned
	}

	return filepath.Join(sb.RootPath(), relativePath)
}

// EnsureDir creates a directory with secure permissions (0700) if it doesn't exist.
func (sb *StateBox) EnsureDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("path exists but is not a directory: %s", path)
		}
		return nil
	}

	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat directory %s: %w", path, err)
	}

	if sb.IsReadOnly() {
		return ErrReadOnlyMode
	}

	if err := os.MkdirAll(path, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	return nil
}
