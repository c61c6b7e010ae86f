// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
)

func TestSecureWrite_SuccessfulWrite(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "test.txt")

	t.Setenv("GELADEIRA_STATE_DIR", tempDir)
	t.Setenv("GELADEIRA_READONLY", "")

	sb, err := NewStateBox()
	if err != nil {
		t.Fatalf("NewStateBox() failed: %v", err)
	}

	testData := []byte("test content")
	if err := SecureWrite(sb, testFile, testData, 0); err != nil {
		t.Fatalf("SecureWrite() failed: %v", err)
	}

	content, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != string(testData) {
		t.Errorf("Expected content %s, got %s", testData, content)
	}

	info, err := os.Stat(testFile)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected default permissions 0600, got %o", info.Mode().Perm())
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("Failed to read directory: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != "test.txt" {
			t.Errorf("Unexpected file in directory: %s", entry.Name())
		}
	}
}

func TestSecureWrite_ReadOnlyMode(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "test.txt")

	t.Setenv("GELADEIRA_STATE_DIR", tempDir)
	t.Setenv("GELADEIRA_READONLY", "1")

	sb, err := NewStateBox()
	if err != nil {
		t.Fatalf("NewStateBox() failed: %v", err)
	}

	err = SecureWrite(sb, testFile, []byte("nope"), 0)
	if !errors.Is(err, ErrReadOnlyMode) {
		t.Fatalf("Expected ErrReadOnlyMode, got %v", err)
	}
	if _, statErr := os.Stat(testFile); !os.IsNotExist(statErr) {
		t.Error("File should not exist after a read-only write")
	}
}

func TestSecureWrite_OverwritesExisting(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "nested", "record.json")

	if err := SecureWrite(nil, testFile, []byte("first"), 0); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := SecureWrite(nil, testFile, []byte("second"), 0); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	content, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != "second" {
		t.Errorf("Expected overwritten content, got %s", content)
	}
}

func TestSecureWriteJSON(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "pantry.json")

	in := map[string][]string{"ingredientes": {"ovo", "leite"}}
	if err := SecureWriteJSON(nil, testFile, in); err != nil {
		t.Fatalf("SecureWriteJSON() failed: %v", err)
	}

	data, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	var out map[string][]string
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Failed to decode written JSON: %v", err)
	}
	if got := out["ingredientes"]; len(got) != 2 || got[0] != "ovo" || got[1] != "leite" {
		t.Errorf("Unexpected decoded content: %v", got)
	}
}
