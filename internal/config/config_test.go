// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Host != "" {
		t.Errorf("Host should be empty by default (bind all), got: %s", cfg.Host)
	}
	if cfg.Sync.Debounce() != 300*time.Millisecond {
		t.Errorf("Expected 300ms debounce, got %v", cfg.Sync.Debounce())
	}
	if !cfg.Sync.FlushOnClose {
		t.Error("FlushOnClose should default to true")
	}
	if cfg.Store.Type != "file" {
		t.Errorf("Expected file store by default, got %q", cfg.Store.Type)
	}
	if cfg.LLM.Model != "gpt-4o-mini" || cfg.LLM.MaxTokens != 300 {
		t.Errorf("Unexpected LLM defaults: %+v", cfg.LLM)
	}
	if cfg.Navigation.RecipesPath != "/receitas" {
		t.Errorf("Unexpected recipes path: %s", cfg.Navigation.RecipesPath)
	}
	if cfg.Voice.BaseURL != cfg.LLM.BaseURL {
		t.Errorf("Voice base URL should fall back to the LLM base URL, got %q", cfg.Voice.BaseURL)
	}
}

func TestLoadConfig_ExplicitValues(t *testing.T) {
	path := writeConfig(t, `
port: 9090
debug: true
sync:
  debounce-ms: 50
  flush-on-close: false
store:
  type: SQLite
  sqlite:
    path: /tmp/x.db
llm:
  base-url: http://localhost:11434/v1/
  model: llama3
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Port != 9090 || !cfg.Debug {
		t.Errorf("Unexpected server settings: port=%d debug=%v", cfg.Port, cfg.Debug)
	}
	if cfg.Sync.DebounceMs != 50 || cfg.Sync.FlushOnClose {
		t.Errorf("Unexpected sync settings: %+v", cfg.Sync)
	}
	if cfg.Store.Type != "sqlite" {
		t.Errorf("Store type should be normalized, got %q", cfg.Store.Type)
	}
	if cfg.LLM.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("Trailing slash should be trimmed, got %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.MaxTokens != 300 {
		t.Errorf("Unset max-tokens should keep default, got %d", cfg.LLM.MaxTokens)
	}
}

func TestLoadConfig_HashesPlaintextTokens(t *testing.T) {
	path := writeConfig(t, `# users allowed to persist pantries
auth:
  users:
    - id: ana
      token: secret-token-1
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if len(cfg.Auth.Users) != 1 {
		t.Fatalf("Expected 1 user, got %d", len(cfg.Auth.Users))
	}
	hashed := cfg.Auth.Users[0].Token
	if !looksLikeBcrypt(hashed) {
		t.Fatalf("Token should be hashed, got %q", hashed)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte("secret-token-1")); err != nil {
		t.Errorf("Hashed token does not match plaintext: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to re-read config: %v", err)
	}
	if strings.Contains(string(data), "secret-token-1") {
		t.Error("Plaintext token should have been replaced on disk")
	}
	if !strings.Contains(string(data), "# users allowed to persist pantries") {
		t.Error("Comments should be preserved when persisting hashed tokens")
	}

	again, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if again.Auth.Users[0].Token != hashed {
		t.Error("An already hashed token must not be re-hashed")
	}
}

func TestLoadConfigOptional_Missing(t *testing.T) {
	cfg, err := LoadConfigOptional(filepath.Join(t.TempDir(), "missing.yaml"), true)
	if err != nil {
		t.Fatalf("Optional load should not fail: %v", err)
	}
	if cfg.Sync.DebounceMs != 300 {
		t.Errorf("Missing optional config should yield defaults, got %+v", cfg.Sync)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Non-optional load of a missing file should fail")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "port: [unterminated")); err == nil {
		t.Error("Expected a parse error")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"OBJECTSTORE_ENDPOINT": "http://minio:9000",
		"OBJECTSTORE_BUCKET":   "pantries",
		"SQLITESTORE_PATH":     "/data/pantry.db",
		"OPENAI_API_KEY":       "sk-test",
	}
	lookup := func(keys ...string) (string, bool) {
		for _, k := range keys {
			if v, ok := env[k]; ok {
				return v, true
			}
		}
		return "", false
	}

	cfg := Default()
	ApplyEnvOverrides(cfg, lookup)

	if cfg.Store.Type != "object" {
		t.Errorf("Object store should take precedence over sqlite, got %q", cfg.Store.Type)
	}
	if cfg.Store.Object.Endpoint != "http://minio:9000" || cfg.Store.Object.Bucket != "pantries" {
		t.Errorf("Unexpected object settings: %+v", cfg.Store.Object)
	}
	if cfg.Store.SQLite.Path != "/data/pantry.db" {
		t.Errorf("SQLite path should still be recorded, got %q", cfg.Store.SQLite.Path)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("Expected LLM key from OPENAI_API_KEY, got %q", cfg.LLM.APIKey)
	}
}
