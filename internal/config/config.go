// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the geladeira server.
// It handles loading and parsing YAML configuration files, and provides structured
// access to server, synchronization, storage, identity, language-model and voice settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDebounceMs     = 300
	DefaultWriteTimeoutMs = 10000
	DefaultIdleTimeoutS   = 1800
	DefaultLLMBaseURL     = "https://api.openai.com/v1"
	DefaultLLMModel       = "gpt-4o-mini"
	DefaultLLMMaxTokens   = 300
	DefaultRecipesPath    = "/receitas"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Host is the network host/interface on which the API server will bind.
	// Default is empty ("") to bind all interfaces.
	Host string `yaml:"host" json:"-"`
	// Port is the network port on which the API server will listen.
	Port int `yaml:"port" json:"-"`

	// Debug enables debug-level logging and gin debug mode.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile controls whether application logs are written to rotating files or stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// LogsMaxTotalSizeMB limits the total size (in MB) of log files under the logs directory.
	// When exceeded, the oldest log files are deleted until within the limit. Set to 0 to disable.
	LogsMaxTotalSizeMB int `yaml:"logs-max-total-size-mb" json:"logs-max-total-size-mb"`

	// StatusAllowRemote exposes /api/status to non-localhost clients.
	StatusAllowRemote bool `yaml:"status-allow-remote" json:"status-allow-remote"`

	Sync       SyncConfig       `yaml:"sync" json:"sync"`
	Store      StoreConfig      `yaml:"store" json:"store"`
	Auth       AuthConfig       `yaml:"auth" json:"-"`
	LLM        LLMConfig        `yaml:"llm" json:"llm"`
	Voice      VoiceConfig      `yaml:"voice" json:"voice"`
	Navigation NavigationConfig `yaml:"navigation" json:"navigation"`
}

// SyncConfig controls the debounced persistence of ingredient lists.
type SyncConfig struct {
	// DebounceMs is the quiet interval after the last mutation before a write fires.
	DebounceMs int `yaml:"debounce-ms" json:"debounce-ms"`
	// FlushOnClose writes a dirty list synchronously when its session is torn down.
	// When false the pending write is dropped.
	FlushOnClose bool `yaml:"flush-on-close" json:"flush-on-close"`
	// WriteTimeoutMs bounds a single store write.
	WriteTimeoutMs int `yaml:"write-timeout-ms" json:"write-timeout-ms"`
	// IdleTimeoutS tears down sessions with no activity for this long. 0 disables reaping.
	IdleTimeoutS int `yaml:"idle-timeout-s" json:"idle-timeout-s"`
}

// Debounce returns the debounce interval as a duration.
func (s SyncConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMs) * time.Millisecond
}

// WriteTimeout returns the per-write timeout as a duration.
func (s SyncConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutMs) * time.Millisecond
}

// IdleTimeout returns the session idle timeout as a duration.
func (s SyncConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutS) * time.Second
}

// StoreConfig selects and configures the remote store backend.
type StoreConfig struct {
	// Type is one of: file, sqlite, postgres, object, rest, memory.
	Type     string              `yaml:"type" json:"type"`
	SQLite   SQLiteStoreConfig   `yaml:"sqlite" json:"sqlite"`
	Postgres PostgresStoreConfig `yaml:"postgres" json:"-"`
	Object   ObjectStoreConfig   `yaml:"object" json:"-"`
	REST     RESTStoreConfig     `yaml:"rest" json:"-"`
}

// SQLiteStoreConfig configures the SQLite backend.
type SQLiteStoreConfig struct {
	// Path of the database file; relative paths resolve under the state directory.
	Path  string `yaml:"path" json:"path"`
	Table string `yaml:"table" json:"table"`
}

// PostgresStoreConfig configures the Postgres backend.
type PostgresStoreConfig struct {
	DSN    string `yaml:"dsn"`
	Schema string `yaml:"schema"`
	Table  string `yaml:"table"`
}

// ObjectStoreConfig configures the S3-compatible object backend.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access-key"`
	SecretKey string `yaml:"secret-key"`
	Prefix    string `yaml:"prefix"`
}

// RESTStoreConfig configures a PostgREST-style managed backend.
type RESTStoreConfig struct {
	// URL is the REST root, e.g. https://project.supabase.co/rest/v1.
	URL   string `yaml:"url"`
	Key   string `yaml:"key"`
	Table string `yaml:"table"`
}

// AuthConfig configures identity resolution.
type AuthConfig struct {
	// Users maps bearer tokens to user identifiers. Tokens are stored bcrypt hashed;
	// plaintext tokens are hashed on load and written back to the config file.
	Users []UserToken `yaml:"users"`
	// RemoteURL is a user-info endpoint that returns {"id": ...} for a valid bearer token.
	RemoteURL string `yaml:"remote-url"`
	// RemoteAPIKey is sent as the "apikey" header to RemoteURL when set.
	RemoteAPIKey string `yaml:"remote-api-key"`
}

// UserToken binds a bearer token to a user identifier.
type UserToken struct {
	ID    string `yaml:"id"`
	Token string `yaml:"token"`
}

// LLMConfig configures the upstream language-model API used by the prompt proxy.
type LLMConfig struct {
	BaseURL   string `yaml:"base-url" json:"base-url"`
	APIKey    string `yaml:"api-key" json:"-"`
	Model     string `yaml:"model" json:"model"`
	MaxTokens int    `yaml:"max-tokens" json:"max-tokens"`
	TimeoutS  int    `yaml:"timeout-s" json:"timeout-s"`
	// ProxyURL routes upstream traffic through an http(s) or socks5 proxy.
	ProxyURL string `yaml:"proxy-url" json:"-"`
}

// Timeout returns the upstream timeout as a duration.
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutS) * time.Second
}

// VoiceConfig configures server-side speech recognition.
type VoiceConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// BaseURL and APIKey default to the LLM settings when empty.
	BaseURL  string `yaml:"base-url" json:"base-url"`
	APIKey   string `yaml:"api-key" json:"-"`
	Model    string `yaml:"model" json:"model"`
	Language string `yaml:"language" json:"language"`
}

// NavigationConfig configures links into the recipe view.
type NavigationConfig struct {
	RecipesPath string `yaml:"recipes-path" json:"recipes-path"`
}

// LoadConfig reads and parses the YAML configuration at configFile.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads YAML from configFile.
// If optional is true and the file is missing, it returns a Config holding only defaults.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configFile)
	if err != nil {
		if optional && (os.IsNotExist(err) || errors.Is(err, syscall.EISDIR)) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if len(bytes.TrimSpace(data)) > 0 {
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	hashedAny := false
	for i := range cfg.Auth.Users {
		u := &cfg.Auth.Users[i]
		u.ID = strings.TrimSpace(u.ID)
		u.Token = strings.TrimSpace(u.Token)
		if u.Token == "" || looksLikeBcrypt(u.Token) {
			continue
		}
		hashed, errHash := hashSecret(u.Token)
		if errHash != nil {
			return nil, fmt.Errorf("failed to hash token for user %q: %w", u.ID, errHash)
		}
		u.Token = hashed
		hashedAny = true
	}
	if hashedAny {
		// Persist hashed tokens so plaintext does not linger on disk.
		_ = saveUserTokens(configFile, cfg.Auth.Users)
	}

	cfg.sanitize()
	return cfg, nil
}

// Default returns a Config populated with defaults only.
func Default() *Config {
	cfg := &Config{}
	cfg.Port = 8080
	cfg.Sync.DebounceMs = DefaultDebounceMs
	cfg.Sync.FlushOnClose = true
	cfg.Sync.WriteTimeoutMs = DefaultWriteTimeoutMs
	cfg.Sync.IdleTimeoutS = DefaultIdleTimeoutS
	cfg.Store.Type = "file"
	cfg.Store.SQLite.Path = "pantry.db"
	cfg.Store.SQLite.Table = "geladeiras"
	cfg.Store.Postgres.Table = "geladeiras"
	cfg.Store.REST.Table = "geladeiras"
	cfg.Store.Object.Prefix = "pantries"
	cfg.LLM.BaseURL = DefaultLLMBaseURL
	cfg.LLM.Model = DefaultLLMModel
	cfg.LLM.MaxTokens = DefaultLLMMaxTokens
	cfg.LLM.TimeoutS = 60
	cfg.Voice.Model = "whisper-1"
	cfg.Voice.Language = "pt"
	cfg.Navigation.RecipesPath = DefaultRecipesPath
	return cfg
}

func (cfg *Config) sanitize() {
	if cfg.LogsMaxTotalSizeMB < 0 {
		cfg.LogsMaxTotalSizeMB = 0
	}
	if cfg.Sync.DebounceMs <= 0 {
		cfg.Sync.DebounceMs = DefaultDebounceMs
	}
	if cfg.Sync.WriteTimeoutMs <= 0 {
		cfg.Sync.WriteTimeoutMs = DefaultWriteTimeoutMs
	}
	if cfg.Sync.IdleTimeoutS < 0 {
		cfg.Sync.IdleTimeoutS = 0
	}
	cfg.Store.Type = strings.ToLower(strings.TrimSpace(cfg.Store.Type))
	if cfg.Store.Type == "" {
		cfg.Store.Type = "file"
	}
	cfg.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.LLM.BaseURL), "/")
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = DefaultLLMBaseURL
	}
	if strings.TrimSpace(cfg.LLM.Model) == "" {
		cfg.LLM.Model = DefaultLLMModel
	}
	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = DefaultLLMMaxTokens
	}
	if cfg.LLM.TimeoutS <= 0 {
		cfg.LLM.TimeoutS = 60
	}
	if cfg.Voice.BaseURL == "" {
		cfg.Voice.BaseURL = cfg.LLM.BaseURL
	}
	cfg.Voice.BaseURL = strings.TrimRight(cfg.Voice.BaseURL, "/")
	if cfg.Navigation.RecipesPath == "" {
		cfg.Navigation.RecipesPath = DefaultRecipesPath
	}
}

// VoiceAPIKey returns the key for the speech endpoint, falling back to the LLM key.
func (cfg *Config) VoiceAPIKey() string {
	if cfg.Voice.APIKey != "" {
		return cfg.Voice.APIKey
	}
	return cfg.LLM.APIKey
}

func looksLikeBcrypt(s string) bool {
	return len(s) > 4 && (s[:4] == "$2a$" || s[:4] == "$2b$" || s[:4] == "$2y$")
}

func hashSecret(secret string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// saveUserTokens rewrites auth.users[*].token in place, preserving comments and key order.
func saveUserTokens(configFile string, users []UserToken) error {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}
	var root yaml.Node
	if err = yaml.Unmarshal(data, &root); err != nil {
		return err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return fmt.Errorf("invalid yaml document structure")
	}
	auth := mapValue(root.Content[0], "auth")
	if auth == nil {
		return fmt.Errorf("auth section not found")
	}
	seq := mapValue(auth, "users")
	if seq == nil || seq.Kind != yaml.SequenceNode {
		return fmt.Errorf("auth.users is not a sequence")
	}
	for i, item := range seq.Content {
		if i >= len(users) || item.Kind != yaml.MappingNode {
			continue
		}
		if v := mapValue(item, "token"); v != nil {
			v.Kind = yaml.ScalarNode
			v.Tag = "!!str"
			v.Value = users[i].Token
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err = enc.Encode(&root); err != nil {
		_ = enc.Close()
		return err
	}
	if err = enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(configFile, buf.Bytes(), 0600)
}

func mapValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
