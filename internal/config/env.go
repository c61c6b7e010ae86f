// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"strings"
)

// LookupEnv returns the first non-empty trimmed value among keys.
func LookupEnv(keys ...string) (string, bool) {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed, true
			}
		}
	}
	return "", false
}

// ApplyEnvOverrides lets deployment environments select and configure the store backend
// and supply secrets without editing the YAML file. Precedence among backends follows
// postgres, object, rest, sqlite.
func ApplyEnvOverrides(cfg *Config, lookup func(keys ...string) (string, bool)) {
	if cfg == nil {
		return
	}
	if lookup == nil {
		lookup = LookupEnv
	}

	selected := ""
	if value, ok := lookup("PGSTORE_DSN", "pgstore_dsn"); ok {
		selected = "postgres"
		cfg.Store.Postgres.DSN = value
	}
	if value, ok := lookup("PGSTORE_SCHEMA", "pgstore_schema"); ok {
		cfg.Store.Postgres.Schema = value
	}
	if value, ok := lookup("OBJECTSTORE_ENDPOINT", "objectstore_endpoint"); ok {
		if selected == "" {
			selected = "object"
		}
		cfg.Store.Object.Endpoint = value
	}
	if value, ok := lookup("OBJECTSTORE_ACCESS_KEY", "objectstore_access_key"); ok {
		cfg.Store.Object.AccessKey = value
	}
	if value, ok := lookup("OBJECTSTORE_SECRET_KEY", "objectstore_secret_key"); ok {
		cfg.Store.Object.SecretKey = value
	}
	if value, ok := lookup("OBJECTSTORE_BUCKET", "objectstore_bucket"); ok {
		cfg.Store.Object.Bucket = value
	}
	if value, ok := lookup("RESTSTORE_URL", "reststore_url"); ok {
		if selected == "" {
			selected = "rest"
		}
		cfg.Store.REST.URL = value
	}
	if value, ok := lookup("RESTSTORE_KEY", "reststore_key"); ok {
		cfg.Store.REST.Key = value
	}
	if value, ok := lookup("SQLITESTORE_PATH", "sqlitestore_path"); ok {
		if selected == "" {
			selected = "sqlite"
		}
		cfg.Store.SQLite.Path = value
	}
	if selected != "" {
		cfg.Store.Type = selected
	}

	if value, ok := lookup("LLM_API_KEY", "OPENAI_API_KEY"); ok {
		cfg.LLM.APIKey = value
	}
	if value, ok := lookup("LLM_BASE_URL"); ok {
		cfg.LLM.BaseURL = strings.TrimRight(value, "/")
	}
}
