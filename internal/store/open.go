// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/minhageladeira/geladeira/internal/config"
	"github.com/minhageladeira/geladeira/internal/util"
	log "github.com/sirupsen/logrus"
)

// Open builds the backend selected by cfg.Type. httpClient is used by the REST backend.
func Open(ctx context.Context, cfg config.StoreConfig, sb *util.StateBox, httpClient *http.Client) (IngredientStore, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Type))
	switch kind {
	case "", "file":
		return NewFileStore(sb)
	case "memory":
		log.Warn("memory store selected, pantry lists will not survive a restart")
		return NewMemoryStore(), nil
	case "sqlite":
		path := cfg.SQLite.Path
		if sb != nil {
			path = sb.ResolvePath(path)
		}
		return NewSQLiteStore(ctx, path, cfg.SQLite.Table)
	case "postgres":
		return NewPostgresStore(ctx, PostgresStoreConfig{
			DSN:    cfg.Postgres.DSN,
			Schema: cfg.Postgres.Schema,
			Table:  cfg.Postgres.Table,
		})
	case "object":
		endpoint, useSSL, err := ParseObjectEndpoint(cfg.Object.Endpoint)
		if err != nil {
			return nil, err
		}
		return NewObjectStore(ctx, ObjectStoreConfig{
			Endpoint:  endpoint,
			Bucket:    cfg.Object.Bucket,
			AccessKey: cfg.Object.AccessKey,
			SecretKey: cfg.Object.SecretKey,
			Prefix:    cfg.Object.Prefix,
			UseSSL:    useSSL,
			PathStyle: true,
		})
	case "rest":
		return NewRESTStore(RESTStoreConfig{
			URL:   cfg.REST.URL,
			Key:   cfg.REST.Key,
			Table: cfg.REST.Table,
		}, httpClient)
	default:
		return nil, fmt.Errorf("store: unknown type %q", cfg.Type)
	}
}
