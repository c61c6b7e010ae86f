// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const maxRESTErrorBody = 512

// RESTStoreConfig configures the PostgREST-compatible backend.
type RESTStoreConfig struct {
	// URL is the REST root, e.g. https://project.supabase.co/rest/v1.
	URL   string
	Key   string
	Table string
}

// RESTStore talks to a managed PostgREST endpoint (Supabase style) exposing the pantry table.
type RESTStore struct {
	cfg    RESTStoreConfig
	client *http.Client
}

// NewRESTStore validates cfg and returns a store using client (or a default client).
func NewRESTStore(cfg RESTStoreConfig, client *http.Client) (*RESTStore, error) {
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if cfg.URL == "" {
		return nil, fmt.Errorf("rest store: url is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("rest store: parse url: %w", err)
	}
	if strings.TrimSpace(cfg.Table) == "" {
		cfg.Table = defaultTable
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RESTStore{cfg: cfg, client: client}, nil
}

func (s *RESTStore) tableURL(query url.Values) string {
	return s.cfg.URL + "/" + url.PathEscape(s.cfg.Table) + "?" + query.Encode()
}

func (s *RESTStore) applyHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if s.cfg.Key != "" {
		req.Header.Set("apikey", s.cfg.Key)
		req.Header.Set("Authorization", "Bearer "+s.cfg.Key)
	}
}

func (s *RESTStore) Get(ctx context.Context, userID string) ([]string, bool, error) {
	if err := checkUserID(userID); err != nil {
		return nil, false, err
	}
	query := url.Values{}
	query.Set("select", "ingredientes")
	query.Set("user_id", "eq."+userID)
	query.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.tableURL(query), nil)
	if err != nil {
		return nil, false, fmt.Errorf("rest store: build request: %w", err)
	}
	s.applyHeaders(req)

	body, err := s.do(req)
	if err != nil {
		return nil, false, err
	}
	if !gjson.ValidBytes(body) {
		return nil, false, fmt.Errorf("rest store: invalid response body")
	}
	if gjson.GetBytes(body, "#").Int() == 0 {
		return nil, false, nil
	}
	items := []string{}
	gjson.GetBytes(body, "0.ingredientes").ForEach(func(_, value gjson.Result) bool {
		items = append(items, value.String())
		return true
	})
	return items, true, nil
}

func (s *RESTStore) Upsert(ctx context.Context, userID string, ingredients []string) error {
	if err := checkUserID(userID); err != nil {
		return err
	}
	payload := []byte(`{}`)
	var err error
	if payload, err = sjson.SetBytes(payload, "user_id", userID); err != nil {
		return fmt.Errorf("rest store: encode user id: %w", err)
	}
	if payload, err = sjson.SetBytes(payload, "ingredientes", cloneList(ingredients)); err != nil {
		return fmt.Errorf("rest store: encode ingredients: %w", err)
	}
	if payload, err = sjson.SetBytes(payload, "updated_at", time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("rest store: encode timestamp: %w", err)
	}

	query := url.Values{}
	query.Set("on_conflict", "user_id")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tableURL(query), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("rest store: build request: %w", err)
	}
	s.applyHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	_, err = s.do(req)
	return err
}

func (s *RESTStore) do(req *http.Request) ([]byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rest store: %s request failed: %w", req.Method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rest store: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > maxRESTErrorBody {
			snippet = snippet[:maxRESTErrorBody]
		}
		return nil, fmt.Errorf("rest store: %s returned status %d: %s", req.Method, resp.StatusCode, snippet)
	}
	return body, nil
}

func (s *RESTStore) Name() string { return "rest" }

func (s *RESTStore) Close() error { return nil }
