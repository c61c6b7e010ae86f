// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package identity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// RemoteResolver validates tokens against a hosted user-info endpoint
// (for example a Supabase /auth/v1/user route) and reads the user id from the response.
type RemoteResolver struct {
	url    string
	apiKey string
	client *http.Client
}

// NewRemoteResolver returns a resolver calling url. base supplies the transport (may be nil).
func NewRemoteResolver(url, apiKey string, base *http.Client) *RemoteResolver {
	if base == nil {
		base = http.DefaultClient
	}
	return &RemoteResolver{url: strings.TrimSpace(url), apiKey: apiKey, client: base}
}

func (r *RemoteResolver) Resolve(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" || r.url == "" {
		return Identity{}, ErrInvalidCredentials
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("identity: build user request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("apikey", r.apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("identity: user request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Identity{}, ErrInvalidCredentials
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return Identity{}, fmt.Errorf("identity: user endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Identity{}, fmt.Errorf("identity: read user response: %w", err)
	}
	for _, path := range []string{"id", "sub", "user.id"} {
		if id := strings.TrimSpace(gjson.GetBytes(body, path).String()); id != "" {
			return Identity{UserID: id}, nil
		}
	}
	return Identity{}, ErrInvalidCredentials
}
