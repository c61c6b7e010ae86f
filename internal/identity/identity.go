// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package identity resolves who a request belongs to.
// An authenticated identity carries a user id and gets a persisted pantry;
// an anonymous identity only carries a browser session id and its pantry lives in memory.
package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrInvalidCredentials means the token was understood but does not belong to any user.
var ErrInvalidCredentials = errors.New("identity: invalid credentials")

// Identity is the caller of a request.
type Identity struct {
	UserID    string
	SessionID string
}

// Anonymous returns an unauthenticated identity bound to a browser session.
func Anonymous(sessionID string) Identity {
	return Identity{SessionID: sessionID}
}

// Authenticated reports whether the identity has a user id.
func (i Identity) Authenticated() bool {
	return strings.TrimSpace(i.UserID) != ""
}

// Key identifies the in-memory session slot for this identity.
// All requests from one user share a session; anonymous callers get one per browser session.
func (i Identity) Key() string {
	if i.Authenticated() {
		return "user:" + i.UserID
	}
	return "anon:" + i.SessionID
}

// Resolver maps a bearer token to an authenticated identity.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

// Chain tries resolvers in order and returns the first success.
// ErrInvalidCredentials from one resolver lets the next one try; any other error stops the chain.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, token string) (Identity, error) {
	for _, r := range c {
		if r == nil {
			continue
		}
		id, err := r.Resolve(ctx, token)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ErrInvalidCredentials) {
			return Identity{}, err
		}
	}
	return Identity{}, ErrInvalidCredentials
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
