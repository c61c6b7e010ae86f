// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package identity

import (
	"context"
	"crypto/sha256"
	"strings"
	"sync"

	"github.com/minhageladeira/geladeira/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// TokenResolver checks tokens against the bcrypt hashes in auth.users.
// Successful matches are cached by token digest so bcrypt runs once per token.
type TokenResolver struct {
	users []config.UserToken

	mu    sync.RWMutex
	cache map[[32]byte]string
}

// NewTokenResolver builds a resolver for users. Entries without an id or token are ignored.
func NewTokenResolver(users []config.UserToken) *TokenResolver {
	filtered := make([]config.UserToken, 0, len(users))
	for _, u := range users {
		if strings.TrimSpace(u.ID) == "" || strings.TrimSpace(u.Token) == "" {
			continue
		}
		filtered = append(filtered, u)
	}
	return &TokenResolver{users: filtered, cache: make(map[[32]byte]string)}
}

// Len returns the number of configured users.
func (r *TokenResolver) Len() int { return len(r.users) }

func (r *TokenResolver) Resolve(_ context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidCredentials
	}
	digest := sha256.Sum256([]byte(token))

	r.mu.RLock()
	userID, ok := r.cache[digest]
	r.mu.RUnlock()
	if ok {
		return Identity{UserID: userID}, nil
	}

	for _, u := range r.users {
		if bcrypt.CompareHashAndPassword([]byte(u.Token), []byte(token)) == nil {
			r.mu.Lock()
			r.cache[digest] = u.ID
			r.mu.Unlock()
			return Identity{UserID: u.ID}, nil
		}
	}
	return Identity{}, ErrInvalidCredentials
}
