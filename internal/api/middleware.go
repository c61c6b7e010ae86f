// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minhageladeira/geladeira/internal/identity"
	"github.com/minhageladeira/geladeira/internal/logging"
)

const (
	sessionHeader = "X-Pantry-Session"
	sessionCookie = "pantry_session"
	identityKey   = "identity"

	sessionCookieMaxAge = 365 * 24 * 60 * 60
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// IdentityMiddleware resolves the caller. A valid bearer token yields an authenticated
// identity; anything else falls back to an anonymous identity bound to a browser session
// id taken from the X-Pantry-Session header or the pantry_session cookie.
func IdentityMiddleware(resolver identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := browserSessionID(c)
		id := identity.Anonymous(sessionID)

		if token := identity.BearerToken(c.Request); token != "" && resolver != nil {
			resolved, err := resolver.Resolve(c.Request.Context(), token)
			switch {
			case err == nil:
				resolved.SessionID = sessionID
				id = resolved
			case errors.Is(err, identity.ErrInvalidCredentials):
				logging.FromGin(c).Debug("identity: invalid bearer token, continuing anonymously")
			default:
				logging.FromGin(c).Warnf("identity: token resolution failed, continuing anonymously: %v", err)
			}
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

func browserSessionID(c *gin.Context) string {
	if v := c.GetHeader(sessionHeader); sessionIDPattern.MatchString(v) {
		return v
	}
	if v, err := c.Cookie(sessionCookie); err == nil && sessionIDPattern.MatchString(v) {
		return v
	}
	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, sessionCookieMaxAge, "/", "", false, true)
	c.Header(sessionHeader, id)
	return id
}

// identityFrom returns the identity stored by IdentityMiddleware.
func identityFrom(c *gin.Context) identity.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, okID := v.(identity.Identity); okID {
			return id
		}
	}
	return identity.Anonymous(c.GetHeader(sessionHeader))
}
