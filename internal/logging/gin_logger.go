// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// GinLogrusLogger assigns every request a short request id and logs one line per
// completed request through logrus.
func GinLogrusLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if reqID == "" || len(reqID) > 64 {
			reqID = uuid.New().String()[:8]
		}
		c.Set(requestIDKey, reqID)
		c.Header(requestIDHeader, reqID)

		c.Next()

		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}
		status := c.Writer.Status()
		entry := log.WithField(requestIDKey, reqID)
		msg := "%3d | %13v | %15s | %-7s %s"
		args := []any{status, time.Since(start), c.ClientIP(), c.Request.Method, path}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			entry = entry.WithField("errors", strings.TrimSpace(errs))
		}
		switch {
		case status >= http.StatusInternalServerError:
			entry.Errorf(msg, args...)
		case status >= http.StatusBadRequest:
			entry.Warnf(msg, args...)
		default:
			entry.Infof(msg, args...)
		}
	}
}

// RequestID returns the id assigned to the request, or "" outside a logged request.
func RequestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if v, ok := c.Get(requestIDKey); ok {
		if s, okStr := v.(string); okStr {
			return s
		}
	}
	return ""
}

// FromGin returns a logrus entry tagged with the request id of c.
func FromGin(c *gin.Context) *log.Entry {
	return log.WithField(requestIDKey, RequestID(c))
}
