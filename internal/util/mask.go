// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// HideAPIKey obscures an API key or token for logging purposes, keeping only the edges.
func HideAPIKey(apiKey string) string {
	if len(apiKey) > 8 {
		return apiKey[:4] + "..." + apiKey[len(apiKey)-4:]
	} else if len(apiKey) > 4 {
		return apiKey[:2] + "..." + apiKey[len(apiKey)-2:]
	} else if len(apiKey) > 2 {
		return apiKey[:1] + "..." + apiKey[len(apiKey)-1:]
	}
	return apiKey
}

// MaskAuthorizationHeader masks the credential part of an Authorization header value
// while preserving the scheme prefix ("Bearer ", "Basic ", ...).
func MaskAuthorizationHeader(value string) string {
	parts := strings.SplitN(strings.TrimSpace(value), " ", 2)
	if len(parts) < 2 {
		return HideAPIKey(value)
	}
	return parts[0] + " " + HideAPIKey(parts[1])
}

// SetLogLevel switches the global logrus level between debug and info.
func SetLogLevel(debug bool) {
	current := log.GetLevel()
	next := log.InfoLevel
	if debug {
		next = log.DebugLevel
	}
	if current != next {
		log.SetLevel(next)
		log.Infof("log level changed from %s to %s", current, next)
	}
}
