// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pantry

import "errors"

var (
	// ErrNotReady is returned for mutations before hydration finished.
	ErrNotReady = errors.New("pantry: session not ready")
	// ErrSessionClosed is returned for mutations after teardown.
	ErrSessionClosed = errors.New("pantry: session closed")
	// ErrManagerClosed is returned by Acquire after the manager shut down.
	ErrManagerClosed = errors.New("pantry: manager closed")
)
