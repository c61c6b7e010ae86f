// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pantry

import "strings"

// Normalize trims surrounding whitespace and lowercases s.
// Membership checks and storage always use the normalized form.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
