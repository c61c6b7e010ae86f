// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/minhageladeira/geladeira/internal/logging"
	"github.com/tidwall/gjson"
)

const maxPromptBodyBytes = 1 << 20

// llmProxyHandler forwards {"prompt": "..."} upstream and returns the upstream body verbatim.
func (s *Server) llmProxyHandler(c *gin.Context) {
	code := http.StatusOK
	defer func() { s.metrics.ProxyRequest(code) }()

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPromptBodyBytes))
	if err != nil {
		code = http.StatusInternalServerError
		logging.FromGin(c).Errorf("llm proxy: read request: %v", err)
		c.JSON(code, gin.H{"error": "internal error"})
		return
	}

	prompt := promptFrom(body)
	if prompt == "" {
		code = http.StatusBadRequest
		c.JSON(code, gin.H{"error": "prompt missing"})
		return
	}
	if s.llm == nil {
		code = http.StatusInternalServerError
		logging.FromGin(c).Error("llm proxy: no upstream configured")
		c.JSON(code, gin.H{"error": "internal error"})
		return
	}

	out, err := s.llm.Complete(c.Request.Context(), prompt)
	if err != nil {
		code = http.StatusInternalServerError
		logging.FromGin(c).Errorf("llm proxy: %v", err)
		c.JSON(code, gin.H{"error": "internal error"})
		return
	}
	c.Data(code, "application/json; charset=utf-8", out)
}

// promptFrom extracts a usable prompt. Missing, null, false, 0 and "" count as absent;
// non-string values are forwarded in their JSON form.
func promptFrom(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	v := gjson.GetBytes(body, "prompt")
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number:
		if v.Num == 0 {
			return ""
		}
		return v.Raw
	case gjson.True, gjson.JSON:
		return v.Raw
	default:
		return ""
	}
}
