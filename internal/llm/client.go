// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package llm forwards single-turn prompts to an OpenAI-compatible chat completions endpoint.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/minhageladeira/geladeira/internal/config"
	"github.com/minhageladeira/geladeira/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/tiktoken-go/tokenizer"
)

// maxResponseBytes caps the decoded upstream body.
const maxResponseBytes = 8 << 20

var (
	// ErrEmptyPrompt is returned for an empty prompt.
	ErrEmptyPrompt = errors.New("llm: prompt missing")
	// ErrInvalidResponse is returned when the upstream body is not JSON.
	ErrInvalidResponse = errors.New("llm: upstream response is not valid JSON")
)

// Settings configures the upstream endpoint.
type Settings struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	ProxyURL  string
}

// SettingsFromConfig maps the llm config section.
func SettingsFromConfig(cfg config.LLMConfig) Settings {
	return Settings{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.Timeout(),
		ProxyURL:  cfg.ProxyURL,
	}
}

// Client is safe for concurrent use; Update swaps settings for later calls.
type Client struct {
	mu       sync.RWMutex
	settings Settings
	http     *http.Client

	codec tokenizer.Codec
}

// NewClient validates s and builds the proxy-aware transport.
func NewClient(s Settings) (*Client, error) {
	c := &Client{}
	if err := c.Update(s); err != nil {
		return nil, err
	}
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		log.Warnf("llm: token estimator unavailable: %v", err)
	} else {
		c.codec = codec
	}
	return c, nil
}

// Update replaces the settings and rebuilds the HTTP client.
func (c *Client) Update(s Settings) error {
	s.BaseURL = strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	if s.BaseURL == "" {
		return fmt.Errorf("llm: base url is required")
	}
	if s.Timeout <= 0 {
		s.Timeout = 60 * time.Second
	}
	httpClient, err := util.NewProxyAwareHTTPClient(s.ProxyURL, s.Timeout)
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	c.mu.Lock()
	c.settings = s
	c.http = httpClient
	c.mu.Unlock()
	return nil
}

// Settings returns the active settings.
func (c *Client) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// BuildPayload renders the single-message chat completion request.
func BuildPayload(model, prompt string, maxTokens int) ([]byte, error) {
	payload := []byte(`{"messages":[{"role":"user","content":""}]}`)
	var err error
	if payload, err = sjson.SetBytes(payload, "model", model); err != nil {
		return nil, err
	}
	if payload, err = sjson.SetBytes(payload, "messages.0.content", prompt); err != nil {
		return nil, err
	}
	if maxTokens > 0 {
		if payload, err = sjson.SetBytes(payload, "max_tokens", maxTokens); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// Complete sends prompt upstream and returns the response body as received.
// Any JSON body is returned regardless of the upstream status code.
func (c *Client) Complete(ctx context.Context, prompt string) ([]byte, error) {
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	c.mu.RLock()
	s := c.settings
	httpClient := c.http
	c.mu.RUnlock()

	payload, err := BuildPayload(s.Model, prompt, s.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("llm: build payload: %w", err)
	}

	url := s.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, br, zstd")
	req.Header.Set("User-Agent", "geladeira-llm-proxy")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	log.WithFields(log.Fields{
		"model":         s.Model,
		"prompt_tokens": c.EstimateTokens(prompt),
		"auth":          util.MaskAuthorizationHeader(req.Header.Get("Authorization")),
	}).Debug("llm: forwarding prompt")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: upstream request failed: %w", err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("llm: close response body error: %v", errClose)
		}
	}()

	body, err := decodeBody(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read upstream body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		log.Debugf("llm: upstream status %d returned non-JSON body (%d bytes)", resp.StatusCode, len(body))
		return nil, ErrInvalidResponse
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warnf("llm: upstream status %d: %s", resp.StatusCode, gjson.GetBytes(body, "error.message").String())
	}
	return body, nil
}

// EstimateTokens approximates the cl100k token count of text for logging.
func (c *Client) EstimateTokens(text string) int {
	if c.codec == nil {
		return len(text) / 4
	}
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return len(text) / 4
	}
	return len(ids)
}

// decodeBody undoes the Content-Encoding negotiated with Accept-Encoding.
func decodeBody(encoding string, r io.Reader) ([]byte, error) {
	var reader io.Reader
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		reader = r
	case "gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	case "br":
		reader = brotli.NewReader(r)
	case "zstd":
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		reader = dec
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
	return io.ReadAll(io.LimitReader(reader, maxResponseBytes))
}
