// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exposes prometheus collectors for pantry synchronization and the prompt proxy.
// All methods are nil-safe so components can run without metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered by the server.
type Metrics struct {
	registry       *prometheus.Registry
	syncWrites     *prometheus.CounterVec
	hydrations     *prometheus.CounterVec
	mutations      *prometheus.CounterVec
	activeSessions prometheus.Gauge
	proxyRequests  *prometheus.CounterVec
	voiceResults   *prometheus.CounterVec
}

// New creates collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		syncWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geladeira",
			Name:      "sync_writes_total",
			Help:      "Debounced ingredient list writes by result (ok, error, skipped, dropped).",
		}, []string{"result"}),
		hydrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geladeira",
			Name:      "hydrations_total",
			Help:      "Session hydrations by result (found, empty, anonymous, error).",
		}, []string{"result"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geladeira",
			Name:      "mutations_total",
			Help:      "Ingredient list mutations that changed the list, by operation.",
		}, []string{"op"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "geladeira",
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}),
		proxyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geladeira",
			Name:      "llm_proxy_requests_total",
			Help:      "Prompt proxy requests by response status code.",
		}, []string{"code"}),
		voiceResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geladeira",
			Name:      "voice_captures_total",
			Help:      "Voice captures by outcome (result, error, stopped).",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.syncWrites,
		m.hydrations,
		m.mutations,
		m.activeSessions,
		m.proxyRequests,
		m.voiceResults,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler returns the exposition handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SyncWrite(result string) {
	if m == nil {
		return
	}
	m.syncWrites.WithLabelValues(result).Inc()
}

func (m *Metrics) Hydration(result string) {
	if m == nil {
		return
	}
	m.hydrations.WithLabelValues(result).Inc()
}

func (m *Metrics) Mutation(op string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op).Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *Metrics) ProxyRequest(code int) {
	if m == nil {
		return
	}
	m.proxyRequests.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (m *Metrics) VoiceCapture(outcome string) {
	if m == nil {
		return
	}
	m.voiceResults.WithLabelValues(outcome).Inc()
}
