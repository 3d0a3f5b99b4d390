// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Token validation outcomes.
const (
	OutcomeValid     = "valid"
	OutcomeMalformed = "malformed"
	OutcomeSignature = "invalid_signature"
	OutcomeExpired   = "expired"
)

// Metrics holds the holoauth Prometheus collectors. All methods are safe on a
// nil receiver so callers can run without metrics.
type Metrics struct {
	RequestsTotal         *prometheus.CounterVec
	ErrorResponsesTotal   *prometheus.CounterVec
	TokenValidationsTotal *prometheus.CounterVec
	HashDuration          *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holoauth_requests_total",
				Help: "Total number of API requests by route and status code",
			},
			[]string{"route", "status"},
		),
		ErrorResponsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holoauth_error_responses_total",
				Help: "Total number of error responses by error kind",
			},
			[]string{"kind"},
		),
		TokenValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holoauth_token_validations_total",
				Help: "Total number of bearer token validations by outcome",
			},
			[]string{"outcome"},
		),
		HashDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "holoauth_hash_duration_seconds",
				Help: "Time spent in password key derivation by operation",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.4, 0.8, 1.6, 3.2},
			},
			[]string{"operation"},
		),
	}

	reg.MustRegister(m.RequestsTotal, m.ErrorResponsesTotal, m.TokenValidationsTotal, m.HashDuration)
	return m
}

// ObserveRequest counts a finished request.
func (m *Metrics) ObserveRequest(route string, status int) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// ObserveErrorResponse counts an error response of kind.
func (m *Metrics) ObserveErrorResponse(kind string) {
	if m == nil {
		return
	}
	m.ErrorResponsesTotal.WithLabelValues(kind).Inc()
}

// ObserveTokenValidation counts a token validation outcome.
func (m *Metrics) ObserveTokenValidation(outcome string) {
	if m == nil {
		return
	}
	m.TokenValidationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveHash records a key derivation duration. It satisfies
// auth.HashObserver.
func (m *Metrics) ObserveHash(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.HashDuration.WithLabelValues(operation).Observe(d.Seconds())
}
