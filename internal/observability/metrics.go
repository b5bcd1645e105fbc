// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the gateway's Prometheus collectors.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	TokensIssued      *prometheus.CounterVec
	AccountsCreated   prometheus.Counter
	CharactersCreated prometheus.Counter
}

// NewMetrics creates the gateway metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_http_requests_total",
				Help: "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "gatehouse_http_request_duration_seconds",
				Help: "HTTP request latency by route",
				// Password hashing dominates; bcrypt at cost 12 is ~250ms.
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"route"},
		),
		TokensIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_tokens_issued_total",
				Help: "Login tokens issued by kind (account or character)",
			},
			[]string{"kind"},
		),
		AccountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_accounts_created_total",
			Help: "Accounts created",
		}),
		CharactersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_characters_created_total",
			Help: "Characters created, including primary characters",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.TokensIssued,
		m.AccountsCreated,
		m.CharactersCreated,
	)
	return m
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(route, method, statusLabel(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
