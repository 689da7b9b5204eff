// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Verifier
	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "premiumgate",
		Subsystem: "verifier",
		Name:      "verifications_total",
		Help:      "Payment verifications by outcome",
	}, []string{"outcome"})

	VerificationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "premiumgate",
		Subsystem: "verifier",
		Name:      "ledger_query_duration_seconds",
		Help:      "Ledger query duration per verification",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"outcome"})

	VerificationsCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "premiumgate",
		Subsystem: "verifier",
		Name:      "coalesced_total",
		Help:      "Verifications that shared an in-flight ledger query",
	})

	// Gate
	AccessDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "premiumgate",
		Subsystem: "gate",
		Name:      "decisions_total",
		Help:      "Access decisions by result and reason code",
	}, []string{"result", "reason"})

	ReplayAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "premiumgate",
		Subsystem: "gate",
		Name:      "replay_attempts_total",
		Help:      "Proofs presented for a different content item than the one they unlocked",
	})

	DecryptionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "premiumgate",
		Subsystem: "gate",
		Name:      "decryption_failures_total",
		Help:      "Verified payments whose content blob failed to decrypt",
	})

	// Access ledger
	GrantsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "premiumgate",
		Subsystem: "ledger",
		Name:      "grants_purged_total",
		Help:      "Access grants removed after the retention window",
	})

	// Ledger health
	LedgerUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "premiumgate",
		Subsystem: "ledger",
		Name:      "up",
		Help:      "1 when the ledger RPC endpoint answered the last health probe",
	})

	// HTTP
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "premiumgate",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status code",
	}, []string{"route", "code"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "premiumgate",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-client rate limiter",
	})
)
