package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalboard_auth_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// Registrations counts account registrations by result
	// (success|invalid_code|duplicate|error).
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalboard_registrations_total",
			Help: "Total number of registration attempts",
		},
		[]string{"result"},
	)

	// VerificationCodesIssued counts issued email verification codes.
	VerificationCodesIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vitalboard_verification_codes_issued_total",
			Help: "Total number of verification codes issued",
		},
	)

	// DuplicateUserRecords tracks emails with more than one physical
	// record in the object store, as observed by the maintenance sweep.
	DuplicateUserRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vitalboard_duplicate_user_records",
			Help: "Number of emails with more than one stored user record",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vitalboard_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
