// Package metrics provides Prometheus instrumentation for the Firestore
// connector: connection opens, credential resolution, validation failures
// and codec mismatches.
//
// # Basic Usage
//
//	timer := metrics.NewTimer("open")
//	handle, err := open(ctx)
//	metrics.ObserveOpen(metrics.Outcome(err), timer.Stop())
//
// The package-level collectors are registered with the default Prometheus
// registry at init. Tests that need isolation read them through
// prometheus/testutil.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	// ConnectionOpens counts Connector Factory Open calls by outcome.
	ConnectionOpens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firestore_connector_opens_total",
			Help: "Total number of Firestore connection open attempts",
		},
		[]string{"outcome"},
	)

	// OpenLatency tracks how long Open takes, credential resolution included.
	OpenLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "firestore_connector_open_duration_seconds",
			Help:    "Firestore connection open latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"outcome"},
	)

	// ActiveHandles is the number of open connection handles in this process.
	ActiveHandles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "firestore_connector_active_handles",
			Help: "Number of open Firestore connection handles",
		},
	)

	// CredentialResolutions counts credential resolution by strategy and outcome.
	CredentialResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firestore_connector_credential_resolutions_total",
			Help: "Total number of credential resolutions",
		},
		[]string{"strategy", "outcome"},
	)

	// ValidationFailures counts reported validation failures by field.
	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firestore_connector_validation_failures_total",
			Help: "Total number of configuration validation failures",
		},
		[]string{"field"},
	)

	// CodecMismatches counts property maps rejected at decode time.
	CodecMismatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firestore_connector_codec_mismatches_total",
			Help: "Total number of property maps rejected by the decoder",
		},
		[]string{"key"},
	)
)

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// ObserveOpen records one Open call.
func ObserveOpen(outcome string, d time.Duration) {
	ConnectionOpens.WithLabelValues(outcome).Inc()
	OpenLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveCredential records one credential resolution.
func ObserveCredential(strategy, outcome string) {
	CredentialResolutions.WithLabelValues(strategy, outcome).Inc()
}

// Timer measures elapsed time for an operation.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the name the timer was created with.
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It can be called
// more than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
