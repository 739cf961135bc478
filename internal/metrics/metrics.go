// Package metrics exposes Prometheus collectors for the ingestion jobs.
package metrics

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Attempt outcomes recorded by ObserveAttempt.
const (
	OutcomeSuccess   = "success"
	OutcomeRetryable = "retryable"
	OutcomeTerminal  = "terminal"
)

var (
	httpAttemptsTotal          *prometheus.CounterVec
	httpCallsTotal             *prometheus.CounterVec
	httpAttemptDurationSeconds *prometheus.HistogramVec
	httpBackoffSeconds         *prometheus.HistogramVec
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	runsTotal                  *prometheus.CounterVec
	recordsTotal               *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_http_attempts_total",
				Help: "Physical HTTP attempts, labeled by host and outcome.",
			},
			[]string{"host", "outcome"},
		)

		httpCallsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_http_calls_total",
				Help: "Logical HTTP calls, labeled by host and final result.",
			},
			[]string{"host", "result"},
		)

		httpAttemptDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingest_http_attempt_duration_seconds",
				Help:    "Histogram of physical HTTP attempt latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "host"},
		)

		httpBackoffSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingest_http_backoff_seconds",
				Help:    "Histogram of backoff waits between retries.",
				Buckets: []float64{0.1, 0.5, 1, 2, 4, 8, 16},
			},
			[]string{"host"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingest_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_runs_total",
				Help: "Ingestion runs, labeled by job and final status.",
			},
			[]string{"ingest_job", "status"},
		)

		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_records_total",
				Help: "Records produced by ingestion runs, labeled by job.",
			},
			[]string{"ingest_job"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveAttempt records one physical HTTP attempt.
func ObserveAttempt(method, rawURL, outcome string, duration time.Duration) {
	Init()
	host := SanitizeSite(rawURL)
	httpAttemptsTotal.WithLabelValues(host, outcome).Inc()
	httpAttemptDurationSeconds.WithLabelValues(method, host).Observe(duration.Seconds())
}

// ObserveCall records the final result of a logical HTTP call.
func ObserveCall(rawURL, result string) {
	Init()
	httpCallsTotal.WithLabelValues(SanitizeSite(rawURL), result).Inc()
}

// ObserveBackoff records a wait between two attempts.
func ObserveBackoff(rawURL string, wait time.Duration) {
	Init()
	httpBackoffSeconds.WithLabelValues(SanitizeSite(rawURL)).Observe(wait.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveRun records a finished ingestion run.
func ObserveRun(job, status string, records int) {
	Init()
	runsTotal.WithLabelValues(job, status).Inc()
	if records > 0 {
		recordsTotal.WithLabelValues(job).Add(float64(records))
	}
}

// Push sends the default registry to a Prometheus Pushgateway under the
// given job name. Batch runs call it once before exiting.
func Push(ctx context.Context, gatewayURL, job string) error {
	Init()
	if err := push.New(gatewayURL, job).
		Gatherer(prometheus.DefaultGatherer).
		PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
