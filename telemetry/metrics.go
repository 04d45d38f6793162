// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	CreditEventsParsed prometheus.Counter
	CreditsGranted     prometheus.Counter
	RequestsHandled    prometheus.Counter
	RequestsRejected   prometheus.Counter
	TracksInserted     prometheus.Counter
	TracksCleaned      prometheus.Counter
	CacheRebuilds      prometheus.Counter

	// Histograms (seconds)
	RequestDuration prometheus.Observer

	// Gauges
	PendingRequestsGauge prometheus.Gauge
	LedgerSizeGauge      prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		CreditEventsParsed = promauto.NewCounter(prometheus.CounterOpts{Name: "bopper_credit_events_parsed_total", Help: "Qualifying donation alerts parsed from chat"})
		CreditsGranted = promauto.NewCounter(prometheus.CounterOpts{Name: "bopper_credits_granted_total", Help: "Song request credits granted (donations and console give)"})
		RequestsHandled = promauto.NewCounter(prometheus.CounterOpts{Name: "bopper_requests_handled_total", Help: "Song requests that resulted in a playlist insertion"})
		RequestsRejected = promauto.NewCounter(prometheus.CounterOpts{Name: "bopper_requests_rejected_total", Help: "Song requests rejected (no credit, no song playing, no match, errors)"})
		TracksInserted = promauto.NewCounter(prometheus.CounterOpts{Name: "bopper_tracks_inserted_total", Help: "Tracks inserted into the external playlist"})
		TracksCleaned = promauto.NewCounter(prometheus.CounterOpts{Name: "bopper_tracks_cleaned_total", Help: "Requested tracks removed from the external playlist on cleanup"})
		CacheRebuilds = promauto.NewCounter(prometheus.CounterOpts{Name: "bopper_cache_rebuilds_total", Help: "Full playlist cache rebuilds"})
		RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bopper_request_duration_seconds", Help: "End-to-end song request handling duration seconds", Buckets: prometheus.DefBuckets})
		PendingRequestsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bopper_pending_requests", Help: "Bot-inserted tracks not yet played or cleaned"})
		LedgerSizeGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bopper_ledger_size", Help: "Number of supporters with a tracked balance"})
	})
}

// SetPendingRequests records the current pending request count.
func SetPendingRequests(n int) {
	if PendingRequestsGauge != nil {
		PendingRequestsGauge.Set(float64(n))
	}
}

// SetLedgerSize records the current supporter count.
func SetLedgerSize(n int) {
	if LedgerSizeGauge != nil {
		LedgerSizeGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
