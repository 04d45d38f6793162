package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	// A second call must not re-register with the default registry (promauto
	// panics on duplicates).
	Init()

	if CreditEventsParsed == nil || RequestDuration == nil || PendingRequestsGauge == nil {
		t.Fatal("metrics not initialized")
	}
}

func TestGaugeSettersBeforeInitAreNoOps(t *testing.T) {
	// Setters tolerate being called before Init (unit tests exercise bot code
	// without metrics).
	SetPendingRequests(3)
	SetLedgerSize(2)
}

func TestCorrelationRoundTrip(t *testing.T) {
	ctx := WithCorrelation(context.Background(), "corr-1")
	if got := GetCorrelation(ctx); got != "corr-1" {
		t.Fatalf("GetCorrelation = %q, want corr-1", got)
	}
	if got := GetCorrelation(context.Background()); got != "" {
		t.Fatalf("GetCorrelation on empty ctx = %q, want empty", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Fatal("LoggerWithCorr returned nil")
	}
}

func TestTimeFuncMeasuresDuration(t *testing.T) {
	d := TimeFunc(nil, func() { time.Sleep(5 * time.Millisecond) })
	if d < 5*time.Millisecond {
		t.Fatalf("duration = %v, want >= 5ms", d)
	}
}
