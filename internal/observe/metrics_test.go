package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/clearspeech/pkg/scoring"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(t *testing.T, rm metricdata.ResourceMetrics, name string) metricdata.Metrics {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %q not found", name)
	return metricdata.Metrics{}
}

// hasAttrs reports whether set carries every key/value pair in want.
func hasAttrs(set attribute.Set, want map[string]string) bool {
	for k, v := range want {
		got, ok := set.Value(attribute.Key(k))
		if !ok || got.AsString() != v {
			return false
		}
	}
	return true
}

func sumValue(t *testing.T, m metricdata.Metrics, want map[string]string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is %T, want Sum[int64]", m.Name, m.Data)
	}
	for _, dp := range sum.DataPoints {
		if hasAttrs(dp.Attributes, want) {
			return dp.Value
		}
	}
	t.Fatalf("metric %q has no data point with %v", m.Name, want)
	return 0
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	t.Parallel()
	if m, _ := newTestMetrics(t); m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordAttempt(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAttempt(ctx, "minimal_pairs", "same", scoring.Scores{Overall: 85, Clarity: 80, Pace: 90, Fluency: 95})
	m.RecordAttempt(ctx, "minimal_pairs", "same", scoring.Scores{Overall: 75, Clarity: 70, Pace: 80, Fluency: 85})
	m.RecordAttempt(ctx, "", "easier", scoring.Scores{Overall: 40})

	rm := collect(t, reader)
	attempts := findMetric(t, rm, "clearspeech.attempts")
	if got := sumValue(t, attempts, map[string]string{"category": "minimal_pairs", "adjustment": "same"}); got != 2 {
		t.Errorf("minimal_pairs attempts = %d, want 2", got)
	}
	if got := sumValue(t, attempts, map[string]string{"category": "free"}); got != 1 {
		t.Errorf("free attempts = %d, want 1", got)
	}

	scores := findMetric(t, rm, "clearspeech.score")
	hist, ok := scores.Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatalf("score metric is %T, want Histogram[int64]", scores.Data)
	}
	if len(hist.DataPoints) != 4 {
		t.Fatalf("score data points = %d, want one per kind", len(hist.DataPoints))
	}
	for _, dp := range hist.DataPoints {
		if dp.Count != 3 {
			t.Errorf("score %v count = %d, want 3", dp.Attributes.ToSlice(), dp.Count)
		}
		if hasAttrs(dp.Attributes, map[string]string{"kind": "overall"}) && dp.Sum != 200 {
			t.Errorf("overall sum = %d, want 200", dp.Sum)
		}
	}
}

func TestRecordFeedback(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFeedback(ctx, "openai", 250*time.Millisecond, nil)
	m.RecordFeedback(ctx, "openai", time.Second, errors.New("timeout"))
	m.RecordFeedback(ctx, "rules", time.Millisecond, nil)

	met := findMetric(t, collect(t, reader), "clearspeech.feedback.duration")
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("metric is %T, want Histogram[float64]", met.Data)
	}
	if len(hist.DataPoints) != 3 {
		t.Fatalf("data points = %d, want 3", len(hist.DataPoints))
	}
	for _, dp := range hist.DataPoints {
		if hasAttrs(dp.Attributes, map[string]string{"source": "openai", "status": StatusOK}) && dp.Sum != 0.25 {
			t.Errorf("openai ok sum = %v, want 0.25", dp.Sum)
		}
	}
}

func TestRecordProviderRequest(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderRequest(ctx, "openai", StatusOK)
	m.RecordProviderRequest(ctx, "openai", StatusOK)
	m.RecordProviderRequest(ctx, "openai", StatusError)

	rm := collect(t, reader)
	reqs := findMetric(t, rm, "clearspeech.provider.requests")
	if got := sumValue(t, reqs, map[string]string{"provider": "openai", "status": StatusOK}); got != 2 {
		t.Errorf("ok requests = %d, want 2", got)
	}
	errs := findMetric(t, rm, "clearspeech.provider.errors")
	if got := sumValue(t, errs, map[string]string{"provider": "openai"}); got != 1 {
		t.Errorf("errors = %d, want 1", got)
	}
}

func TestRecordBreakerTransition(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordBreakerTransition(ctx, "openai", "open")
	m.RecordBreakerTransition(ctx, "openai", "half-open")
	m.RecordBreakerTransition(ctx, "openai", "open")

	met := findMetric(t, collect(t, reader), "clearspeech.breaker.transitions")
	if got := sumValue(t, met, map[string]string{"breaker": "openai", "to": "open"}); got != 2 {
		t.Errorf("open transitions = %d, want 2", got)
	}
}

func TestBatchAndActivePractice(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordBatch(ctx, 12)
	m.ActivePractice.Add(ctx, 1)
	m.ActivePractice.Add(ctx, 1)
	m.ActivePractice.Add(ctx, -1)

	rm := collect(t, reader)
	batch := findMetric(t, rm, "clearspeech.batch.size")
	hist, ok := batch.Data.(metricdata.Histogram[int64])
	if !ok || len(hist.DataPoints) != 1 || hist.DataPoints[0].Sum != 12 {
		t.Errorf("batch size = %+v, want one sample of 12", batch.Data)
	}
	if got := sumValue(t, findMetric(t, rm, "clearspeech.active_practice"), nil); got != 1 {
		t.Errorf("active practice = %d, want 1", got)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	t.Parallel()
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics returned different pointers")
	}
}
