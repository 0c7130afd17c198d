// Package observe provides application-wide observability primitives for
// clearspeech: OpenTelemetry metrics, tracing spans and trace-aware
// structured logging.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [InitProvider]
// bridges them to a Prometheus registry, which [WriteTextfile] dumps in the
// node-exporter textfile format. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/clearspeech/pkg/scoring"
)

// meterName is the instrumentation scope name used for all clearspeech metrics.
const meterName = "github.com/MrWong99/clearspeech"

// Status attribute values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Practice ---

	// Attempts counts scored attempts. Use with attributes:
	//   attribute.String("category", ...), attribute.String("adjustment", ...)
	Attempts metric.Int64Counter

	// Scores records score distributions (0-100). Use with attribute:
	//   attribute.String("kind", "overall"|"clarity"|"pace"|"fluency")
	Scores metric.Int64Histogram

	// ActivePractice tracks the number of running practice sessions.
	ActivePractice metric.Int64UpDownCounter

	// BatchSize records the number of pairs in each batch scoring call.
	BatchSize metric.Int64Histogram

	// --- Feedback ---

	// FeedbackDuration tracks feedback generation latency. Use with attributes:
	//   attribute.String("source", ...), attribute.String("status", ...)
	FeedbackDuration metric.Float64Histogram

	// ProviderRequests counts LLM provider calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts LLM provider errors. Use with attribute:
	//   attribute.String("provider", ...)
	ProviderErrors metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes. Use with
	// attributes:
	//   attribute.String("breaker", ...), attribute.String("to", ...)
	BreakerTransitions metric.Int64Counter
}

// scoreBuckets defines histogram bucket boundaries for 0-100 scores.
var scoreBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// feedback round trips, which are dominated by LLM latency.
var latencyBuckets = []float64{
	0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Attempts, err = m.Int64Counter("clearspeech.attempts",
		metric.WithDescription("Total scored practice attempts by category and difficulty adjustment."),
	); err != nil {
		return nil, err
	}
	if met.Scores, err = m.Int64Histogram("clearspeech.score",
		metric.WithDescription("Distribution of attempt scores by kind."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActivePractice, err = m.Int64UpDownCounter("clearspeech.active_practice",
		metric.WithDescription("Number of running interactive practice sessions."),
	); err != nil {
		return nil, err
	}
	if met.BatchSize, err = m.Int64Histogram("clearspeech.batch.size",
		metric.WithDescription("Number of pairs per batch scoring call."),
		metric.WithExplicitBucketBoundaries(1, 10, 50, 100, 500, 1000, 5000),
	); err != nil {
		return nil, err
	}

	if met.FeedbackDuration, err = m.Float64Histogram("clearspeech.feedback.duration",
		metric.WithDescription("Latency of feedback generation by source and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("clearspeech.provider.requests",
		metric.WithDescription("Total LLM provider requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("clearspeech.provider.errors",
		metric.WithDescription("Total LLM provider errors by provider."),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("clearspeech.breaker.transitions",
		metric.WithDescription("Circuit breaker state changes by breaker and target state."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails.
//
// Call it after [InitProvider] so the instruments bind to the SDK provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordAttempt records one scored attempt: the attempt counter and a sample
// of each score kind.
func (m *Metrics) RecordAttempt(ctx context.Context, category, adjustment string, s scoring.Scores) {
	if category == "" {
		category = "free"
	}
	m.Attempts.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("category", category),
			attribute.String("adjustment", adjustment),
		),
	)
	for _, kv := range []struct {
		kind  string
		value int
	}{
		{"overall", s.Overall},
		{"clarity", s.Clarity},
		{"pace", s.Pace},
		{"fluency", s.Fluency},
	} {
		m.Scores.Record(ctx, int64(kv.value), metric.WithAttributes(attribute.String("kind", kv.kind)))
	}
}

// RecordFeedback records the latency of one feedback generation.
func (m *Metrics) RecordFeedback(ctx context.Context, source string, d time.Duration, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.FeedbackDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("status", status),
		),
	)
}

// RecordProviderRequest records a provider request counter increment with
// the standard attribute set. A non-ok status also increments the error
// counter.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
	if status != StatusOK {
		m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
	}
}

// RecordBatch records the size of a batch scoring call.
func (m *Metrics) RecordBatch(ctx context.Context, n int) {
	m.BatchSize.Record(ctx, int64(n))
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, breaker, to string) {
	m.BreakerTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("breaker", breaker),
			attribute.String("to", to),
		),
	)
}
