// Package observe provides application-wide observability primitives for
// Voxhire: OpenTelemetry metrics and the Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API and scraped via
// the standard /metrics endpoint. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Voxhire metrics.
const meterName = "github.com/voxhire/voxhire"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks utterance capture plus transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks LLM inference latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// SessionDuration tracks full interview session length.
	SessionDuration metric.Float64Histogram

	// --- Counters ---

	// ModerationLabels counts moderation verdicts. Use with attribute:
	//   attribute.String("label", ...)
	ModerationLabels metric.Int64Counter

	// Envelopes counts envelopes sent to clients. Use with attribute:
	//   attribute.String("kind", ...)
	Envelopes metric.Int64Counter

	// TopicsCovered counts fully covered interview topics.
	TopicsCovered metric.Int64Counter

	// SessionOutcomes counts finished sessions. Use with attribute:
	//   attribute.String("status", ...)
	SessionOutcomes metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live interview sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// sessionBuckets covers interview lengths from seconds to an hour.
var sessionBuckets = []float64{
	30, 60, 120, 300, 600, 900, 1800, 2700, 3600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("voxhire.stt.duration",
		metric.WithDescription("Latency of utterance capture and transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("voxhire.llm.duration",
		metric.WithDescription("Latency of LLM inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("voxhire.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SessionDuration, err = m.Float64Histogram("voxhire.session.duration",
		metric.WithDescription("Total interview session length."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(sessionBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ModerationLabels, err = m.Int64Counter("voxhire.moderation.labels",
		metric.WithDescription("Total moderation verdicts by label."),
	); err != nil {
		return nil, err
	}
	if met.Envelopes, err = m.Int64Counter("voxhire.envelopes.sent",
		metric.WithDescription("Total envelopes sent to clients by kind."),
	); err != nil {
		return nil, err
	}
	if met.TopicsCovered, err = m.Int64Counter("voxhire.topics.covered",
		metric.WithDescription("Total fully covered interview topics."),
	); err != nil {
		return nil, err
	}
	if met.SessionOutcomes, err = m.Int64Counter("voxhire.session.outcomes",
		metric.WithDescription("Total finished sessions by status."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("voxhire.active_sessions",
		metric.WithDescription("Number of live interview sessions."),
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
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// RecordModerationLabel records one moderation verdict.
func (m *Metrics) RecordModerationLabel(ctx context.Context, label string) {
	m.ModerationLabels.Add(ctx, 1,
		metric.WithAttributes(attribute.String("label", label)),
	)
}

// RecordEnvelope records one envelope sent to a client.
func (m *Metrics) RecordEnvelope(ctx context.Context, kind string) {
	m.Envelopes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordSessionOutcome records one finished session with its duration.
func (m *Metrics) RecordSessionOutcome(ctx context.Context, status string, seconds float64) {
	m.SessionOutcomes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
	m.SessionDuration.Record(ctx, seconds)
}
