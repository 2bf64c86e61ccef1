// Package observe provides application-wide observability primitives for
// vocalign: OpenTelemetry metrics and the provider setup that ties them to a
// Prometheus scrape endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all vocalign metrics.
const meterName = "github.com/vocalign/vocalign"

// Metrics holds all OpenTelemetry metric instruments for the engine.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TranscriptionDuration tracks per-segment ASR latency.
	TranscriptionDuration metric.Float64Histogram

	// SegmentationDuration tracks boundary detection latency per run.
	SegmentationDuration metric.Float64Histogram

	// AlignmentDuration tracks the dynamic alignment pass latency per run.
	AlignmentDuration metric.Float64Histogram

	// ValidationDuration tracks per-checkpoint validation latency.
	ValidationDuration metric.Float64Histogram

	// --- Counters ---

	// ASRRequests counts transcription calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ASRRequests metric.Int64Counter

	// ASRErrors counts transcription backend failures. Use with attribute:
	//   attribute.String("provider", ...)
	ASRErrors metric.Int64Counter

	// ValidationIssues counts validation findings. Use with attributes:
	//   attribute.String("type", ...), attribute.String("severity", ...)
	ValidationIssues metric.Int64Counter

	// Reassignments counts segment swaps applied by the global
	// reassignment pass.
	Reassignments metric.Int64Counter

	// --- Gauges ---

	// ActiveRuns tracks the number of alignment runs in flight.
	ActiveRuns metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// a pipeline whose slowest stage is multi-second ASR inference.
var latencyBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranscriptionDuration, err = m.Float64Histogram("vocalign.transcription.duration",
		metric.WithDescription("Latency of per-segment ASR transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SegmentationDuration, err = m.Float64Histogram("vocalign.segmentation.duration",
		metric.WithDescription("Latency of audio boundary detection."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AlignmentDuration, err = m.Float64Histogram("vocalign.alignment.duration",
		metric.WithDescription("Latency of the dynamic alignment pass."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ValidationDuration, err = m.Float64Histogram("vocalign.validation.duration",
		metric.WithDescription("Latency of per-checkpoint validation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ASRRequests, err = m.Int64Counter("vocalign.asr.requests",
		metric.WithDescription("Total ASR requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ASRErrors, err = m.Int64Counter("vocalign.asr.errors",
		metric.WithDescription("Total ASR backend failures by provider."),
	); err != nil {
		return nil, err
	}
	if met.ValidationIssues, err = m.Int64Counter("vocalign.validation.issues",
		metric.WithDescription("Total validation findings by type and severity."),
	); err != nil {
		return nil, err
	}
	if met.Reassignments, err = m.Int64Counter("vocalign.alignment.reassignments",
		metric.WithDescription("Total segment swaps applied by global reassignment."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveRuns, err = m.Int64UpDownCounter("vocalign.active_runs",
		metric.WithDescription("Number of alignment runs in flight."),
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordASRRequest records one transcription call with the standard
// attribute set.
func (m *Metrics) RecordASRRequest(ctx context.Context, provider, status string) {
	m.ASRRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

// RecordASRError records one transcription backend failure.
func (m *Metrics) RecordASRError(ctx context.Context, provider string) {
	m.ASRErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordValidationIssue records one validation finding.
func (m *Metrics) RecordValidationIssue(ctx context.Context, issueType, severity string) {
	m.ValidationIssues.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("type", issueType),
			attribute.String("severity", severity),
		),
	)
}
