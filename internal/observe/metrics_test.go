package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// metricsHarness couples a Metrics instance with a ManualReader so tests
// can record and then inspect the exported data in one place.
type metricsHarness struct {
	m      *Metrics
	reader *sdkmetric.ManualReader
}

func newHarness(t *testing.T) *metricsHarness {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return &metricsHarness{m: m, reader: reader}
}

// lookup collects current data and returns the named metric, or nil.
func (h *metricsHarness) lookup(t *testing.T, name string) *metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := h.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// counterValue returns the int64 sum data point carrying attrKey=attrVal.
func (h *metricsHarness) counterValue(t *testing.T, name, attrKey, attrVal string) int64 {
	t.Helper()
	met := h.lookup(t, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
	for _, dp := range sum.DataPoints {
		if v, found := dp.Attributes.Value(attribute.Key(attrKey)); found && v.AsString() == attrVal {
			return dp.Value
		}
	}
	t.Fatalf("metric %q has no data point with %s=%s", name, attrKey, attrVal)
	return 0
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	if h := newHarness(t); h.m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestStageDurationHistograms(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	stages := map[string]metric.Float64Histogram{
		"vocalign.transcription.duration": h.m.TranscriptionDuration,
		"vocalign.segmentation.duration":  h.m.SegmentationDuration,
		"vocalign.alignment.duration":     h.m.AlignmentDuration,
		"vocalign.validation.duration":    h.m.ValidationDuration,
	}
	for _, hist := range stages {
		hist.Record(ctx, 0.25)
		hist.Record(ctx, 1.75)
	}

	for name := range stages {
		t.Run(name, func(t *testing.T) {
			met := h.lookup(t, name)
			if met == nil {
				t.Fatalf("metric %q not found", name)
			}
			data, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is not a float64 histogram", name)
			}
			if len(data.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", name)
			}
			dp := data.DataPoints[0]
			if dp.Count != 2 {
				t.Errorf("sample count = %d, want 2", dp.Count)
			}
			if dp.Sum != 2.0 {
				t.Errorf("sample sum = %v, want 2.0", dp.Sum)
			}
		})
	}
}

func TestASRRequestCounter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.m.RecordASRRequest(ctx, "whisper-native", "ok")
	h.m.RecordASRRequest(ctx, "whisper-native", "ok")
	h.m.RecordASRRequest(ctx, "whisper-native", "error")

	if got := h.counterValue(t, "vocalign.asr.requests", "status", "ok"); got != 2 {
		t.Errorf("ok requests = %d, want 2", got)
	}
	if got := h.counterValue(t, "vocalign.asr.requests", "status", "error"); got != 1 {
		t.Errorf("error requests = %d, want 1", got)
	}
}

func TestValidationIssueCounter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.m.RecordValidationIssue(ctx, "count_mismatch", "critical")
	h.m.RecordValidationIssue(ctx, "count_mismatch", "critical")
	h.m.RecordValidationIssue(ctx, "silent_audio", "warning")

	if got := h.counterValue(t, "vocalign.validation.issues", "type", "count_mismatch"); got != 2 {
		t.Errorf("count_mismatch issues = %d, want 2", got)
	}
	if got := h.counterValue(t, "vocalign.validation.issues", "type", "silent_audio"); got != 1 {
		t.Errorf("silent_audio issues = %d, want 1", got)
	}
}

func TestActiveRunsGauge(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.m.ActiveRuns.Add(ctx, 1)
	h.m.ActiveRuns.Add(ctx, 1)
	h.m.ActiveRuns.Add(ctx, -1)

	met := h.lookup(t, "vocalign.active_runs")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not an int64 sum")
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := sum.DataPoints[0].Value; got != 1 {
		t.Errorf("gauge value = %d, want 1", got)
	}
}

func TestAttrHelper(t *testing.T) {
	kv := Attr("provider", "openai")
	if kv.Key != attribute.Key("provider") || kv.Value.AsString() != "openai" {
		t.Errorf("Attr built %v", kv)
	}
}
