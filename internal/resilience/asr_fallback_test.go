package resilience

import (
	"context"
	"errors"
	"testing"

	asrmock "github.com/vocalign/vocalign/pkg/provider/asr/mock"
	"github.com/vocalign/vocalign/pkg/types"
)

func TestASRFallback_PrimarySuccess(t *testing.T) {
	primary := &asrmock.Provider{Default: types.Transcription{Text: "nei5 hou2", Confidence: 0.9}}
	secondary := &asrmock.Provider{}

	fb := NewASRFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	tr, err := fb.Transcribe(context.Background(), []float32{0.1, 0.2}, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Text != "nei5 hou2" {
		t.Fatalf("text = %q, want primary's result", tr.Text)
	}
	if primary.CallCount() != 1 {
		t.Fatalf("primary called %d times, want 1", primary.CallCount())
	}
	if secondary.CallCount() != 0 {
		t.Fatalf("secondary called %d times, want 0", secondary.CallCount())
	}
}

func TestASRFallback_Failover(t *testing.T) {
	primary := &asrmock.Provider{Err: errors.New("model load failed")}
	secondary := &asrmock.Provider{Default: types.Transcription{Text: "m4 goi1", Confidence: 0.8}}

	fb := NewASRFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	tr, err := fb.Transcribe(context.Background(), []float32{0.1, 0.2}, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Text != "m4 goi1" {
		t.Fatalf("text = %q, want secondary's result", tr.Text)
	}
	if secondary.CallCount() != 1 {
		t.Fatalf("secondary called %d times, want 1", secondary.CallCount())
	}
}

func TestASRFallback_AllFail(t *testing.T) {
	primary := &asrmock.Provider{Err: errors.New("primary down")}
	secondary := &asrmock.Provider{Err: errors.New("secondary down")}

	fb := NewASRFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	_, err := fb.Transcribe(context.Background(), []float32{0.1}, 16000)
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestASRFallback_OpenBreakerSkipsPrimary(t *testing.T) {
	primary := &asrmock.Provider{Err: errors.New("primary down")}
	secondary := &asrmock.Provider{Default: types.Transcription{Text: "zou2 san4", Confidence: 0.8}}

	fb := NewASRFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2},
	})
	fb.AddFallback("secondary", secondary)

	// Two failing calls trip the primary's breaker.
	for range 2 {
		if _, err := fb.Transcribe(context.Background(), []float32{0.1}, 16000); err != nil {
			t.Fatalf("unexpected error while secondary is healthy: %v", err)
		}
	}
	primaryCalls := primary.CallCount()

	if _, err := fb.Transcribe(context.Background(), []float32{0.1}, 16000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primary.CallCount() != primaryCalls {
		t.Errorf("primary called through an open breaker (%d -> %d calls)", primaryCalls, primary.CallCount())
	}
	if secondary.CallCount() != 3 {
		t.Errorf("secondary called %d times, want 3", secondary.CallCount())
	}
}
