package resilience

import (
	"context"

	"github.com/vocalign/vocalign/pkg/provider/asr"
	"github.com/vocalign/vocalign/pkg/types"
)

// ASRFallback implements [asr.Provider] with automatic failover across
// multiple transcription backends. Each backend has its own circuit
// breaker, so a native model that keeps failing is bypassed in favour of
// the hosted API (or vice versa) without aborting the alignment run.
type ASRFallback struct {
	group *FallbackGroup[asr.Provider]
}

var _ asr.Provider = (*ASRFallback)(nil)

// NewASRFallback creates an [ASRFallback] with primary as the preferred
// backend.
func NewASRFallback(primary asr.Provider, primaryName string, cfg FallbackConfig) *ASRFallback {
	return &ASRFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional transcription backend, tried after
// the primary in registration order.
func (f *ASRFallback) AddFallback(name string, provider asr.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe runs the audio through the first healthy backend.
func (f *ASRFallback) Transcribe(ctx context.Context, samples []float32, sampleRate int) (types.Transcription, error) {
	return ExecuteWithResult(f.group, func(p asr.Provider) (types.Transcription, error) {
		return p.Transcribe(ctx, samples, sampleRate)
	})
}
