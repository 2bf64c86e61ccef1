// Package mock provides test doubles for the asr package interfaces.
//
// Use Provider to feed controlled Transcription values to the aligner and
// validators, and to inspect which audio buffers were submitted. Results can
// be scripted two ways: a FIFO queue (Results) consumed call by call, or a
// fingerprint map (ByFingerprint) keyed by the audio content, which is stable
// regardless of call order, useful when the caller transcribes candidates
// in parallel.
package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vocalign/vocalign/pkg/provider/asr"
	"github.com/vocalign/vocalign/pkg/types"
)

// Call records a single invocation of Provider.Transcribe.
type Call struct {
	// SampleCount is the number of samples submitted.
	SampleCount int

	// SampleRate is the sample rate submitted.
	SampleRate int

	// Fingerprint is the content fingerprint of the submitted audio.
	Fingerprint string
}

// Provider is a mock implementation of asr.Provider.
type Provider struct {
	mu sync.Mutex

	// Results is a FIFO queue of scripted results, consumed one per call.
	// When exhausted (and ByFingerprint has no match), Transcribe returns
	// Default.
	Results []types.Transcription

	// ByFingerprint maps an audio fingerprint (see Fingerprint) to a scripted
	// result. Checked before the Results queue.
	ByFingerprint map[string]types.Transcription

	// Err, if non-nil, is returned as the error from every Transcribe call.
	Err error

	// ErrOnce, if non-nil, is returned from the next Transcribe call only,
	// then cleared. Allows scripting a single transient failure.
	ErrOnce error

	// Default is returned when no scripted result matches.
	Default types.Transcription

	// Calls records every invocation.
	Calls []Call
}

// Compile-time interface assertion.
var _ asr.Provider = (*Provider)(nil)

// Transcribe returns the scripted result for the submitted audio.
func (p *Provider) Transcribe(_ context.Context, samples []float32, sampleRate int) (types.Transcription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fp := Fingerprint(samples)
	p.Calls = append(p.Calls, Call{SampleCount: len(samples), SampleRate: sampleRate, Fingerprint: fp})

	if p.ErrOnce != nil {
		err := p.ErrOnce
		p.ErrOnce = nil
		return types.Transcription{}, err
	}
	if p.Err != nil {
		return types.Transcription{}, p.Err
	}
	if p.ByFingerprint != nil {
		if r, ok := p.ByFingerprint[fp]; ok {
			return r, nil
		}
	}
	if len(p.Results) > 0 {
		r := p.Results[0]
		p.Results = p.Results[1:]
		return r, nil
	}
	return p.Default, nil
}

// CallCount returns the number of recorded Transcribe calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}

// Fingerprint derives a compact content key from an audio buffer: length plus
// a few probe samples. Sufficient to distinguish the distinct segments a test
// constructs, cheap enough to call per invocation.
func Fingerprint(samples []float32) string {
	if len(samples) == 0 {
		return "empty"
	}
	probe := func(i int) float32 { return samples[(len(samples)-1)*i/4] }
	return fmt.Sprintf("n%d:%.4f:%.4f:%.4f", len(samples), probe(1), probe(2), probe(3))
}

// ErrScripted is a convenience sentinel for tests that need any backend error.
var ErrScripted = errors.New("mock asr: scripted failure")
