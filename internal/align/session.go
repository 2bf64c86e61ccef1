// Package align produces and repairs vocabulary→segment pairings.
//
// The two passes are deliberately separate: [Aligner] gives every vocabulary
// term a locally-best segment using a windowed candidate search, and
// [Reassigner] then looks across the whole sequence to repair the minority
// of pairs the local window could not get right (content that drifted far
// from its expected position).
//
// All per-run mutable state (the claimed-segment set, the memoized
// transcription cache, accumulated degradations) lives in a [Session]
// created per run, never in package-level variables.
package align

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vocalign/vocalign/internal/observe"
	"github.com/vocalign/vocalign/internal/phonetic"
	"github.com/vocalign/vocalign/pkg/provider/asr"
	"github.com/vocalign/vocalign/pkg/types"
)

// Verification is the memoized outcome of transcribing one segment and
// scoring it against one expected text.
type Verification struct {
	// Text is the raw ASR output for the segment.
	Text string

	// ASRConfidence is the backend's self-reported confidence.
	ASRConfidence float64

	// Similarity is the phonetic similarity against the expected text.
	Similarity float64
}

// Session owns all mutable state for one alignment run. Create one with
// [NewSession], thread it through both passes, and discard it afterwards.
//
// The transcription cache is safe for concurrent read and insert; the
// claimed-segment set is only touched by the single coordinating goroutine.
type Session struct {
	provider   asr.Provider
	comparator *phonetic.Comparator
	metrics    *observe.Metrics

	mu    sync.Mutex
	cache map[string]cachedTranscription // keyed by SegmentID

	claimed map[string]bool // SegmentID → claimed by a pair
}

type cachedTranscription struct {
	result types.Transcription
	err    error
}

// SessionOption is a functional option for configuring a Session.
type SessionOption func(*Session)

// WithMetrics overrides the metrics instance used by the session. Defaults
// to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// NewSession creates a Session binding a transcription provider and a
// phonetic comparator for one run.
func NewSession(provider asr.Provider, comparator *phonetic.Comparator, opts ...SessionOption) *Session {
	s := &Session{
		provider:   provider,
		comparator: comparator,
		cache:      make(map[string]cachedTranscription),
		claimed:    make(map[string]bool),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Transcribe runs ASR over the segment's audio, memoizing the result by
// segment ID. Failed transcriptions are cached too: a backend that failed
// once on a segment is not retried within the run.
func (s *Session) Transcribe(ctx context.Context, seg *types.AudioSegment) (types.Transcription, error) {
	s.mu.Lock()
	if c, ok := s.cache[seg.SegmentID]; ok {
		s.mu.Unlock()
		return c.result, c.err
	}
	s.mu.Unlock()

	start := time.Now()
	result, err := s.provider.Transcribe(ctx, seg.Samples, seg.SampleRate)
	s.metrics.TranscriptionDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordASRRequest(ctx, "asr", "error")
		s.metrics.RecordASRError(ctx, "asr")
		err = fmt.Errorf("align: transcribe segment %s: %w", seg.SegmentID, err)
	} else {
		s.metrics.RecordASRRequest(ctx, "asr", "ok")
	}

	s.mu.Lock()
	s.cache[seg.SegmentID] = cachedTranscription{result: result, err: err}
	s.mu.Unlock()
	return result, err
}

// Verify transcribes the segment and scores it against expected, returning
// the combined verification. The transcription is cached; the similarity is
// recomputed per expected text, which is cheap.
func (s *Session) Verify(ctx context.Context, seg *types.AudioSegment, expected string) (Verification, error) {
	t, err := s.Transcribe(ctx, seg)
	if err != nil {
		return Verification{}, err
	}
	return Verification{
		Text:          t.Text,
		ASRConfidence: t.Confidence,
		Similarity:    s.comparator.Similarity(t.Text, expected),
	}, nil
}

// Claim marks the segment as owned by a pair. Returns false if it was
// already claimed.
func (s *Session) Claim(segmentID string) bool {
	if s.claimed[segmentID] {
		return false
	}
	s.claimed[segmentID] = true
	return true
}

// Claimed reports whether the segment is already owned by a pair.
func (s *Session) Claimed(segmentID string) bool {
	return s.claimed[segmentID]
}

// Comparator returns the session's phonetic comparator.
func (s *Session) Comparator() *phonetic.Comparator { return s.comparator }
