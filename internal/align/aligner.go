package align

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vocalign/vocalign/pkg/types"
)

const (
	defaultWindow        = 2
	defaultASRWeight     = 0.3
	defaultSimWeight     = 0.7
	defaultConcurrency   = 4
	positionalConfidence = 0.3
)

// Aligner pairs vocabulary entries with audio segments using a windowed
// candidate search. Entries are processed in order; for each entry the
// aligner transcribes the unclaimed segments inside a window around the
// entry's expected position and keeps the best-scoring one.
type Aligner struct {
	window      int
	asrWeight   float64
	simWeight   float64
	concurrency int
	log         *slog.Logger
}

// AlignerOption is a functional option for configuring an Aligner.
type AlignerOption func(*Aligner)

// WithWindow sets how many positions to search on each side of the
// expected index. Defaults to 2.
func WithWindow(n int) AlignerOption {
	return func(a *Aligner) {
		if n >= 0 {
			a.window = n
		}
	}
}

// WithWeights sets the scoring weights for ASR confidence and phonetic
// similarity. The two should sum to 1; callers that pass weights that do
// not are normalized.
func WithWeights(asrWeight, simWeight float64) AlignerOption {
	return func(a *Aligner) {
		total := asrWeight + simWeight
		if total <= 0 {
			return
		}
		a.asrWeight = asrWeight / total
		a.simWeight = simWeight / total
	}
}

// WithConcurrency bounds how many candidate segments are transcribed in
// parallel per entry. Defaults to 4.
func WithConcurrency(n int) AlignerOption {
	return func(a *Aligner) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) AlignerOption {
	return func(a *Aligner) { a.log = l }
}

// NewAligner creates an Aligner with the given options applied.
func NewAligner(opts ...AlignerOption) *Aligner {
	a := &Aligner{
		window:      defaultWindow,
		asrWeight:   defaultASRWeight,
		simWeight:   defaultSimWeight,
		concurrency: defaultConcurrency,
		log:         slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

type candidate struct {
	index int
	seg   *types.AudioSegment
	score float64
	v     Verification
}

// Align pairs every entry with a segment. Entries that cannot be matched
// phonetically fall back to positional assignment with low confidence and
// are flagged for review.
//
// On context cancellation the pairs produced so far are returned together
// with the context error, so a caller can still persist partial progress.
func (a *Aligner) Align(ctx context.Context, sess *Session, entries []types.VocabularyEntry, segments []*types.AudioSegment) ([]types.AlignedPair, error) {
	pairs := make([]types.AlignedPair, 0, len(entries))

	// When counts differ the expected position drifts; track the offset of
	// the last confident match so the window follows genuine content rather
	// than raw index arithmetic.
	drift := 0

	start := time.Now()
	threshold := sess.Comparator().MatchThreshold()

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return pairs, fmt.Errorf("align: cancelled after %d of %d entries: %w", i, len(entries), err)
		}

		center := i + drift
		cands, err := a.scoreWindow(ctx, sess, entry, segments, center)
		if err != nil {
			return pairs, err
		}

		best, ok := pickBest(cands)
		// The window pick must clear the match threshold; a sub-threshold
		// best candidate takes the positional fallback path so it enters
		// the reassignment pass as a weak pair.
		if ok && best.v.Similarity >= threshold {
			sess.Claim(best.seg.SegmentID)
			drift = best.index - i
			pairs = append(pairs, types.AlignedPair{
				Entry:               entry,
				Segment:             best.seg,
				AlignmentConfidence: best.score,
				Method:              types.MethodDynamic,
			})
			continue
		}

		pair := a.positionalFallback(entry, segments, center, sess)
		a.log.Debug("aligner: positional fallback",
			"entry", entry.TargetText,
			"row", entry.RowIndex,
			"best_similarity", bestSimilarity(cands),
		)
		pairs = append(pairs, pair)
	}

	a.log.Info("aligner: pass complete",
		"entries", len(entries),
		"segments", len(segments),
		"duration", time.Since(start),
	)
	return pairs, nil
}

// scoreWindow transcribes and scores the unclaimed segments inside the
// window around center. Transcriptions run concurrently, bounded by the
// aligner's concurrency limit; scoring of each candidate is independent so
// order does not matter.
func (a *Aligner) scoreWindow(ctx context.Context, sess *Session, entry types.VocabularyEntry, segments []*types.AudioSegment, center int) ([]candidate, error) {
	lo := max(0, center-a.window)
	hi := min(len(segments)-1, center+a.window)
	if lo > hi {
		return nil, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	results := make([]candidate, hi-lo+1)
	present := make([]bool, hi-lo+1)
	for idx := lo; idx <= hi; idx++ {
		if sess.Claimed(segments[idx].SegmentID) {
			continue
		}
		slot := idx - lo
		seg := segments[idx]
		index := idx
		g.Go(func() error {
			v, err := sess.Verify(gctx, seg, entry.TargetText)
			if err != nil {
				// A single failed transcription does not sink the entry;
				// the candidate is simply not considered.
				a.log.Warn("aligner: candidate transcription failed",
					"segment", seg.SegmentID, "error", err)
				return nil
			}
			results[slot] = candidate{
				index: index,
				seg:   seg,
				score: a.asrWeight*v.ASRConfidence + a.simWeight*v.Similarity,
				v:     v,
			}
			present[slot] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("align: score window: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("align: score window: %w", err)
	}

	cands := make([]candidate, 0, len(results))
	for i, ok := range present {
		if ok {
			cands = append(cands, results[i])
		}
	}
	return cands, nil
}

// positionalFallback assigns the nearest unclaimed segment to center,
// preferring segments at or after the expected position.
func (a *Aligner) positionalFallback(entry types.VocabularyEntry, segments []*types.AudioSegment, center int, sess *Session) types.AlignedPair {
	pair := types.AlignedPair{
		Entry:               entry,
		AlignmentConfidence: positionalConfidence,
		Method:              types.MethodPositional,
		NeedsReview:         true,
		Degraded:            "no phonetic match inside search window",
	}
	for dist := 0; dist < len(segments); dist++ {
		for _, idx := range []int{center + dist, center - dist} {
			if idx < 0 || idx >= len(segments) {
				continue
			}
			if sess.Claimed(segments[idx].SegmentID) {
				continue
			}
			sess.Claim(segments[idx].SegmentID)
			pair.Segment = segments[idx]
			return pair
		}
	}
	// No segment left at all: entry stays unpaired.
	pair.Degraded = "no unclaimed segment available"
	return pair
}

func pickBest(cands []candidate) (candidate, bool) {
	if len(cands) == 0 {
		return candidate{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.score > best.score {
			best = c
		}
	}
	return best, true
}

func bestSimilarity(cands []candidate) float64 {
	s := 0.0
	for _, c := range cands {
		if c.v.Similarity > s {
			s = c.v.Similarity
		}
	}
	return s
}
