package align

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vocalign/vocalign/pkg/types"
)

const defaultSwapMargin = 0.1

// Report summarizes one reassignment pass.
type Report struct {
	// Status is "completed" when the pass ran, "skipped" when there was
	// nothing to repair.
	Status string

	// Reason explains a skipped pass.
	Reason string

	// Reassignments counts applied swaps.
	Reassignments int

	// AvgSimilarityBefore and AvgSimilarityAfter measure the weak pairs'
	// mean phonetic similarity on each side of the pass.
	AvgSimilarityBefore float64
	AvgSimilarityAfter  float64
}

// Reassigner repairs weak pairs after the initial alignment by searching
// for segment swaps between them that improve the combined phonetic
// similarity. A swap is only applied when the total similarity improves by
// at least the swap margin, which makes repeated passes converge: once no
// swap clears the margin, the pass is a no-op.
type Reassigner struct {
	margin float64
	log    *slog.Logger
}

// ReassignerOption is a functional option for configuring a Reassigner.
type ReassignerOption func(*Reassigner)

// WithSwapMargin sets the minimum combined similarity improvement required
// to apply a swap. Defaults to 0.1.
func WithSwapMargin(m float64) ReassignerOption {
	return func(r *Reassigner) {
		if m > 0 {
			r.margin = m
		}
	}
}

// WithReassignerLogger sets the logger. Defaults to slog.Default.
func WithReassignerLogger(l *slog.Logger) ReassignerOption {
	return func(r *Reassigner) { r.log = l }
}

// NewReassigner creates a Reassigner with the given options applied.
func NewReassigner(opts ...ReassignerOption) *Reassigner {
	r := &Reassigner{margin: defaultSwapMargin, log: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reassign runs one repair pass over pairs, mutating them in place. Weak
// pairs, those below the match threshold or already flagged for review,
// are candidates for segment swaps among themselves.
//
// The pass is transactional: if it is aborted partway (cancellation, or a
// scoring failure mid-search) the pairs are restored to their pre-pass
// state and the error is returned. A weak pair whose own audio cannot be
// transcribed is excluded from the search instead of sinking the pass.
func (r *Reassigner) Reassign(ctx context.Context, sess *Session, pairs []types.AlignedPair) (rep Report, err error) {
	weak := r.weakIndexes(sess, pairs)
	if len(weak) < 2 {
		return Report{Status: "skipped", Reason: "fewer than two weak pairs"}, nil
	}

	snapshot := make([]types.AlignedPair, len(pairs))
	copy(snapshot, pairs)
	defer func() {
		if err != nil {
			copy(pairs, snapshot)
		}
	}()

	start := time.Now()
	sims := make(map[int]float64, len(weak))
	scorable := weak[:0]
	for _, i := range weak {
		s, serr := r.similarity(ctx, sess, pairs[i].Entry, pairs[i].Segment)
		if serr != nil {
			if ctx.Err() != nil {
				return Report{}, serr
			}
			// A pair whose audio cannot be transcribed sits out the swap
			// search; the rest of the weak set is still repairable.
			r.log.Warn("reassigner: pair not scorable, excluded from swap search",
				"row", pairs[i].Entry.RowIndex, "error", serr)
			continue
		}
		sims[i] = s
		scorable = append(scorable, i)
	}
	weak = scorable
	if len(weak) < 2 {
		return Report{Status: "skipped", Reason: "fewer than two scorable weak pairs"}, nil
	}
	rep.AvgSimilarityBefore = meanVals(sims)

	for a := 0; a < len(weak); a++ {
		for b := a + 1; b < len(weak); b++ {
			if err := ctx.Err(); err != nil {
				return Report{}, fmt.Errorf("align: reassign cancelled: %w", err)
			}
			i, j := weak[a], weak[b]
			if pairs[i].Segment == nil || pairs[j].Segment == nil {
				continue
			}

			crossIJ, serr := r.similarity(ctx, sess, pairs[i].Entry, pairs[j].Segment)
			if serr != nil {
				return Report{}, serr
			}
			crossJI, serr := r.similarity(ctx, sess, pairs[j].Entry, pairs[i].Segment)
			if serr != nil {
				return Report{}, serr
			}

			gain := (crossIJ + crossJI) - (sims[i] + sims[j])
			if gain < r.margin {
				continue
			}

			pairs[i].Segment, pairs[j].Segment = pairs[j].Segment, pairs[i].Segment
			pairs[i].Method = types.MethodReassigned
			pairs[j].Method = types.MethodReassigned
			sims[i], sims[j] = crossIJ, crossJI
			rep.Reassignments++

			threshold := sess.Comparator().MatchThreshold()
			r.refreshPair(&pairs[i], sims[i], threshold)
			r.refreshPair(&pairs[j], sims[j], threshold)

			r.log.Debug("reassigner: swap applied",
				"rows", []int{pairs[i].Entry.RowIndex, pairs[j].Entry.RowIndex},
				"gain", gain,
			)
		}
	}

	rep.Status = "completed"
	rep.AvgSimilarityAfter = meanVals(sims)
	r.log.Info("reassigner: pass complete",
		"weak_pairs", len(weak),
		"reassignments", rep.Reassignments,
		"duration", time.Since(start),
	)
	return rep, nil
}

// refreshPair updates confidence and review flags after a swap.
func (r *Reassigner) refreshPair(p *types.AlignedPair, sim, threshold float64) {
	p.AlignmentConfidence = sim
	if sim >= threshold {
		p.NeedsReview = false
		p.Degraded = ""
	} else {
		p.NeedsReview = true
	}
}

// weakIndexes returns the indexes of pairs needing repair: flagged for
// review, positionally assigned, or below the match threshold.
func (r *Reassigner) weakIndexes(sess *Session, pairs []types.AlignedPair) []int {
	threshold := sess.Comparator().MatchThreshold()
	var weak []int
	for i, p := range pairs {
		if p.Segment == nil {
			continue
		}
		if p.NeedsReview || p.Method == types.MethodPositional || p.AlignmentConfidence < threshold {
			weak = append(weak, i)
		}
	}
	return weak
}

// similarity scores an entry against a segment's cached transcription.
func (r *Reassigner) similarity(ctx context.Context, sess *Session, entry types.VocabularyEntry, seg *types.AudioSegment) (float64, error) {
	if seg == nil {
		return 0, nil
	}
	v, err := sess.Verify(ctx, seg, entry.TargetText)
	if err != nil {
		return 0, err
	}
	return v.Similarity, nil
}

func meanVals(m map[int]float64) float64 {
	if len(m) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range m {
		sum += v
	}
	return sum / float64(len(m))
}
