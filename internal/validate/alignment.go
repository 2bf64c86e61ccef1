package validate

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/vocalign/vocalign/pkg/audio"
	"github.com/vocalign/vocalign/pkg/types"
)

// pairScore holds the per-pair metric breakdown computed by the alignment
// validator.
type pairScore struct {
	timing       float64
	duration     float64
	audioQuality float64
	extraction   float64
	semantic     float64
	fused        float64
	cross        float64
}

// AlignmentValidator fuses multiple signals per aligned pair into one
// confidence, corroborates it with an independent cross-verification
// score, and scans the sequence for anomalies: overlapping neighbor
// timings, outlier pairs, and semantic mismatches (audio glued to the
// wrong word).
func AlignmentValidator(ctx context.Context, p Payload, cfg Config) (types.ValidationResult, error) {
	res := types.ValidationResult{Success: true, ConfidenceScore: 1.0, MethodsUsed: []string{"alignment", "cross_verification"}}
	if len(p.Pairs) == 0 {
		return res, nil
	}

	scores := make([]pairScore, len(p.Pairs))
	for i, pair := range p.Pairs {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("validate: alignment validator cancelled: %w", err)
		}
		sc, err := scorePair(ctx, p, cfg, i, pair)
		if err != nil {
			return res, err
		}
		scores[i] = sc

		if sc.semantic < cfg.SemanticMismatchFloor && pair.Segment != nil && p.Verifier != nil {
			res.Issues = append(res.Issues, types.ValidationIssue{
				Type:          types.IssueMisalignment,
				Severity:      types.SeverityError,
				AffectedItems: []string{pairItem(pair)},
				Description: fmt.Sprintf("row %d: re-transcribed audio does not match %q (similarity %.2f)",
					pair.Entry.RowIndex, pair.Entry.TargetText, sc.semantic),
				SuggestedFix: "review the pairing; the audio likely belongs to a different term",
				Confidence:   1.0 - sc.semantic,
			})
			res.Success = false
		}
		if sc.fused < cfg.ConfidenceFloor {
			res.Issues = append(res.Issues, types.ValidationIssue{
				Type:          types.IssueAlignmentConfidence,
				Severity:      types.SeverityWarning,
				AffectedItems: []string{pairItem(pair)},
				Description: fmt.Sprintf("row %d: fused confidence %.2f below floor %.2f",
					pair.Entry.RowIndex, sc.fused, cfg.ConfidenceFloor),
				SuggestedFix: "flag the pair for manual review",
				Confidence:   0.8,
				Context: map[string]string{
					"timing":        fmt.Sprintf("%.2f", sc.timing),
					"duration":      fmt.Sprintf("%.2f", sc.duration),
					"audio_quality": fmt.Sprintf("%.2f", sc.audioQuality),
					"extraction":    fmt.Sprintf("%.2f", sc.extraction),
					"semantic":      fmt.Sprintf("%.2f", sc.semantic),
				},
			})
		}
		if sc.cross < cfg.CrossVerificationFloor {
			res.Issues = append(res.Issues, types.ValidationIssue{
				Type:          types.IssueAlignmentConfidence,
				Severity:      types.SeverityWarning,
				AffectedItems: []string{pairItem(pair)},
				Description: fmt.Sprintf("row %d: cross-verification %.2f below floor %.2f",
					pair.Entry.RowIndex, sc.cross, cfg.CrossVerificationFloor),
				SuggestedFix: "corroborating signals disagree with the alignment; review the pair",
				Confidence:   0.7,
			})
		}
	}

	res.Issues = append(res.Issues, sequenceAnomalies(p.Pairs, scores)...)

	fused := make([]float64, len(scores))
	for i, sc := range scores {
		fused[i] = sc.fused
	}
	res.ConfidenceScore = stat.Mean(fused, nil)
	if res.ConfidenceScore < cfg.ConfidenceFloor {
		res.Success = false
		res.Recommendations = append(res.Recommendations,
			"overall alignment confidence is low; consider re-running with a wider search window")
	}
	return res, nil
}

// scorePair computes the weighted metric fusion and the cross-verification
// signal for one pair.
func scorePair(ctx context.Context, p Payload, cfg Config, idx int, pair types.AlignedPair) (pairScore, error) {
	var sc pairScore
	if pair.Segment == nil {
		return sc, nil
	}
	seg := pair.Segment

	sc.timing = timingScore(p.Pairs, idx)
	sc.duration = durationConsistency(seg, pair.Entry.TargetText)
	sc.audioQuality = audioQuality(seg)
	sc.extraction = pair.Entry.Confidence

	// Semantic verification re-transcribes the audio and compares against
	// the expected text. Without a verifier the signal stays neutral.
	sc.semantic = 0.5
	if p.Verifier != nil {
		v, err := p.Verifier.Verify(ctx, seg, pair.Entry.TargetText)
		if err == nil {
			sc.semantic = v.Similarity
		}
	}

	fw := cfg.Fusion
	if t := fw.total(); t > 0 {
		sc.fused = (fw.Timing*sc.timing + fw.Duration*sc.duration +
			fw.AudioQuality*sc.audioQuality + fw.Extraction*sc.extraction +
			fw.Semantic*sc.semantic) / t
	}

	cw := cfg.Cross
	if t := cw.total(); t > 0 {
		sc.cross = (cw.Duration*sc.duration + cw.Energy*sc.audioQuality +
			cw.Phonetic*sc.semantic + cw.Positional*positionalContext(p.Pairs, idx)) / t
	}
	return sc, nil
}

// timingScore penalizes overlap with the previous pair's segment and
// rewards monotonically increasing timings.
func timingScore(pairs []types.AlignedPair, idx int) float64 {
	cur := pairs[idx].Segment
	if cur == nil {
		return 0
	}
	if idx == 0 {
		return 1.0
	}
	prev := pairs[idx-1].Segment
	if prev == nil {
		return 0.5
	}
	if cur.StartTime >= prev.EndTime {
		return 1.0
	}
	overlap := prev.EndTime - cur.StartTime
	d := cur.Duration()
	if d <= 0 {
		return 0
	}
	return math.Max(0, 1.0-overlap/d)
}

// durationConsistency compares actual duration against a rough estimate
// from text length: about 0.35s per character plus 0.3s lead in/out, a
// wide tolerance band since speaking rate varies.
func durationConsistency(seg *types.AudioSegment, text string) float64 {
	expected := 0.3 + 0.35*float64(len([]rune(text)))
	actual := seg.Duration()
	if expected <= 0 || actual <= 0 {
		return 0
	}
	ratio := actual / expected
	if ratio > 1 {
		ratio = 1 / ratio
	}
	// ratio 1.0 → score 1.0; ratio 0.25 → 0.
	return math.Max(0, (ratio-0.25)/0.75)
}

// audioQuality scores segment audio from energy and zero-crossing rate.
// Speech sits in a mid band for both; extremes indicate silence or noise.
func audioQuality(seg *types.AudioSegment) float64 {
	if len(seg.Samples) == 0 {
		return 0
	}
	db := audio.RMSToDBFS(audio.RMS(seg.Samples))
	energy := bandScore(db, -45, -30, -15, -5)

	zcr := audio.ZeroCrossingRate(seg.Samples)
	texture := bandScore(zcr, 0.005, 0.02, 0.25, 0.45)

	return 0.6*energy + 0.4*texture
}

// bandScore maps v to [0,1]: 1 inside [okLo, okHi], ramping to 0 outside
// [min, max].
func bandScore(v, min, okLo, okHi, max float64) float64 {
	switch {
	case v >= okLo && v <= okHi:
		return 1.0
	case v <= min || v >= max:
		return 0.0
	case v < okLo:
		return (v - min) / (okLo - min)
	default:
		return (max - v) / (max - okHi)
	}
}

// positionalContext rewards pairs whose segment order matches entry order
// relative to their neighbors.
func positionalContext(pairs []types.AlignedPair, idx int) float64 {
	cur := pairs[idx].Segment
	if cur == nil {
		return 0
	}
	score := 1.0
	if idx > 0 {
		if prev := pairs[idx-1].Segment; prev != nil && prev.StartTime > cur.StartTime {
			score -= 0.5
		}
	}
	if idx < len(pairs)-1 {
		if next := pairs[idx+1].Segment; next != nil && next.StartTime < cur.StartTime {
			score -= 0.5
		}
	}
	return math.Max(0, score)
}

// sequenceAnomalies scans for neighbor timing overlaps and pairs whose
// fused confidence is an outlier against a sliding window of neighbors.
func sequenceAnomalies(pairs []types.AlignedPair, scores []pairScore) []types.ValidationIssue {
	var issues []types.ValidationIssue

	for i := 1; i < len(pairs); i++ {
		prev, cur := pairs[i-1].Segment, pairs[i].Segment
		if prev == nil || cur == nil {
			continue
		}
		if cur.StartTime < prev.EndTime {
			issues = append(issues, types.ValidationIssue{
				Type:          types.IssueMisalignment,
				Severity:      types.SeverityWarning,
				AffectedItems: []string{pairItem(pairs[i-1]), pairItem(pairs[i])},
				Description: fmt.Sprintf("rows %d and %d have overlapping segment timings (%.2fs overlap)",
					pairs[i-1].Entry.RowIndex, pairs[i].Entry.RowIndex, prev.EndTime-cur.StartTime),
				SuggestedFix: "segments may be out of order after reassignment; review both rows",
				Confidence:   0.9,
			})
		}
	}

	const window = 3
	for i := range pairs {
		lo := max(0, i-window)
		hi := min(len(pairs)-1, i+window)
		if hi-lo < 3 {
			continue
		}
		var neighbors []float64
		for j := lo; j <= hi; j++ {
			if j != i {
				neighbors = append(neighbors, scores[j].fused)
			}
		}
		m, sd := stat.MeanStdDev(neighbors, nil)
		if sd < 0.05 || math.IsNaN(sd) {
			continue
		}
		if z := (scores[i].fused - m) / sd; z < -2.5 {
			issues = append(issues, types.ValidationIssue{
				Type:          types.IssueAlignmentConfidence,
				Severity:      types.SeverityWarning,
				AffectedItems: []string{pairItem(pairs[i])},
				Description: fmt.Sprintf("row %d confidence %.2f is an outlier against its neighbors (mean %.2f)",
					pairs[i].Entry.RowIndex, scores[i].fused, m),
				SuggestedFix: "review the pair; its neighbors aligned well but it did not",
				Confidence:   0.75,
			})
		}
	}
	return issues
}

// FilterInvalidPairs partitions pairs into valid and invalid. Pairs below
// the confidence floor are invalid; pairs flagged critical or below the
// audio-quality floor are always invalid regardless of fused confidence.
func FilterInvalidPairs(ctx context.Context, p Payload, cfg Config) (valid, invalid []types.AlignedPair, err error) {
	for i, pair := range p.Pairs {
		if err := ctx.Err(); err != nil {
			return valid, invalid, fmt.Errorf("validate: filter cancelled: %w", err)
		}
		sc, serr := scorePair(ctx, p, cfg, i, pair)
		if serr != nil {
			return valid, invalid, serr
		}
		switch {
		case pair.Segment == nil:
			invalid = append(invalid, pair)
		case sc.audioQuality < cfg.AudioQualityFloor:
			invalid = append(invalid, pair)
		case sc.fused < cfg.ConfidenceFloor:
			invalid = append(invalid, pair)
		default:
			valid = append(valid, pair)
		}
	}
	return valid, invalid, nil
}

func pairItem(p types.AlignedPair) string {
	if p.Segment != nil {
		return fmt.Sprintf("row %d / %s", p.Entry.RowIndex, p.Segment.SegmentID)
	}
	return fmt.Sprintf("row %d", p.Entry.RowIndex)
}
