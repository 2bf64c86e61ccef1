package align

import "github.com/vocalign/vocalign/pkg/types"

// Stats aggregates confidence distribution over a set of aligned pairs.
type Stats struct {
	Total        int
	High         int // confidence >= 0.8
	Medium       int // 0.6 <= confidence < 0.8
	Low          int // confidence < 0.6
	NeedsReview  int
	Positional   int
	Reassigned   int
	MeanScore    float64
	QualityLabel string
}

// Summarize computes distribution statistics for pairs. The quality label
// follows the share of high-confidence pairs: excellent at 80%, good at
// 60%, fair at 40%, poor below.
func Summarize(pairs []types.AlignedPair) Stats {
	s := Stats{Total: len(pairs)}
	if len(pairs) == 0 {
		s.QualityLabel = "poor"
		return s
	}
	sum := 0.0
	for _, p := range pairs {
		sum += p.AlignmentConfidence
		switch {
		case p.AlignmentConfidence >= 0.8:
			s.High++
		case p.AlignmentConfidence >= 0.6:
			s.Medium++
		default:
			s.Low++
		}
		if p.NeedsReview {
			s.NeedsReview++
		}
		switch p.Method {
		case types.MethodPositional:
			s.Positional++
		case types.MethodReassigned:
			s.Reassigned++
		}
	}
	s.MeanScore = sum / float64(len(pairs))

	highShare := float64(s.High) / float64(s.Total)
	switch {
	case highShare >= 0.8:
		s.QualityLabel = "excellent"
	case highShare >= 0.6:
		s.QualityLabel = "good"
	case highShare >= 0.4:
		s.QualityLabel = "fair"
	default:
		s.QualityLabel = "poor"
	}
	return s
}
