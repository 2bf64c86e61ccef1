package validate

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/vocalign/vocalign/pkg/types"
)

const (
	minSegmentDuration = 0.1
	maxSegmentDuration = 30.0
)

// CountValidator compares unique vocabulary terms against valid audio
// segments and flags duplicate and empty rows. Mismatch severity scales
// with the relative difference.
func CountValidator(ctx context.Context, p Payload, cfg Config) (types.ValidationResult, error) {
	res := types.ValidationResult{Success: true, ConfidenceScore: 1.0, MethodsUsed: []string{"count"}}

	unique, dupIssues, emptyIssues := dedupeEntries(p.Entries)
	res.Issues = append(res.Issues, dupIssues...)
	res.Issues = append(res.Issues, emptyIssues...)

	validSegments := 0
	for _, s := range p.Segments {
		if segmentSane(s) {
			validSegments++
		}
	}

	// Before segmentation there is nothing to count against.
	if len(p.Segments) > 0 {
		if issue, ok := countMismatch(unique, validSegments, p.Entries); ok {
			res.Issues = append(res.Issues, issue)
			if issue.Severity >= types.SeverityError {
				res.Success = false
			}
			res.ConfidenceScore = 1.0 - math.Min(0.9, relativeDiff(unique, validSegments))
			res.Recommendations = append(res.Recommendations,
				"re-check segmentation offset or vocabulary list for missing rows")
		}
	}

	if len(dupIssues) > 0 {
		res.Recommendations = append(res.Recommendations, "remove duplicate vocabulary rows before alignment")
	}
	if len(emptyIssues) > 0 {
		res.Success = false
	}
	return res, nil
}

// segmentSane applies the basic per-segment sanity rules: duration within
// bounds, samples present.
func segmentSane(s *types.AudioSegment) bool {
	d := s.Duration()
	return d >= minSegmentDuration && d <= maxSegmentDuration && len(s.Samples) > 0
}

// dedupeEntries counts unique entries by normalized (english, target) pair
// and produces duplicate/empty row issues.
func dedupeEntries(entries []types.VocabularyEntry) (unique int, dups, empties []types.ValidationIssue) {
	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		eng := strings.ToLower(strings.TrimSpace(e.English))
		tgt := strings.ToLower(strings.TrimSpace(e.TargetText))
		if tgt == "" {
			empties = append(empties, types.ValidationIssue{
				Type:          types.IssueEmptyEntry,
				Severity:      types.SeverityError,
				AffectedItems: []string{fmt.Sprintf("row %d", e.RowIndex)},
				Description:   fmt.Sprintf("vocabulary row %d has no target text", e.RowIndex),
				SuggestedFix:  "fill in or delete the row",
				Confidence:    1.0,
			})
			continue
		}
		key := eng + "\x00" + tgt
		if first, dup := seen[key]; dup {
			dups = append(dups, types.ValidationIssue{
				Type:          types.IssueDuplicateEntry,
				Severity:      types.SeverityWarning,
				AffectedItems: []string{fmt.Sprintf("row %d", e.RowIndex), fmt.Sprintf("row %d", first)},
				Description:   fmt.Sprintf("row %d duplicates row %d (%q / %q)", e.RowIndex, first, e.English, e.TargetText),
				SuggestedFix:  "keep one copy of the row",
				Confidence:    0.95,
			})
			continue
		}
		seen[key] = e.RowIndex
		unique++
	}
	return unique, dups, empties
}

// countMismatch builds the count_mismatch issue when vocabulary and
// segment counts disagree. Severity follows the relative difference:
// <10% info, 10-20% warning, 20-50% error, >=50% critical.
func countMismatch(vocab, audio int, entries []types.VocabularyEntry) (types.ValidationIssue, bool) {
	if vocab == audio {
		return types.ValidationIssue{}, false
	}
	ratio := relativeDiff(vocab, audio)
	var sev types.Severity
	switch {
	case ratio < 0.10:
		sev = types.SeverityInfo
	case ratio < 0.20:
		sev = types.SeverityWarning
	case ratio < 0.50:
		sev = types.SeverityError
	default:
		sev = types.SeverityCritical
	}

	issue := types.ValidationIssue{
		Type:     types.IssueCountMismatch,
		Severity: sev,
		Description: fmt.Sprintf("%d unique vocabulary terms vs %d valid audio segments (%.0f%% difference)",
			vocab, audio, ratio*100),
		SuggestedFix: "adjust the segmentation offset range or verify the recording covers the full list",
		Confidence:   1.0,
		Context: map[string]string{
			"vocab_count": fmt.Sprintf("%d", vocab),
			"audio_count": fmt.Sprintf("%d", audio),
		},
	}
	// When audio falls short, name the vocabulary rows that have no
	// segment to land on.
	if audio < vocab {
		missing := vocab - audio
		for i := len(entries) - missing; i >= 0 && i < len(entries); i++ {
			issue.AffectedItems = append(issue.AffectedItems, fmt.Sprintf("row %d", entries[i].RowIndex))
		}
	}
	return issue, true
}

func relativeDiff(a, b int) float64 {
	if a == 0 && b == 0 {
		return 0
	}
	return math.Abs(float64(a-b)) / math.Max(float64(a), float64(b))
}
