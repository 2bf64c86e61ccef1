package validate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/vocalign/vocalign/pkg/audio"
	"github.com/vocalign/vocalign/pkg/types"
)

// ContentValidator inspects segment audio and vocabulary text quality:
// near-silent segments, spectral anomalies suggestive of noise, duration
// outliers against the segment population, and malformed text rows.
func ContentValidator(ctx context.Context, p Payload, cfg Config) (types.ValidationResult, error) {
	res := types.ValidationResult{Success: true, ConfidenceScore: 1.0, MethodsUsed: []string{"content"}}

	degraded := 0
	for _, s := range p.Segments {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("validate: content validator cancelled: %w", err)
		}
		if issue, ok := silenceIssue(s, p.SampleRate, cfg.SilenceFloorDB); ok {
			res.Issues = append(res.Issues, issue)
			if issue.Severity >= types.SeverityError {
				res.Success = false
			}
			degraded++
			continue
		}
		if issue, ok := spectralIssue(s); ok {
			res.Issues = append(res.Issues, issue)
			degraded++
		}
	}

	res.Issues = append(res.Issues, durationOutliers(p.Segments, cfg.DurationAnomalyZ)...)
	res.Issues = append(res.Issues, textQualityIssues(p.Entries)...)

	if n := len(p.Segments); n > 0 {
		res.ConfidenceScore = 1.0 - math.Min(0.9, float64(degraded)/float64(n))
	}
	if degraded > 0 {
		res.Recommendations = append(res.Recommendations,
			"re-record or manually trim the flagged segments")
	}
	return res, nil
}

// silenceIssue flags a segment whose frames are mostly below the silence
// floor. Severity follows the silent-frame fraction: >50% warning, >80%
// error, >95% critical.
func silenceIssue(s *types.AudioSegment, sampleRate int, floorDB float64) (types.ValidationIssue, bool) {
	if len(s.Samples) == 0 || sampleRate <= 0 {
		return types.ValidationIssue{}, false
	}
	window := sampleRate / 40 // 25ms
	frames := audio.Frames(s.Samples, window)
	if len(frames) == 0 {
		return types.ValidationIssue{}, false
	}
	silent := 0
	for _, f := range frames {
		if audio.RMSToDBFS(f.RMS) < floorDB {
			silent++
		}
	}
	frac := float64(silent) / float64(len(frames))

	var sev types.Severity
	switch {
	case frac > 0.95:
		sev = types.SeverityCritical
	case frac > 0.80:
		sev = types.SeverityError
	case frac > 0.50:
		sev = types.SeverityWarning
	default:
		return types.ValidationIssue{}, false
	}
	return types.ValidationIssue{
		Type:          types.IssueSilentAudio,
		Severity:      sev,
		AffectedItems: []string{s.SegmentID},
		Description:   fmt.Sprintf("segment %s is %.0f%% silent below %.0f dBFS", s.SegmentID, frac*100, floorDB),
		SuggestedFix:  "verify the segment boundary or the source recording level",
		Confidence:    0.9,
	}, true
}

// spectralIssue flags segments whose spectrum is suspiciously flat, which
// indicates broadband noise rather than speech. Spectral flatness is the
// geometric over arithmetic mean of the magnitude spectrum; white noise
// approaches 1, voiced speech sits well below.
func spectralIssue(s *types.AudioSegment) (types.ValidationIssue, bool) {
	const fftSize = 2048
	if len(s.Samples) < fftSize {
		return types.ValidationIssue{}, false
	}
	// One window from the middle of the segment is representative enough.
	mid := len(s.Samples)/2 - fftSize/2
	in := make([]float64, fftSize)
	for i := range in {
		in[i] = float64(s.Samples[mid+i])
	}

	fft := fourier.NewFFT(fftSize)
	coeffs := fft.Coefficients(nil, in)

	logSum, linSum := 0.0, 0.0
	n := 0
	for _, c := range coeffs[1:] { // skip DC
		mag := math.Hypot(real(c), imag(c))
		if mag <= 0 {
			mag = 1e-12
		}
		logSum += math.Log(mag)
		linSum += mag
		n++
	}
	if n == 0 || linSum == 0 {
		return types.ValidationIssue{}, false
	}
	flatness := math.Exp(logSum/float64(n)) / (linSum / float64(n))
	if flatness < 0.5 {
		return types.ValidationIssue{}, false
	}
	return types.ValidationIssue{
		Type:          types.IssueSilentAudio,
		Severity:      types.SeverityWarning,
		AffectedItems: []string{s.SegmentID},
		Description:   fmt.Sprintf("segment %s has a flat spectrum (flatness %.2f), likely noise rather than speech", s.SegmentID, flatness),
		SuggestedFix:  "listen to the segment; it may capture background noise between terms",
		Confidence:    0.7,
	}, true
}

// durationOutliers flags segments whose duration deviates from the
// population by more than maxZ standard deviations.
func durationOutliers(segments []*types.AudioSegment, maxZ float64) []types.ValidationIssue {
	if len(segments) < 4 {
		return nil
	}
	durations := make([]float64, len(segments))
	for i, s := range segments {
		durations[i] = s.Duration()
	}
	m, sd := stat.MeanStdDev(durations, nil)
	if sd == 0 || math.IsNaN(sd) {
		return nil
	}

	var issues []types.ValidationIssue
	for i, s := range segments {
		z := (durations[i] - m) / sd
		if math.Abs(z) <= maxZ {
			continue
		}
		issues = append(issues, types.ValidationIssue{
			Type:          types.IssueDurationAnomaly,
			Severity:      types.SeverityWarning,
			AffectedItems: []string{s.SegmentID},
			Description:   fmt.Sprintf("segment %s duration %.2fs deviates from the population mean %.2fs (z=%.1f)", s.SegmentID, durations[i], m, z),
			SuggestedFix:  "check whether two terms were merged or one was split",
			Confidence:    0.8,
			Context:       map[string]string{"z_score": fmt.Sprintf("%.2f", z)},
		})
	}
	return issues
}

// textQualityIssues flags rows with encoding artifacts or a target text
// identical to the English gloss.
func textQualityIssues(entries []types.VocabularyEntry) []types.ValidationIssue {
	var issues []types.ValidationIssue
	for _, e := range entries {
		if !utf8.ValidString(e.TargetText) || strings.ContainsRune(e.TargetText, utf8.RuneError) {
			issues = append(issues, types.ValidationIssue{
				Type:          types.IssueCorruption,
				Severity:      types.SeverityError,
				AffectedItems: []string{fmt.Sprintf("row %d", e.RowIndex)},
				Description:   fmt.Sprintf("row %d target text contains encoding artifacts", e.RowIndex),
				SuggestedFix:  "re-export the vocabulary list as UTF-8",
				Confidence:    0.95,
			})
			continue
		}
		eng := strings.TrimSpace(strings.ToLower(e.English))
		tgt := strings.TrimSpace(strings.ToLower(e.TargetText))
		if eng != "" && eng == tgt {
			issues = append(issues, types.ValidationIssue{
				Type:          types.IssueDuplicateEntry,
				Severity:      types.SeverityWarning,
				AffectedItems: []string{fmt.Sprintf("row %d", e.RowIndex)},
				Description:   fmt.Sprintf("row %d target text equals the English gloss (%q)", e.RowIndex, e.English),
				SuggestedFix:  "fill in the target-language column",
				Confidence:    0.85,
			})
		}
	}
	return issues
}
