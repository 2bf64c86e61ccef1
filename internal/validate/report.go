package validate

import (
	"fmt"
	"strings"

	"github.com/vocalign/vocalign/pkg/types"
)

// ConfidenceBands is the banded histogram of checkpoint confidence scores.
type ConfidenceBands struct {
	High   int `yaml:"high"`   // confidence >= 0.8
	Medium int `yaml:"medium"` // 0.6 <= confidence < 0.8
	Low    int `yaml:"low"`    // confidence < 0.6
}

// IntegrityReport is the compiled outcome of a validation session. All
// three rendered views derive from this one struct so they can never
// disagree.
type IntegrityReport struct {
	Results []types.ValidationResult `yaml:"results"`

	SuccessRate    float64         `yaml:"success_rate"`
	MeanConfidence float64         `yaml:"mean_confidence"`
	Confidence     ConfidenceBands `yaml:"confidence_bands"`

	IssuesByType     map[string]int `yaml:"issues_by_type"`
	IssuesBySeverity map[string]int `yaml:"issues_by_severity"`
	MethodsUsed      []string       `yaml:"methods_used"`

	Halted   bool             `yaml:"halted"`
	HaltedAt types.Checkpoint `yaml:"halted_at,omitempty"`
}

// Compile builds an IntegrityReport from the session's results. Statistics
// are computed once here; the render methods only format.
func Compile(results []types.ValidationResult, halted bool, haltedAt types.Checkpoint) *IntegrityReport {
	r := &IntegrityReport{
		Results:          results,
		IssuesByType:     make(map[string]int),
		IssuesBySeverity: make(map[string]int),
		Halted:           halted,
		HaltedAt:         haltedAt,
	}

	methods := make(map[string]int)
	passed := 0
	confSum := 0.0
	for _, res := range results {
		if res.Success {
			passed++
		}
		confSum += res.ConfidenceScore
		switch {
		case res.ConfidenceScore >= 0.8:
			r.Confidence.High++
		case res.ConfidenceScore >= 0.6:
			r.Confidence.Medium++
		default:
			r.Confidence.Low++
		}
		for _, issue := range res.Issues {
			r.IssuesByType[string(issue.Type)]++
			r.IssuesBySeverity[issue.Severity.String()]++
		}
		for _, m := range res.MethodsUsed {
			methods[m]++
		}
	}
	if len(results) > 0 {
		r.SuccessRate = float64(passed) / float64(len(results))
		r.MeanConfidence = confSum / float64(len(results))
	}
	r.MethodsUsed = sortedKeys(methods)
	return r
}

// TotalIssues counts issues across all checkpoints.
func (r *IntegrityReport) TotalIssues() int {
	n := 0
	for _, c := range r.IssuesByType {
		n += c
	}
	return n
}

// Summary renders the compact console view.
func (r *IntegrityReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "validation: %d checkpoints, %.0f%% passed, mean confidence %.2f (%d high / %d medium / %d low), %d issues",
		len(r.Results), r.SuccessRate*100, r.MeanConfidence,
		r.Confidence.High, r.Confidence.Medium, r.Confidence.Low, r.TotalIssues())
	if r.Halted {
		fmt.Fprintf(&b, " [HALTED at %s]", r.HaltedAt)
	}
	if n := r.IssuesBySeverity[types.SeverityCritical.String()]; n > 0 {
		fmt.Fprintf(&b, " (%d critical)", n)
	}
	return b.String()
}

// Detailed renders the full text report: per-checkpoint results, every
// issue with its suggested fix, and the aggregate statistics.
func (r *IntegrityReport) Detailed() string {
	var b strings.Builder
	b.WriteString("Integrity Report\n")
	b.WriteString("================\n\n")
	fmt.Fprintf(&b, "Checkpoints evaluated: %d\n", len(r.Results))
	fmt.Fprintf(&b, "Success rate:          %.0f%%\n", r.SuccessRate*100)
	fmt.Fprintf(&b, "Mean confidence:       %.2f\n", r.MeanConfidence)
	fmt.Fprintf(&b, "Confidence bands:      %d high, %d medium, %d low\n",
		r.Confidence.High, r.Confidence.Medium, r.Confidence.Low)
	fmt.Fprintf(&b, "Methods used:          %s\n", strings.Join(r.MethodsUsed, ", "))
	if r.Halted {
		fmt.Fprintf(&b, "Pipeline halted at:    %s\n", r.HaltedAt)
	}
	b.WriteString("\n")

	for _, res := range r.Results {
		status := "passed"
		if !res.Success {
			status = "FAILED"
		}
		fmt.Fprintf(&b, "[%s] %s (confidence %.2f)\n", status, res.Checkpoint, res.ConfidenceScore)
		for _, issue := range res.Issues {
			fmt.Fprintf(&b, "  - %s/%s: %s\n", issue.Type, issue.Severity, issue.Description)
			if issue.SuggestedFix != "" {
				fmt.Fprintf(&b, "    fix: %s\n", issue.SuggestedFix)
			}
			if len(issue.AffectedItems) > 0 {
				fmt.Fprintf(&b, "    affected: %s\n", strings.Join(issue.AffectedItems, ", "))
			}
		}
		for _, rec := range res.Recommendations {
			fmt.Fprintf(&b, "  * %s\n", rec)
		}
	}

	if len(r.IssuesByType) > 0 {
		b.WriteString("\nIssues by type:\n")
		for _, t := range sortedKeys(r.IssuesByType) {
			fmt.Fprintf(&b, "  %-22s %d\n", t, r.IssuesByType[t])
		}
		b.WriteString("Issues by severity:\n")
		for _, s := range sortedKeys(r.IssuesBySeverity) {
			fmt.Fprintf(&b, "  %-22s %d\n", s, r.IssuesBySeverity[s])
		}
	}
	return b.String()
}
