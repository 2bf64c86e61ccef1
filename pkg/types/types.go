// Package types defines the shared data model used across all vocalign packages.
//
// These types form the lingua franca between the audio loader, the boundary
// detector, the aligner, the validators, and the packaging collaborator. They
// are intentionally minimal: each package defines its own domain types, but
// cross-cutting data structures live here to avoid circular imports.
package types

// VocabularyEntry is one row of the source vocabulary list. Entries are
// immutable once parsed; identity is RowIndex, which is also the stable sort
// key reflecting document order.
type VocabularyEntry struct {
	// English is the display text shown on the front of a study card.
	English string

	// TargetText is the text in the target romanization (Jyutping) that the
	// spoken audio is matched against.
	TargetText string

	// RowIndex is the zero-based position of this entry in the source
	// document. Stable across the whole run.
	RowIndex int

	// Confidence is the extraction confidence reported by the document
	// parser (0.0–1.0).
	Confidence float64
}

// AudioSegment is one slice of the source recording, produced by the boundary
// detector. Segments are never mutated after creation except to attach a
// materialized clip path once one is written.
type AudioSegment struct {
	// StartTime and EndTime bound the segment in seconds relative to the
	// start of the recording. EndTime > StartTime always holds.
	StartTime float64
	EndTime   float64

	// Samples holds the mono PCM samples for this segment, normalised to
	// [-1.0, 1.0].
	Samples []float32

	// SampleRate in Hz of Samples.
	SampleRate int

	// Confidence is the segmentation confidence (0.0–1.0): how cleanly
	// this segment was separated from its neighbours by silence.
	Confidence float64

	// SegmentID is a stable unique identifier assigned at creation.
	SegmentID string

	// AudioFilePath is the path of the materialized clip, set once a clip
	// writer has produced one. Empty until then.
	AudioFilePath string
}

// Duration returns the segment length in seconds.
func (s *AudioSegment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// AlignmentMethod records which strategy produced an AlignedPair.
type AlignmentMethod string

const (
	// MethodDynamic means the pair was selected by windowed candidate search.
	MethodDynamic AlignmentMethod = "dynamic"

	// MethodPositional means the pair fell back to positional assignment,
	// typically because transcription failed for every candidate.
	MethodPositional AlignmentMethod = "positional"

	// MethodReassigned means the pair was repaired by the global
	// reassignment pass after the initial alignment.
	MethodReassigned AlignmentMethod = "reassigned"
)

// AlignedPair binds exactly one VocabularyEntry to exactly one AudioSegment.
// Within one completed run no AudioSegment is referenced by more than one
// AlignedPair; the global reassignment pass repairs violations of that
// invariant.
type AlignedPair struct {
	// Entry is the vocabulary term this pair belongs to.
	Entry VocabularyEntry

	// Segment is the audio claimed for the term.
	Segment *AudioSegment

	// AlignmentConfidence is the fused confidence (0.0–1.0) that Segment
	// really contains the spoken form of Entry.TargetText.
	AlignmentConfidence float64

	// AudioFilePath is the materialized clip path for this pair, set by the
	// clip writer before packaging.
	AudioFilePath string

	// NeedsReview marks pairs produced under degraded conditions (failed
	// transcription, positional fallback). Reviewable, not fatal.
	NeedsReview bool

	// Method records which alignment strategy produced this pair.
	Method AlignmentMethod

	// Degraded carries a human-readable reason when the pair was produced
	// despite a local failure. Empty for cleanly aligned pairs; the
	// Ok/Degraded outcome is visible here rather than swallowed.
	Degraded string
}

// IssueType classifies a validation finding. The set mirrors the error
// taxonomy of the whole engine.
type IssueType string

const (
	IssueCountMismatch       IssueType = "count_mismatch"
	IssueAlignmentConfidence IssueType = "alignment_confidence"
	IssueSilentAudio         IssueType = "silent_audio"
	IssueDuplicateEntry      IssueType = "duplicate_entry"
	IssueEmptyEntry          IssueType = "empty_entry"
	IssueDurationAnomaly     IssueType = "duration_anomaly"
	IssueMisalignment        IssueType = "misalignment"
	IssueCorruption          IssueType = "corruption"
)

// IsValid reports whether t is a recognised issue type.
func (t IssueType) IsValid() bool {
	switch t {
	case IssueCountMismatch, IssueAlignmentConfidence, IssueSilentAudio,
		IssueDuplicateEntry, IssueEmptyEntry, IssueDurationAnomaly,
		IssueMisalignment, IssueCorruption:
		return true
	}
	return false
}

// Severity grades how serious a validation issue is.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the human-readable name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ValidationIssue is a single finding produced by a validator.
type ValidationIssue struct {
	// Type classifies the issue.
	Type IssueType

	// Severity grades the issue. Critical issues can halt the pipeline when
	// halt-on-critical is enabled.
	Severity Severity

	// AffectedItems lists identifiers of the items involved (segment IDs,
	// vocabulary row indices rendered as strings).
	AffectedItems []string

	// Description is a human-readable explanation of the finding.
	Description string

	// SuggestedFix is an actionable hint for resolving the issue, when one
	// is known.
	SuggestedFix string

	// Confidence is the detector's own certainty in this finding (0.0–1.0).
	Confidence float64

	// Context holds free-form key/value detail for reporting.
	Context map[string]string
}

// Checkpoint names a fixed point in the pipeline where validation runs.
type Checkpoint string

const (
	CheckpointDocumentParsing   Checkpoint = "document_parsing"
	CheckpointAudioSegmentation Checkpoint = "audio_segmentation"
	CheckpointAlignmentProcess  Checkpoint = "alignment_process"
	CheckpointPackageGeneration Checkpoint = "package_generation"
)

// IsValid reports whether c is a recognised checkpoint.
func (c Checkpoint) IsValid() bool {
	switch c {
	case CheckpointDocumentParsing, CheckpointAudioSegmentation,
		CheckpointAlignmentProcess, CheckpointPackageGeneration:
		return true
	}
	return false
}

// Checkpoints lists the four pipeline checkpoints in execution order.
func Checkpoints() []Checkpoint {
	return []Checkpoint{
		CheckpointDocumentParsing,
		CheckpointAudioSegmentation,
		CheckpointAlignmentProcess,
		CheckpointPackageGeneration,
	}
}

// ValidationResult is the aggregated outcome of all validators registered at
// one checkpoint.
type ValidationResult struct {
	// Checkpoint identifies where in the pipeline this result was produced.
	Checkpoint Checkpoint

	// Success is the AND of all validator verdicts at the checkpoint.
	Success bool

	// ConfidenceScore is the mean confidence across all validators (0.0–1.0).
	ConfidenceScore float64

	// Issues lists every finding, merged across validators.
	Issues []ValidationIssue

	// Recommendations lists merged actionable suggestions.
	Recommendations []string

	// MethodsUsed names the validation methods that contributed.
	MethodsUsed []string
}

// HasCritical reports whether any issue in the result is critical.
func (r *ValidationResult) HasCritical() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Transcription is the result of one ASR call against a segment's audio.
type Transcription struct {
	// Text is the transcribed speech content, typically in Han characters.
	Text string

	// Confidence is the ASR self-reported confidence (0.0–1.0). May be zero
	// when the backend does not report one.
	Confidence float64

	// Segments holds per-utterance detail when the backend provides it.
	Segments []TranscriptionSegment
}

// TranscriptionSegment holds per-utterance metadata from ASR backends that
// support it.
type TranscriptionSegment struct {
	Text       string
	Start      float64
	End        float64
	Confidence float64
}
