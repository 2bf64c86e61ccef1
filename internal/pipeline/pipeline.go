// Package pipeline wires segmentation, alignment, reassignment, and
// validation into the engine's single entry point.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vocalign/vocalign/internal/align"
	"github.com/vocalign/vocalign/internal/observe"
	"github.com/vocalign/vocalign/internal/phonetic"
	"github.com/vocalign/vocalign/internal/segment"
	"github.com/vocalign/vocalign/internal/validate"
	"github.com/vocalign/vocalign/pkg/audio"
	"github.com/vocalign/vocalign/pkg/provider/asr"
	"github.com/vocalign/vocalign/pkg/types"
)

// ErrHalted signals that validation found a critical issue and the
// configured halt policy stopped the pipeline. The triggering issues are
// attached so the caller never receives a silent partial result.
type ErrHalted struct {
	Checkpoint types.Checkpoint
	Issues     []types.ValidationIssue
}

func (e *ErrHalted) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pipeline: halted at %s", e.Checkpoint)
	for _, issue := range e.Issues {
		if issue.Severity == types.SeverityCritical {
			fmt.Fprintf(&b, "; %s: %s", issue.Type, issue.Description)
		}
	}
	return b.String()
}

// Result is the engine's complete output: the pairing, the integrity
// report explaining how trustworthy it is, and the reassignment summary.
type Result struct {
	Pairs      []types.AlignedPair
	Report     *validate.IntegrityReport
	Reassigned align.Report
	Stats      align.Stats
}

// Engine runs the full alignment pipeline. Construct with [NewEngine];
// an Engine is reusable across runs, per-run state lives in the
// align.Session it creates internally.
type Engine struct {
	provider   asr.Provider
	detector   *segment.Detector
	comparator *phonetic.Comparator
	aligner    *align.Aligner
	reassigner *align.Reassigner
	vcfg       validate.Config
	clips      audio.ClipWriter
	clipDir    string
	log        *slog.Logger
	metrics    *observe.Metrics
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithDetector overrides the boundary detector.
func WithDetector(d *segment.Detector) Option {
	return func(e *Engine) { e.detector = d }
}

// WithComparator overrides the phonetic comparator.
func WithComparator(c *phonetic.Comparator) Option {
	return func(e *Engine) { e.comparator = c }
}

// WithAligner overrides the windowed aligner.
func WithAligner(a *align.Aligner) Option {
	return func(e *Engine) { e.aligner = a }
}

// WithReassigner overrides the repair pass.
func WithReassigner(r *align.Reassigner) Option {
	return func(e *Engine) { e.reassigner = r }
}

// WithValidation overrides the validation configuration. Defaults to the
// normal strictness preset.
func WithValidation(cfg validate.Config) Option {
	return func(e *Engine) { e.vcfg = cfg }
}

// WithClipWriter enables per-segment clip writing into dir.
func WithClipWriter(w audio.ClipWriter, dir string) Option {
	return func(e *Engine) {
		e.clips = w
		e.clipDir = dir
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics overrides the metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an Engine around the given transcription provider.
// All stages default to their standard configuration.
func NewEngine(provider asr.Provider, opts ...Option) *Engine {
	e := &Engine{
		provider: provider,
		vcfg:     validate.NewConfig(validate.StrictnessNormal),
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.detector == nil {
		e.detector = segment.New()
	}
	if e.comparator == nil {
		e.comparator = phonetic.New()
	}
	if e.aligner == nil {
		e.aligner = align.NewAligner()
	}
	if e.reassigner == nil {
		e.reassigner = align.NewReassigner()
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// Run executes the pipeline: segmentation, alignment, reassignment, and
// validation at each checkpoint. It returns the aligned pairs together
// with the integrity report.
//
// When validation halts the pipeline the returned error is an [*ErrHalted]
// and the Result still carries the report compiled so far. Context
// cancellation likewise returns partial progress alongside the error.
func (e *Engine) Run(ctx context.Context, entries []types.VocabularyEntry, samples []float32, sampleRate int) (*Result, error) {
	start := time.Now()
	e.metrics.ActiveRuns.Add(ctx, 1)
	defer e.metrics.ActiveRuns.Add(ctx, -1)

	sess := align.NewSession(e.provider, e.comparator, align.WithMetrics(e.metrics))
	coord := validate.NewCoordinator(e.vcfg, validate.WithCoordinatorLogger(e.log), validate.WithCoordinatorMetrics(e.metrics))

	res := &Result{}
	var results []types.ValidationResult

	check := func(cp types.Checkpoint, p validate.Payload) error {
		vr := coord.ValidateAt(ctx, cp, p)
		results = append(results, vr)
		if coord.ShouldHalt(vr) {
			res.Report = validate.Compile(results, true, cp)
			return &ErrHalted{Checkpoint: cp, Issues: vr.Issues}
		}
		return nil
	}

	// Checkpoint 1: the parsed vocabulary on its own.
	if err := check(types.CheckpointDocumentParsing, validate.Payload{Entries: entries}); err != nil {
		return res, err
	}

	segStart := time.Now()
	segments, err := e.detector.Detect(ctx, samples, sampleRate, len(entries))
	e.metrics.SegmentationDuration.Record(ctx, time.Since(segStart).Seconds())
	if err != nil {
		res.Report = validate.Compile(results, false, "")
		return res, fmt.Errorf("pipeline: segmentation: %w", err)
	}

	// Checkpoint 2: segments against the vocabulary. A critical count
	// mismatch stops the run before any transcription is spent.
	if err := check(types.CheckpointAudioSegmentation, validate.Payload{
		Entries:    entries,
		Segments:   segments,
		SampleRate: sampleRate,
	}); err != nil {
		return res, err
	}

	alignStart := time.Now()
	pairs, err := e.aligner.Align(ctx, sess, entries, segments)
	res.Pairs = pairs
	if err != nil {
		e.metrics.AlignmentDuration.Record(ctx, time.Since(alignStart).Seconds())
		res.Report = validate.Compile(results, false, "")
		return res, fmt.Errorf("pipeline: alignment: %w", err)
	}

	rep, err := e.reassigner.Reassign(ctx, sess, pairs)
	e.metrics.AlignmentDuration.Record(ctx, time.Since(alignStart).Seconds())
	if err != nil {
		// Pairs are restored to their pre-pass state by the reassigner;
		// keep them and report the pass failure.
		e.log.Warn("reassignment pass failed, keeping initial alignment", "error", err)
	} else {
		res.Reassigned = rep
		e.metrics.Reassignments.Add(ctx, int64(rep.Reassignments))
	}
	res.Stats = align.Summarize(pairs)

	// Checkpoint 3: the refined pairing.
	if err := check(types.CheckpointAlignmentProcess, validate.Payload{
		Entries:    entries,
		Segments:   segments,
		Pairs:      pairs,
		SampleRate: sampleRate,
		Verifier:   sess,
	}); err != nil {
		return res, err
	}

	if e.clips != nil && e.clipDir != "" {
		if err := e.writeClips(ctx, pairs); err != nil {
			res.Report = validate.Compile(results, false, "")
			return res, fmt.Errorf("pipeline: write clips: %w", err)
		}
	}

	// Checkpoint 4: the final package.
	if err := check(types.CheckpointPackageGeneration, validate.Payload{
		Entries:    entries,
		Segments:   segments,
		Pairs:      pairs,
		SampleRate: sampleRate,
		Verifier:   sess,
	}); err != nil {
		return res, err
	}

	res.Report = validate.Compile(results, false, "")
	e.log.Info("pipeline run complete",
		"entries", len(entries),
		"segments", len(segments),
		"quality", res.Stats.QualityLabel,
		"reassignments", res.Reassigned.Reassignments,
		"duration", time.Since(start),
	)
	return res, nil
}

// writeClips renders one clip per paired segment and records the path on
// the pair.
func (e *Engine) writeClips(ctx context.Context, pairs []types.AlignedPair) error {
	for i := range pairs {
		if err := ctx.Err(); err != nil {
			return err
		}
		seg := pairs[i].Segment
		if seg == nil {
			continue
		}
		path, err := e.clips.WriteClip(seg, e.clipDir)
		if err != nil {
			return fmt.Errorf("segment %s: %w", seg.SegmentID, err)
		}
		seg.AudioFilePath = path
		pairs[i].AudioFilePath = path
	}
	return nil
}
