// Package validate implements the multi-checkpoint integrity framework:
// a coordinator dispatching registered validator functions at fixed
// pipeline checkpoints, the count/content/alignment validators, and the
// report compiler.
package validate

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/vocalign/vocalign/internal/align"
	"github.com/vocalign/vocalign/internal/observe"
	"github.com/vocalign/vocalign/pkg/types"
)

// State tracks a checkpoint's lifecycle.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StatePassed     State = "passed"
	StateFailed     State = "failed"
	StateSkipped    State = "skipped"
)

// Verifier re-transcribes a segment and scores it against expected text.
// *align.Session satisfies this.
type Verifier interface {
	Verify(ctx context.Context, seg *types.AudioSegment, expected string) (align.Verification, error)
}

// Payload carries everything a validator may inspect at a checkpoint.
// Fields not yet produced at that checkpoint are nil.
type Payload struct {
	Entries    []types.VocabularyEntry
	Segments   []*types.AudioSegment
	Pairs      []types.AlignedPair
	SampleRate int

	// Verifier supplies semantic verification; nil disables checks that
	// need re-transcription.
	Verifier Verifier
}

// Func is a validation strategy: inspect the payload, return one result.
// Validators are plain functions, registered per checkpoint.
type Func func(ctx context.Context, p Payload, cfg Config) (types.ValidationResult, error)

// Coordinator dispatches registered validators at pipeline checkpoints,
// merges their results, and decides whether the pipeline may continue.
type Coordinator struct {
	cfg     Config
	log     *slog.Logger
	metrics *observe.Metrics

	registry map[types.Checkpoint][]namedFunc

	mu     sync.Mutex
	states map[types.Checkpoint]State
	cache  map[uint64]types.ValidationResult
}

type namedFunc struct {
	name string
	fn   Func
}

// CoordinatorOption is a functional option for configuring a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger sets the logger. Defaults to slog.Default.
func WithCoordinatorLogger(l *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.log = l }
}

// WithCoordinatorMetrics overrides the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithCoordinatorMetrics(m *observe.Metrics) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

// NewCoordinator creates a Coordinator with the standard validators
// registered at their checkpoints:
//
//	document_parsing:   count (vocabulary side)
//	audio_segmentation: count, content
//	alignment_process:  alignment
//	package_generation: count
func NewCoordinator(cfg Config, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		cfg:      cfg,
		log:      slog.Default(),
		registry: make(map[types.Checkpoint][]namedFunc),
		states:   make(map[types.Checkpoint]State),
		cache:    make(map[uint64]types.ValidationResult),
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	for _, cp := range types.Checkpoints() {
		c.states[cp] = StatePending
	}

	c.Register(types.CheckpointDocumentParsing, "count", CountValidator)
	c.Register(types.CheckpointAudioSegmentation, "count", CountValidator)
	c.Register(types.CheckpointAudioSegmentation, "content", ContentValidator)
	c.Register(types.CheckpointAlignmentProcess, "alignment", AlignmentValidator)
	c.Register(types.CheckpointPackageGeneration, "count", CountValidator)
	return c
}

// Register appends a validator function to a checkpoint's list.
func (c *Coordinator) Register(cp types.Checkpoint, name string, fn Func) {
	c.registry[cp] = append(c.registry[cp], namedFunc{name: name, fn: fn})
}

// State returns the checkpoint's current lifecycle state.
func (c *Coordinator) State(cp types.Checkpoint) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[cp]
}

// ValidateAt runs all validators registered for the checkpoint and merges
// their outputs into one aggregated result. Success is the AND of all
// validators' success; confidence is their mean.
//
// A validator that returns an error or panics is converted into a
// synthetic critical corruption issue rather than aborting the run.
func (c *Coordinator) ValidateAt(ctx context.Context, cp types.Checkpoint, p Payload) types.ValidationResult {
	if !cp.IsValid() {
		return types.ValidationResult{
			Checkpoint: cp,
			Issues: []types.ValidationIssue{{
				Type:        types.IssueCorruption,
				Severity:    types.SeverityCritical,
				Description: fmt.Sprintf("unknown checkpoint %q", cp),
				Confidence:  1.0,
			}},
		}
	}
	if !c.cfg.CheckpointEnabled(cp) {
		c.setState(cp, StateSkipped)
		return types.ValidationResult{Checkpoint: cp, Success: true, ConfidenceScore: 1.0}
	}

	if c.cfg.CacheResults {
		if cached, ok := c.lookupCache(cp, p); ok {
			return cached
		}
	}

	c.setState(cp, StateInProgress)
	if c.cfg.MaxValidationSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.MaxValidationSeconds*float64(time.Second)))
		defer cancel()
	}

	start := time.Now()
	merged := types.ValidationResult{Checkpoint: cp, Success: true}
	var confidences []float64
	for _, nf := range c.registry[cp] {
		res := c.runOne(ctx, cp, nf, p)
		merged.Issues = append(merged.Issues, res.Issues...)
		merged.Recommendations = append(merged.Recommendations, res.Recommendations...)
		merged.MethodsUsed = append(merged.MethodsUsed, res.MethodsUsed...)
		merged.Success = merged.Success && res.Success
		confidences = append(confidences, res.ConfidenceScore)
	}
	merged.ConfidenceScore = mean(confidences)
	c.metrics.ValidationDuration.Record(ctx, time.Since(start).Seconds())
	for _, issue := range merged.Issues {
		c.metrics.RecordValidationIssue(ctx, string(issue.Type), issue.Severity.String())
	}

	if merged.Success {
		c.setState(cp, StatePassed)
	} else {
		c.setState(cp, StateFailed)
	}

	if c.cfg.CacheResults {
		c.storeCache(cp, p, merged)
	}
	c.log.Info("validation checkpoint evaluated",
		"checkpoint", cp,
		"success", merged.Success,
		"confidence", merged.ConfidenceScore,
		"issues", len(merged.Issues),
	)
	return merged
}

// runOne isolates a single validator: errors and panics become synthetic
// critical corruption issues.
func (c *Coordinator) runOne(ctx context.Context, cp types.Checkpoint, nf namedFunc, p Payload) (res types.ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("validator panicked", "checkpoint", cp, "validator", nf.name, "panic", r)
			res = syntheticFailure(cp, nf.name, fmt.Sprintf("validator panicked: %v", r))
		}
	}()
	res, err := nf.fn(ctx, p, c.cfg)
	if err != nil {
		c.log.Error("validator failed", "checkpoint", cp, "validator", nf.name, "error", err)
		return syntheticFailure(cp, nf.name, err.Error())
	}
	res.Checkpoint = cp
	return res
}

// ShouldHalt reports whether the result demands stopping the pipeline:
// a critical issue present while halt_on_critical is set.
func (c *Coordinator) ShouldHalt(res types.ValidationResult) bool {
	return c.cfg.HaltOnCritical && res.HasCritical()
}

func syntheticFailure(cp types.Checkpoint, validator, detail string) types.ValidationResult {
	return types.ValidationResult{
		Checkpoint: cp,
		Success:    false,
		Issues: []types.ValidationIssue{{
			Type:        types.IssueCorruption,
			Severity:    types.SeverityCritical,
			Description: fmt.Sprintf("validator %q did not complete: %s", validator, detail),
			Confidence:  1.0,
			Context:     map[string]string{"validator": validator},
		}},
		MethodsUsed: []string{validator},
	}
}

func (c *Coordinator) setState(cp types.Checkpoint, s State) {
	c.mu.Lock()
	c.states[cp] = s
	c.mu.Unlock()
}

// payloadHash fingerprints a checkpoint+payload combination for result
// caching. Segment IDs and entry texts identify the payload; sample data
// is deliberately excluded, segments are immutable within a run.
func payloadHash(cp types.Checkpoint, p Payload) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|", cp)
	for _, e := range p.Entries {
		fmt.Fprintf(h, "e:%d:%s:%s|", e.RowIndex, e.English, e.TargetText)
	}
	for _, s := range p.Segments {
		fmt.Fprintf(h, "s:%s:%f:%f|", s.SegmentID, s.StartTime, s.EndTime)
	}
	for _, pr := range p.Pairs {
		id := ""
		if pr.Segment != nil {
			id = pr.Segment.SegmentID
		}
		fmt.Fprintf(h, "p:%d:%s:%f|", pr.Entry.RowIndex, id, pr.AlignmentConfidence)
	}
	return h.Sum64()
}

func (c *Coordinator) lookupCache(cp types.Checkpoint, p Payload) (types.ValidationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.cache[payloadHash(cp, p)]
	return res, ok
}

func (c *Coordinator) storeCache(cp types.Checkpoint, p Payload, res types.ValidationResult) {
	c.mu.Lock()
	c.cache[payloadHash(cp, p)] = res
	c.mu.Unlock()
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
