package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/vocalign/vocalign/internal/align"
	"github.com/vocalign/vocalign/internal/pipeline"
	"github.com/vocalign/vocalign/internal/validate"
	asrmock "github.com/vocalign/vocalign/pkg/provider/asr/mock"
	"github.com/vocalign/vocalign/pkg/types"
)

// pipelineTestConfig is the normal preset with the halt policy turned off.
func pipelineTestConfig() validate.Config {
	cfg := validate.NewConfig(validate.StrictnessNormal)
	cfg.HaltOnCritical = false
	return cfg
}

const testRate = 16000

// toneBurstAudio builds a recording of spoken-word stand-ins: sine bursts
// separated by silence gaps. Each burst carries its own amplitude so a test
// provider can identify which word a segment contains no matter where the
// detector places the cuts.
func toneBurstAudio(amps []float32, burstSec, gapSec float64) []float32 {
	var samples []float32
	appendSilence := func(dur float64) {
		samples = append(samples, make([]float32, int(dur*testRate))...)
	}
	for i, amp := range amps {
		if i > 0 {
			appendSilence(gapSec)
		}
		n := int(burstSec * testRate)
		for j := 0; j < n; j++ {
			samples = append(samples, amp*float32(math.Sin(2*math.Pi*300*float64(j)/testRate)))
		}
	}
	return samples
}

// amplitudeProvider transcribes by peak amplitude: whichever scripted burst
// amplitude is nearest to the segment's peak determines the returned text.
// This decouples the scripted results from the detector's exact cut points.
type amplitudeProvider struct {
	amps  []float32
	texts []string
	calls int
}

func (p *amplitudeProvider) Transcribe(_ context.Context, samples []float32, _ int) (types.Transcription, error) {
	p.calls++
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	best, bestDist := 0, float32(math.MaxFloat32)
	for i, a := range p.amps {
		d := a - peak
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return types.Transcription{Text: p.texts[best], Confidence: 0.95}, nil
}

func testEntries(targets []string) []types.VocabularyEntry {
	entries := make([]types.VocabularyEntry, len(targets))
	for i, tgt := range targets {
		entries[i] = types.VocabularyEntry{
			RowIndex:   i,
			English:    fmt.Sprintf("word-%d", i),
			TargetText: tgt,
			Confidence: 1.0,
		}
	}
	return entries
}

func TestRun_CleanRecording(t *testing.T) {
	t.Parallel()

	targets := []string{"nei5", "hou2", "zou2 san4", "m4 goi1", "sik6 faan6"}
	amps := []float32{0.5, 0.42, 0.34, 0.26, 0.18}
	provider := &amplitudeProvider{amps: amps, texts: targets}
	samples := toneBurstAudio(amps, 1.0, 0.4)

	eng := pipeline.NewEngine(provider)
	res, err := eng.Run(context.Background(), testEntries(targets), samples, testRate)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Pairs) != len(targets) {
		t.Fatalf("got %d pairs, want %d", len(res.Pairs), len(targets))
	}
	for i, p := range res.Pairs {
		if p.Entry.RowIndex != i {
			t.Errorf("pair %d aligned entry row %d", i, p.Entry.RowIndex)
		}
		if p.Method != types.MethodDynamic {
			t.Errorf("pair %d method = %s, want %s", i, p.Method, types.MethodDynamic)
		}
		if p.NeedsReview {
			t.Errorf("pair %d flagged for review on a clean recording", i)
		}
		if p.AlignmentConfidence < 0.8 {
			t.Errorf("pair %d confidence = %f, want >= 0.8", i, p.AlignmentConfidence)
		}
	}
	if res.Stats.Total != len(targets) {
		t.Errorf("stats total = %d, want %d", res.Stats.Total, len(targets))
	}
	if res.Report == nil {
		t.Fatal("no integrity report")
	}
	if res.Report.Halted {
		t.Error("report marked halted on a clean run")
	}
	if res.Report.SuccessRate != 1.0 {
		t.Errorf("success rate = %f, want 1.0\n%s", res.Report.SuccessRate, res.Report.Detailed())
	}
}

func TestRun_RepairsSwappedRecording(t *testing.T) {
	t.Parallel()

	// The speaker recorded terms 2 and 4 in each other's place. With the
	// search window narrowed to one position the swap is out of the
	// aligner's reach, so both terms fall back to positional pairs and the
	// reassignment pass must repair them.
	targets := []string{"nei5", "hou2", "zou2", "maa1", "sik6"}
	recorded := []string{"nei5", "maa1", "zou2", "hou2", "sik6"}
	amps := []float32{0.25, 0.22, 0.19, 0.16, 0.13}
	provider := &amplitudeProvider{amps: amps, texts: recorded}
	samples := toneBurstAudio(amps, 1.6, 0.5)

	eng := pipeline.NewEngine(provider,
		pipeline.WithAligner(align.NewAligner(align.WithWindow(1))),
	)
	res, err := eng.Run(context.Background(), testEntries(targets), samples, testRate)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Pairs) != len(targets) {
		t.Fatalf("got %d pairs, want %d", len(res.Pairs), len(targets))
	}
	if res.Reassigned.Status != "completed" {
		t.Fatalf("reassignment status = %q, want completed", res.Reassigned.Status)
	}
	if res.Reassigned.Reassignments != 1 {
		t.Errorf("reassignments = %d, want 1", res.Reassigned.Reassignments)
	}
	for i, p := range res.Pairs {
		if p.Entry.RowIndex != i {
			t.Errorf("pair %d aligned entry row %d", i, p.Entry.RowIndex)
		}
		want := types.MethodDynamic
		if i == 1 || i == 3 {
			want = types.MethodReassigned
		}
		if p.Method != want {
			t.Errorf("pair %d method = %s, want %s", i, p.Method, want)
		}
		if p.NeedsReview {
			t.Errorf("pair %d still flagged for review after repair", i)
		}
	}
	// Entry 2's audio sits later in the recording than entry 4's.
	if res.Pairs[1].Segment.StartTime <= res.Pairs[3].Segment.StartTime {
		t.Errorf("swap not repaired: pair 1 at %.2fs, pair 3 at %.2fs",
			res.Pairs[1].Segment.StartTime, res.Pairs[3].Segment.StartTime)
	}
	if res.Stats.Reassigned != 2 {
		t.Errorf("stats reassigned = %d, want 2", res.Stats.Reassigned)
	}

	// The report records the out-of-order timings the repair introduced
	// while the run as a whole still validates.
	if res.Report.SuccessRate != 1.0 {
		t.Errorf("success rate = %f, want 1.0\n%s", res.Report.SuccessRate, res.Report.Detailed())
	}
	if n := res.Report.IssuesByType[string(types.IssueMisalignment)]; n == 0 {
		t.Error("report does not flag the out-of-order segment timings")
	}
}

func TestRun_HaltsBeforeTranscription(t *testing.T) {
	t.Parallel()

	// Ten vocabulary rows against a recording far too short to hold them.
	// The uniform fallback produces ten sub-minimum slivers, the count
	// check at audio_segmentation goes critical, and the run stops before
	// a single transcription request is spent.
	targets := []string{"jat1", "ji6", "saam1", "sei3", "ng5", "luk6", "cat1", "baat3", "gau2", "sap6"}
	provider := &asrmock.Provider{}
	samples := toneBurstAudio([]float32{0.3}, 0.9, 0)

	eng := pipeline.NewEngine(provider)
	res, err := eng.Run(context.Background(), testEntries(targets), samples, testRate)
	if err == nil {
		t.Fatal("Run succeeded, want halt")
	}
	var halted *pipeline.ErrHalted
	if !errors.As(err, &halted) {
		t.Fatalf("error = %v, want *ErrHalted", err)
	}
	if halted.Checkpoint != types.CheckpointAudioSegmentation {
		t.Errorf("halted at %s, want %s", halted.Checkpoint, types.CheckpointAudioSegmentation)
	}
	if n := provider.CallCount(); n != 0 {
		t.Errorf("provider called %d times before the halt", n)
	}
	if res == nil || res.Report == nil {
		t.Fatal("halt did not carry a report")
	}
	if !res.Report.Halted {
		t.Error("report not marked halted")
	}
	if res.Report.HaltedAt != types.CheckpointAudioSegmentation {
		t.Errorf("report halted at %s, want %s", res.Report.HaltedAt, types.CheckpointAudioSegmentation)
	}
}

func TestRun_HaltDisabledCompletesWithIssues(t *testing.T) {
	t.Parallel()

	targets := []string{"jat1", "ji6", "saam1", "sei3", "ng5", "luk6", "cat1", "baat3", "gau2", "sap6"}
	provider := &asrmock.Provider{}
	samples := toneBurstAudio([]float32{0.3}, 0.9, 0)

	vcfg := pipelineTestConfig()
	eng := pipeline.NewEngine(provider, pipeline.WithValidation(vcfg))
	res, err := eng.Run(context.Background(), testEntries(targets), samples, testRate)
	if err != nil {
		t.Fatalf("Run with halt disabled: %v", err)
	}
	if res.Report.Halted {
		t.Error("report marked halted with halt_on_critical off")
	}
	if n := res.Report.IssuesBySeverity[types.SeverityCritical.String()]; n == 0 {
		t.Error("critical count issues missing from the report")
	}
	if res.Stats.Positional != len(targets) {
		t.Errorf("positional fallbacks = %d, want %d", res.Stats.Positional, len(targets))
	}
}

func TestRun_Cancellation(t *testing.T) {
	t.Parallel()

	targets := []string{"nei5", "hou2"}
	provider := &asrmock.Provider{}
	samples := toneBurstAudio([]float32{0.4, 0.3}, 1.0, 0.4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := pipeline.NewEngine(provider)
	res, err := eng.Run(ctx, testEntries(targets), samples, testRate)
	if err == nil {
		t.Fatal("Run succeeded with a cancelled context")
	}
	var halted *pipeline.ErrHalted
	if errors.As(err, &halted) {
		t.Errorf("cancellation reported as a validation halt: %v", err)
	}
	if res == nil || res.Report == nil {
		t.Fatal("cancellation did not carry the partial report")
	}
}
