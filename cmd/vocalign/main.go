// Command vocalign aligns a vocabulary list with a continuous audio
// recording and writes per-term clips plus an integrity report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vocalign/vocalign/internal/align"
	"github.com/vocalign/vocalign/internal/config"
	"github.com/vocalign/vocalign/internal/health"
	"github.com/vocalign/vocalign/internal/observe"
	"github.com/vocalign/vocalign/internal/phonetic"
	"github.com/vocalign/vocalign/internal/pipeline"
	"github.com/vocalign/vocalign/internal/resilience"
	"github.com/vocalign/vocalign/internal/segment"
	"github.com/vocalign/vocalign/internal/validate"
	"github.com/vocalign/vocalign/pkg/audio"
	"github.com/vocalign/vocalign/pkg/provider/asr"
	asrmock "github.com/vocalign/vocalign/pkg/provider/asr/mock"
	asropenai "github.com/vocalign/vocalign/pkg/provider/asr/openai"
	asrwhisper "github.com/vocalign/vocalign/pkg/provider/asr/whisper"
	"github.com/vocalign/vocalign/pkg/provider/vocab"
	"github.com/vocalign/vocalign/pkg/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	audioPath := flag.String("audio", "", "path to the recording (wav or mp3)")
	vocabPath := flag.String("vocab", "", "path to the vocabulary list (tsv: english, target text)")
	outDir := flag.String("out", "", "clip output directory (overrides output.clip_dir)")
	metricsAddr := flag.String("metrics-addr", "", "optional address to serve /metrics and health probes on during the run")
	detailed := flag.Bool("detailed", false, "print the full integrity report instead of the summary")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "vocalign: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "vocalign: %v\n", err)
		}
		return 1
	}
	if *audioPath == "" || *vocabPath == "" {
		fmt.Fprintln(os.Stderr, "vocalign: -audio and -vocab are required")
		flag.Usage()
		return 1
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(sctx); err != nil {
			slog.Warn("metrics shutdown failed", "err", err)
		}
	}()

	registry := newRegistry()
	provider, err := buildProvider(registry, cfg)
	if err != nil {
		slog.Error("failed to build transcription provider", "err", err)
		return 1
	}

	if *metricsAddr != "" {
		startDebugServer(*metricsAddr, provider)
	}

	source, err := registry.CreateVocab("tsv", *vocabPath)
	if err != nil {
		slog.Error("failed to build vocabulary source", "err", err)
		return 1
	}
	entries, err := source.Entries(ctx)
	if err != nil {
		slog.Error("failed to read vocabulary", "err", err)
		return 1
	}
	samples, sampleRate, err := audio.NewFileLoader().Load(*audioPath)
	if err != nil {
		slog.Error("failed to load audio", "err", err)
		return 1
	}
	slog.Info("inputs loaded",
		"entries", len(entries),
		"audio_seconds", float64(len(samples))/float64(sampleRate),
		"sample_rate", sampleRate,
	)

	engine := pipeline.NewEngine(provider, engineOptions(cfg, *outDir)...)
	result, err := engine.Run(ctx, entries, samples, sampleRate)

	if result != nil && result.Report != nil {
		if *detailed {
			fmt.Println(result.Report.Detailed())
		} else {
			fmt.Println(result.Report.Summary())
		}
	}

	var halted *pipeline.ErrHalted
	switch {
	case errors.As(err, &halted):
		slog.Error("pipeline halted", "checkpoint", halted.Checkpoint)
		return 2
	case err != nil:
		slog.Error("pipeline failed", "err", err)
		return 1
	}

	slog.Info("alignment complete",
		"pairs", len(result.Pairs),
		"quality", result.Stats.QualityLabel,
		"needs_review", result.Stats.NeedsReview,
	)
	return 0
}

// newRegistry registers every backend this binary can construct.
func newRegistry() *config.Registry {
	reg := config.NewRegistry()
	reg.RegisterASR("whisper-native", func(entry config.ProviderEntry) (asr.Provider, error) {
		var opts []asrwhisper.Option
		if entry.Language != "" {
			opts = append(opts, asrwhisper.WithLanguage(entry.Language))
		}
		return asrwhisper.New(entry.Model, opts...)
	})
	reg.RegisterASR("openai", func(entry config.ProviderEntry) (asr.Provider, error) {
		var opts []asropenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, asropenai.WithBaseURL(entry.BaseURL))
		}
		if entry.Language != "" {
			opts = append(opts, asropenai.WithLanguage(entry.Language))
		}
		return asropenai.New(entry.APIKey, entry.Model, opts...)
	})
	reg.RegisterASR("mock", func(config.ProviderEntry) (asr.Provider, error) {
		return &asrmock.Provider{Default: types.Transcription{Confidence: 0.5}}, nil
	})
	reg.RegisterVocab("tsv", func(path string) (vocab.Source, error) {
		return vocab.NewTSVSource(path), nil
	})
	return reg
}

// buildProvider constructs the primary transcription backend and wraps it
// with circuit-breaker failover when fallbacks are configured.
func buildProvider(reg *config.Registry, cfg *config.Config) (asr.Provider, error) {
	primary, err := reg.CreateASR(cfg.Providers.ASR)
	if err != nil {
		return nil, err
	}
	if len(cfg.Providers.Fallbacks) == 0 {
		return primary, nil
	}

	group := resilience.NewASRFallback(primary, cfg.Providers.ASR.Name, resilience.FallbackConfig{})
	for _, entry := range cfg.Providers.Fallbacks {
		fb, err := reg.CreateASR(entry)
		if err != nil {
			return nil, fmt.Errorf("fallback %q: %w", entry.Name, err)
		}
		group.AddFallback(entry.Name, fb)
	}
	return group, nil
}

// engineOptions translates file configuration into pipeline options.
func engineOptions(cfg *config.Config, outDir string) []pipeline.Option {
	var opts []pipeline.Option

	var segOpts []segment.Option
	if cfg.Segmenter.WindowMs > 0 {
		segOpts = append(segOpts, segment.WithWindowMs(cfg.Segmenter.WindowMs))
	}
	if cfg.Segmenter.SilenceFloorDB != 0 {
		segOpts = append(segOpts, segment.WithSilenceFloor(cfg.Segmenter.SilenceFloorDB))
	}
	if cfg.Segmenter.MinSilenceMs > 0 {
		segOpts = append(segOpts, segment.WithMinSilenceMs(cfg.Segmenter.MinSilenceMs))
	}
	if cfg.Segmenter.OffsetStep > 0 {
		segOpts = append(segOpts, segment.WithOffsetRange(cfg.Segmenter.OffsetMin, cfg.Segmenter.OffsetMax, cfg.Segmenter.OffsetStep))
	}
	if len(segOpts) > 0 {
		opts = append(opts, pipeline.WithDetector(segment.New(segOpts...)))
	}

	var cmpOpts []phonetic.Option
	if cfg.Comparator.MatchThreshold > 0 {
		cmpOpts = append(cmpOpts, phonetic.WithMatchThreshold(cfg.Comparator.MatchThreshold))
	}
	if cfg.Comparator.SimilarSoundScore > 0 {
		cmpOpts = append(cmpOpts, phonetic.WithSimilarSoundScore(cfg.Comparator.SimilarSoundScore))
	}
	if len(cmpOpts) > 0 {
		opts = append(opts, pipeline.WithComparator(phonetic.New(cmpOpts...)))
	}

	var alignOpts []align.AlignerOption
	if cfg.Aligner.Window > 0 {
		alignOpts = append(alignOpts, align.WithWindow(cfg.Aligner.Window))
	}
	if cfg.Aligner.ASRWeight > 0 || cfg.Aligner.SimilarityWeight > 0 {
		alignOpts = append(alignOpts, align.WithWeights(cfg.Aligner.ASRWeight, cfg.Aligner.SimilarityWeight))
	}
	if cfg.Aligner.Concurrency > 0 {
		alignOpts = append(alignOpts, align.WithConcurrency(cfg.Aligner.Concurrency))
	}
	if len(alignOpts) > 0 {
		opts = append(opts, pipeline.WithAligner(align.NewAligner(alignOpts...)))
	}

	if cfg.Reassigner.SwapMargin > 0 {
		opts = append(opts, pipeline.WithReassigner(align.NewReassigner(align.WithSwapMargin(cfg.Reassigner.SwapMargin))))
	}

	opts = append(opts, pipeline.WithValidation(validationConfig(cfg.Validation)))

	clipDir := cfg.Output.ClipDir
	if outDir != "" {
		clipDir = outDir
	}
	if clipDir != "" {
		var writer audio.ClipWriter = audio.NewMP3ClipWriter()
		if cfg.Output.ClipFormat == config.ClipWAV {
			writer = audio.NewWAVClipWriter()
		}
		opts = append(opts, pipeline.WithClipWriter(writer, clipDir))
	}
	return opts
}

// validationConfig maps the file schema onto a validate.Config, starting
// from the strictness preset and applying explicit overrides.
func validationConfig(vc config.ValidationConfig) validate.Config {
	strictness := validate.StrictnessNormal
	if vc.Strictness != "" {
		strictness = validate.Strictness(vc.Strictness)
	}
	cfg := validate.NewConfig(strictness)

	if vc.HaltOnCritical != nil {
		cfg.HaltOnCritical = *vc.HaltOnCritical
	}
	cfg.CacheResults = vc.CacheResults
	cfg.MaxValidationSeconds = vc.MaxValidationSeconds
	for name, enabled := range vc.EnabledCheckpoints {
		cfg.EnabledCheckpoints[types.Checkpoint(name)] = enabled
	}
	for name, w := range vc.Fusion {
		switch name {
		case "timing":
			cfg.Fusion.Timing = w
		case "duration":
			cfg.Fusion.Duration = w
		case "audio_quality":
			cfg.Fusion.AudioQuality = w
		case "extraction":
			cfg.Fusion.Extraction = w
		case "semantic":
			cfg.Fusion.Semantic = w
		}
	}
	for name, w := range vc.Cross {
		switch name {
		case "duration":
			cfg.Cross.Duration = w
		case "energy":
			cfg.Cross.Energy = w
		case "phonetic":
			cfg.Cross.Phonetic = w
		case "positional":
			cfg.Cross.Positional = w
		}
	}
	return cfg
}

// startDebugServer serves Prometheus metrics and health probes for the
// duration of the run. Long recordings can take minutes to align; the
// endpoints let an operator watch progress.
func startDebugServer(addr string, provider asr.Provider) {
	h := health.New(health.Checker{
		Name: "provider",
		Check: func(ctx context.Context) error {
			if provider == nil {
				return errors.New("no transcription provider")
			}
			return nil
		},
	})
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	h.Register(mux)

	go func() {
		slog.Info("debug server listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("debug server stopped", "err", err)
		}
	}()
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var lvl slog.Level
	switch cfg.Level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
