// Package config provides the configuration schema, loader, and provider
// registry for the vocalign pipeline.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Strictness selects the validation preset.
type Strictness string

const (
	StrictnessLenient Strictness = "lenient"
	StrictnessNormal  Strictness = "normal"
	StrictnessStrict  Strictness = "strict"
)

// IsValid reports whether s is a recognised strictness preset.
func (s Strictness) IsValid() bool {
	switch s {
	case StrictnessLenient, StrictnessNormal, StrictnessStrict:
		return true
	}
	return false
}

// ClipFormat selects the per-segment clip container.
type ClipFormat string

const (
	ClipMP3 ClipFormat = "mp3"
	ClipWAV ClipFormat = "wav"
)

// IsValid reports whether f is a recognised clip format.
func (f ClipFormat) IsValid() bool {
	return f == ClipMP3 || f == ClipWAV
}

// Config is the root configuration structure, typically loaded from a YAML
// file using [Load] or [LoadFromReader].
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Segmenter  SegmenterConfig  `yaml:"segmenter"`
	Comparator ComparatorConfig `yaml:"comparator"`
	Aligner    AlignerConfig    `yaml:"aligner"`
	Reassigner ReassignerConfig `yaml:"reassigner"`
	Validation ValidationConfig `yaml:"validation"`
	Output     OutputConfig     `yaml:"output"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level controls verbosity. Defaults to info.
	Level LogLevel `yaml:"level"`

	// Format is "text" or "json". Defaults to text.
	Format string `yaml:"format"`
}

// ProvidersConfig declares the transcription backends. ASR is the primary;
// Fallbacks are tried in order when the primary fails or its circuit
// breaker is open.
type ProvidersConfig struct {
	ASR       ProviderEntry   `yaml:"asr"`
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// ProviderEntry is the common configuration block shared by all
// transcription backends. Name selects the implementation.
type ProviderEntry struct {
	// Name selects the backend: "whisper-native", "openai", or "mock".
	Name string `yaml:"name"`

	// APIKey authenticates hosted backends.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides a hosted backend's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects the model: a ggml file path for whisper-native, a
	// model name for hosted backends.
	Model string `yaml:"model"`

	// Language is the expected speech language code (e.g. "yue", "zh").
	Language string `yaml:"language"`
}

// SegmenterConfig tunes boundary detection.
type SegmenterConfig struct {
	// WindowMs is the analysis frame length in milliseconds.
	WindowMs int `yaml:"window_ms"`

	// SilenceFloorDB is the energy threshold below which a frame counts
	// as silence.
	SilenceFloorDB float64 `yaml:"silence_floor_db"`

	// MinSilenceMs is the minimum silence run treated as a gap.
	MinSilenceMs int `yaml:"min_silence_ms"`

	// OffsetMin, OffsetMax, OffsetStep define the start-offset search
	// range in seconds.
	OffsetMin  float64 `yaml:"offset_min"`
	OffsetMax  float64 `yaml:"offset_max"`
	OffsetStep float64 `yaml:"offset_step"`
}

// ComparatorConfig tunes phonetic comparison.
type ComparatorConfig struct {
	// MatchThreshold is the similarity at or above which two texts are
	// considered the same term.
	MatchThreshold float64 `yaml:"match_threshold"`

	// SimilarSoundScore is the credit given to syllables that sound alike
	// without being identical.
	SimilarSoundScore float64 `yaml:"similar_sound_score"`
}

// AlignerConfig tunes the windowed candidate search.
type AlignerConfig struct {
	// Window is how many positions to search each side of the expected
	// index.
	Window int `yaml:"window"`

	// ASRWeight and SimilarityWeight combine backend confidence with
	// phonetic similarity into the candidate score.
	ASRWeight        float64 `yaml:"asr_weight"`
	SimilarityWeight float64 `yaml:"similarity_weight"`

	// Concurrency bounds parallel candidate transcriptions.
	Concurrency int `yaml:"concurrency"`
}

// ReassignerConfig tunes the whole-sequence repair pass.
type ReassignerConfig struct {
	// SwapMargin is the minimum combined similarity improvement required
	// to apply a swap.
	SwapMargin float64 `yaml:"swap_margin"`
}

// ValidationConfig tunes the integrity framework.
type ValidationConfig struct {
	Strictness           Strictness      `yaml:"strictness"`
	HaltOnCritical       *bool           `yaml:"halt_on_critical"`
	EnabledCheckpoints   map[string]bool `yaml:"enabled_checkpoints"`
	CacheResults         bool            `yaml:"cache_results"`
	MaxValidationSeconds float64         `yaml:"max_validation_seconds"`

	// Fusion and Cross override individual confidence fusion weights by
	// name (timing, duration, audio_quality, extraction, semantic /
	// duration, energy, phonetic, positional). Absent keys keep the
	// preset values.
	Fusion map[string]float64 `yaml:"fusion_weights"`
	Cross  map[string]float64 `yaml:"cross_weights"`
}

// OutputConfig controls artifact generation.
type OutputConfig struct {
	// ClipDir is the directory per-segment clips are written to. Empty
	// disables clip writing.
	ClipDir string `yaml:"clip_dir"`

	// ClipFormat selects mp3 or wav. Defaults to mp3.
	ClipFormat ClipFormat `yaml:"clip_format"`
}
