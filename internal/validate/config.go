package validate

import "github.com/vocalign/vocalign/pkg/types"

// Strictness selects a preset scaling of all validation thresholds.
type Strictness string

const (
	StrictnessLenient Strictness = "lenient"
	StrictnessNormal  Strictness = "normal"
	StrictnessStrict  Strictness = "strict"
)

// FusionWeights are the named weights for the per-pair confidence fusion.
// They are empirical tuning constants, overridable through configuration.
type FusionWeights struct {
	Timing       float64 `yaml:"timing"`
	Duration     float64 `yaml:"duration"`
	AudioQuality float64 `yaml:"audio_quality"`
	Extraction   float64 `yaml:"extraction"`
	Semantic     float64 `yaml:"semantic"`
}

// CrossWeights are the named weights for the independent cross-verification
// signal.
type CrossWeights struct {
	Duration   float64 `yaml:"duration"`
	Energy     float64 `yaml:"energy"`
	Phonetic   float64 `yaml:"phonetic"`
	Positional float64 `yaml:"positional"`
}

// Config holds the validation framework's tunables. Zero value is not
// usable; start from [NewConfig].
type Config struct {
	Strictness           Strictness
	HaltOnCritical       bool
	EnabledCheckpoints   map[types.Checkpoint]bool
	CacheResults         bool
	MaxValidationSeconds float64

	// ConfidenceFloor is the per-pair fused confidence below which a pair
	// is reported, and below which filtering removes it.
	ConfidenceFloor float64

	// SilenceFloorDB is the frame energy threshold for silence detection.
	SilenceFloorDB float64

	// AudioQualityFloor marks pairs whose audio quality score falls below
	// it as always-invalid during filtering.
	AudioQualityFloor float64

	// DurationAnomalyZ is the z-score beyond which a segment duration is
	// an outlier.
	DurationAnomalyZ float64

	// CrossVerificationFloor is the minimum acceptable cross-verification
	// score.
	CrossVerificationFloor float64

	// SemanticMismatchFloor is the similarity below which re-transcribed
	// content is considered glued to the wrong word.
	SemanticMismatchFloor float64

	Fusion FusionWeights
	Cross  CrossWeights
}

// NewConfig returns a Config at the given strictness. Lenient and strict
// scale every threshold together relative to normal.
func NewConfig(s Strictness) Config {
	cfg := Config{
		Strictness:     s,
		HaltOnCritical: true,
		EnabledCheckpoints: map[types.Checkpoint]bool{
			types.CheckpointDocumentParsing:   true,
			types.CheckpointAudioSegmentation: true,
			types.CheckpointAlignmentProcess:  true,
			types.CheckpointPackageGeneration: true,
		},
		CacheResults:         false,
		MaxValidationSeconds: 0,

		ConfidenceFloor:        0.6,
		SilenceFloorDB:         -40,
		AudioQualityFloor:      0.2,
		DurationAnomalyZ:       2.5,
		CrossVerificationFloor: 0.5,
		SemanticMismatchFloor:  0.6,

		Fusion: FusionWeights{
			Timing:       0.20,
			Duration:     0.20,
			AudioQuality: 0.15,
			Extraction:   0.15,
			Semantic:     0.25,
		},
		Cross: CrossWeights{
			Duration:   0.30,
			Energy:     0.25,
			Phonetic:   0.25,
			Positional: 0.20,
		},
	}

	switch s {
	case StrictnessLenient:
		cfg.ConfidenceFloor = 0.45
		cfg.SilenceFloorDB = -50
		cfg.AudioQualityFloor = 0.1
		cfg.DurationAnomalyZ = 3.5
		cfg.CrossVerificationFloor = 0.35
		cfg.SemanticMismatchFloor = 0.45
	case StrictnessStrict:
		cfg.ConfidenceFloor = 0.75
		cfg.SilenceFloorDB = -35
		cfg.AudioQualityFloor = 0.3
		cfg.DurationAnomalyZ = 2.0
		cfg.CrossVerificationFloor = 0.65
		cfg.SemanticMismatchFloor = 0.7
	}
	return cfg
}

// CheckpointEnabled reports whether validation runs at the checkpoint.
// Unlisted checkpoints are enabled.
func (c Config) CheckpointEnabled(cp types.Checkpoint) bool {
	if c.EnabledCheckpoints == nil {
		return true
	}
	enabled, ok := c.EnabledCheckpoints[cp]
	if !ok {
		return true
	}
	return enabled
}

// fusionTotal lets the fusion normalize even when overridden weights do
// not sum to 1.
func (w FusionWeights) total() float64 {
	return w.Timing + w.Duration + w.AudioQuality + w.Extraction + w.Semantic
}

func (w CrossWeights) total() float64 {
	return w.Duration + w.Energy + w.Phonetic + w.Positional
}
