package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the known transcription backend names. Used by
// [Validate] to warn about unrecognised names.
var ValidProviderNames = []string{"whisper-native", "openai", "mock"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Logging.Level != "" && !cfg.Logging.Level.IsValid() {
		errs = append(errs, fmt.Errorf("logging.level %q is invalid; valid values: debug, info, warn, error", cfg.Logging.Level))
	}
	if cfg.Logging.Format != "" && cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("logging.format %q is invalid; valid values: text, json", cfg.Logging.Format))
	}

	validateProviderName("providers.asr", cfg.Providers.ASR.Name)
	for i, fb := range cfg.Providers.Fallbacks {
		validateProviderName(fmt.Sprintf("providers.fallbacks[%d]", i), fb.Name)
	}
	if cfg.Providers.ASR.Name == "whisper-native" && cfg.Providers.ASR.Model == "" {
		errs = append(errs, errors.New("providers.asr.model is required for whisper-native (path to a ggml model file)"))
	}

	if s := cfg.Segmenter; s.OffsetStep < 0 || s.OffsetMin > s.OffsetMax {
		errs = append(errs, fmt.Errorf("segmenter offset range [%.1f, %.1f] step %.2f is invalid", s.OffsetMin, s.OffsetMax, s.OffsetStep))
	}
	if w := cfg.Segmenter.WindowMs; w < 0 {
		errs = append(errs, fmt.Errorf("segmenter.window_ms %d must not be negative", w))
	}

	if t := cfg.Comparator.MatchThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("comparator.match_threshold %.2f is out of range [0, 1]", t))
	}
	if s := cfg.Comparator.SimilarSoundScore; s < 0 || s > 1 {
		errs = append(errs, fmt.Errorf("comparator.similar_sound_score %.2f is out of range [0, 1]", s))
	}

	if w := cfg.Aligner.Window; w < 0 {
		errs = append(errs, fmt.Errorf("aligner.window %d must not be negative", w))
	}
	if a, s := cfg.Aligner.ASRWeight, cfg.Aligner.SimilarityWeight; a < 0 || s < 0 {
		errs = append(errs, fmt.Errorf("aligner weights (%.2f, %.2f) must not be negative", a, s))
	}

	if m := cfg.Reassigner.SwapMargin; m < 0 || m > 1 {
		errs = append(errs, fmt.Errorf("reassigner.swap_margin %.2f is out of range [0, 1]", m))
	}

	if v := cfg.Validation.Strictness; v != "" && !v.IsValid() {
		errs = append(errs, fmt.Errorf("validation.strictness %q is invalid; valid values: lenient, normal, strict", v))
	}
	for name := range cfg.Validation.EnabledCheckpoints {
		switch name {
		case "document_parsing", "audio_segmentation", "alignment_process", "package_generation":
		default:
			errs = append(errs, fmt.Errorf("validation.enabled_checkpoints key %q is not a known checkpoint", name))
		}
	}
	if t := cfg.Validation.MaxValidationSeconds; t < 0 {
		errs = append(errs, fmt.Errorf("validation.max_validation_seconds %.1f must not be negative", t))
	}

	if f := cfg.Output.ClipFormat; f != "" && !f.IsValid() {
		errs = append(errs, fmt.Errorf("output.clip_format %q is invalid; valid values: mp3, wav", f))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and unknown.
func validateProviderName(field, name string) {
	if name == "" || slices.Contains(ValidProviderNames, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo",
		"field", field,
		"name", name,
		"known", ValidProviderNames,
	)
}
