package config_test

import (
	"strings"
	"testing"

	"github.com/vocalign/vocalign/internal/config"
)

const validYAML = `
logging:
  level: debug
  format: json
providers:
  asr:
    name: openai
    api_key: sk-test
    model: whisper-1
    language: yue
  fallbacks:
    - name: mock
segmenter:
  window_ms: 25
  silence_floor_db: -40
  min_silence_ms: 120
  offset_min: -2.0
  offset_max: 5.0
  offset_step: 0.5
comparator:
  match_threshold: 0.6
  similar_sound_score: 0.7
aligner:
  window: 2
  asr_weight: 0.3
  similarity_weight: 0.7
  concurrency: 4
reassigner:
  swap_margin: 0.1
validation:
  strictness: strict
  halt_on_critical: false
  cache_results: true
  enabled_checkpoints:
    package_generation: false
  fusion_weights:
    semantic: 0.4
output:
  clip_dir: ./clips
  clip_format: mp3
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Providers.ASR.Name != "openai" {
		t.Errorf("asr name = %q, want openai", cfg.Providers.ASR.Name)
	}
	if len(cfg.Providers.Fallbacks) != 1 || cfg.Providers.Fallbacks[0].Name != "mock" {
		t.Errorf("fallbacks = %+v, want one mock entry", cfg.Providers.Fallbacks)
	}
	if cfg.Validation.Strictness != config.StrictnessStrict {
		t.Errorf("strictness = %q, want strict", cfg.Validation.Strictness)
	}
	if cfg.Validation.HaltOnCritical == nil || *cfg.Validation.HaltOnCritical {
		t.Error("halt_on_critical not decoded as explicit false")
	}
	if enabled, ok := cfg.Validation.EnabledCheckpoints["package_generation"]; !ok || enabled {
		t.Error("enabled_checkpoints.package_generation not decoded as false")
	}
	if cfg.Validation.Fusion["semantic"] != 0.4 {
		t.Errorf("fusion semantic weight = %f, want 0.4", cfg.Validation.Fusion["semantic"])
	}
	if cfg.Segmenter.OffsetMin != -2.0 || cfg.Segmenter.OffsetMax != 5.0 {
		t.Errorf("offset range = [%f, %f]", cfg.Segmenter.OffsetMin, cfg.Segmenter.OffsetMax)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("segmentor:\n  window_ms: 25\n"))
	if err == nil {
		t.Fatal("misspelled section accepted")
	}
}

func TestLoadFromReader_MalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("logging: [unclosed"))
	if err == nil {
		t.Fatal("malformed yaml accepted")
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	t.Parallel()

	bad := `
logging:
  level: loud
providers:
  asr:
    name: whisper-native
comparator:
  match_threshold: 1.5
reassigner:
  swap_margin: -0.2
validation:
  strictness: paranoid
  enabled_checkpoints:
    audio_segmentaton: true
`
	_, err := config.LoadFromReader(strings.NewReader(bad))
	if err == nil {
		t.Fatal("invalid config accepted")
	}
	for _, want := range []string{
		"logging.level",
		"providers.asr.model is required",
		"match_threshold",
		"swap_margin",
		"strictness",
		"audio_segmentaton",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error missing %q: %v", want, err)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load("/nonexistent/vocalign.yaml")
	if err == nil {
		t.Fatal("Load succeeded on a missing file")
	}
}
