package phonetic_test

import (
	"testing"

	"github.com/vocalign/vocalign/internal/phonetic"
)

func TestSimilarity_IdenticalAfterRomanization(t *testing.T) {
	t.Parallel()

	c := phonetic.New()

	// Both characters are in the curated table, so the transcription
	// romanizes to exactly the expected Jyutping.
	if got := c.Similarity("你好", "nei5 hou2"); got != 1.0 {
		t.Errorf("Similarity(你好, nei5 hou2) = %f, want 1.0", got)
	}
	if got := c.Similarity("nei5 hou2", "nei5 hou2"); got != 1.0 {
		t.Errorf("Similarity(identical) = %f, want 1.0", got)
	}
}

func TestSimilarity_EmptyInputs(t *testing.T) {
	t.Parallel()

	c := phonetic.New()

	if got := c.Similarity("", "nei5 hou2"); got != 0.0 {
		t.Errorf("Similarity(empty, text) = %f, want 0.0", got)
	}
	if got := c.Similarity("你好", ""); got != 0.0 {
		t.Errorf("Similarity(text, empty) = %f, want 0.0", got)
	}
	if got := c.Similarity("", ""); got != 1.0 {
		t.Errorf("Similarity(empty, empty) = %f, want 1.0", got)
	}
}

func TestSimilarity_Bounds(t *testing.T) {
	t.Parallel()

	c := phonetic.New()
	pairs := [][2]string{
		{"水", "seoi5"},
		{"早晨", "zou2 san4"},
		{"completely unrelated", "m4 goi1"},
		{"茶", "caa4 faan6 sik6"},
		{"!!!", "???"},
	}
	for _, p := range pairs {
		got := c.Similarity(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("Similarity(%q, %q) = %f, out of [0, 1]", p[0], p[1], got)
		}
	}
}

func TestSimilarity_SimilarSoundCredit(t *testing.T) {
	t.Parallel()

	c := phonetic.New()

	// 水 romanizes to seoi2; against seoi5 the tone differs but the
	// syllable sounds the same, so the walk credits the similar-sound
	// score rather than a full or zero match.
	got := c.Similarity("水", "seoi5")
	if got < 0.6 || got >= 1.0 {
		t.Errorf("Similarity(水, seoi5) = %f, want in [0.6, 1.0)", got)
	}
}

func TestIsMatch_ThresholdConfigurable(t *testing.T) {
	t.Parallel()

	if !phonetic.New().IsMatch("水", "seoi5") {
		t.Error("IsMatch(水, seoi5) = false at default threshold, want true")
	}
	strict := phonetic.New(phonetic.WithMatchThreshold(0.9))
	if strict.IsMatch("水", "seoi5") {
		t.Error("IsMatch(水, seoi5) = true at threshold 0.9, want false")
	}
	if strict.MatchThreshold() != 0.9 {
		t.Errorf("MatchThreshold() = %f, want 0.9", strict.MatchThreshold())
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	got := phonetic.Normalize("  Nei5,  Hou2! ")
	if got != "nei5 hou2" {
		t.Errorf("Normalize = %q, want %q", got, "nei5 hou2")
	}

	for _, s := range []string{"  Nei5,  Hou2! ", "m4 goi1", "", "你好"} {
		once := phonetic.Normalize(s)
		twice := phonetic.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", s, once, twice)
		}
	}
}

func TestRomanize_MixedScript(t *testing.T) {
	t.Parallel()

	// Latin passes through lowercased, Han goes through the table,
	// punctuation is dropped.
	got := phonetic.Romanize("OK 你好!")
	if got != "ok nei5 hou2" {
		t.Errorf("Romanize = %q, want %q", got, "ok nei5 hou2")
	}
}
