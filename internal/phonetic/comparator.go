// Package phonetic scores how well a transcribed utterance matches an
// expected Jyutping vocabulary entry, despite the ASR engine operating in a
// related-but-different script and dialect.
//
// The comparison proceeds in three stages:
//
//  1. Romanize: map transcribed Han characters to Jyutping syllables using a
//     curated lookup table, falling back to a Mandarin pinyin romanizer plus
//     cross-dialect sound-substitution tables for characters the table does
//     not cover.
//
//  2. Normalize: lowercase, strip punctuation, collapse whitespace on both
//     sides. Normalization is idempotent.
//
//  3. Score: a positional syllable walk (exact match 1.0, similar-sound
//     match 0.7) averaged over the longer token sequence, floored by a
//     character-set Jaccard similarity discounted to 0.8. Similar-sound
//     acceptance uses the first consonant, tone-stripped equality, the
//     cross-dialect tables, and Double Metaphone code overlap.
//
// A similarity at or above the match threshold (default 0.6) is classified
// as a semantic match.
package phonetic

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	defaultMatchThreshold = 0.60

	// similarSoundScore is the contribution of a similar-but-not-exact
	// syllable pair in the positional walk.
	similarSoundScore = 0.7

	// jaccardDiscount scales the fallback character-set similarity so it can
	// rescue a garbled syllable walk without ever outranking one.
	jaccardDiscount = 0.8
)

// Option is a functional option for configuring a Comparator.
type Option func(*Comparator)

// WithMatchThreshold sets the minimum similarity classified as a semantic
// match. Default: 0.60.
func WithMatchThreshold(threshold float64) Option {
	return func(c *Comparator) { c.matchThreshold = threshold }
}

// WithSimilarSoundScore sets the score contributed by a similar-sound
// syllable pair. Default: 0.7.
func WithSimilarSoundScore(score float64) Option {
	return func(c *Comparator) { c.similarScore = score }
}

// Comparator scores transcribed speech against expected Jyutping text.
// All methods are safe for concurrent use; the Comparator is read-only
// after construction.
type Comparator struct {
	matchThreshold float64
	similarScore   float64
}

// New returns a Comparator configured with the supplied options.
func New(opts ...Option) *Comparator {
	c := &Comparator{
		matchThreshold: defaultMatchThreshold,
		similarScore:   similarSoundScore,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// MatchThreshold returns the similarity floor for a semantic match.
func (c *Comparator) MatchThreshold() float64 { return c.matchThreshold }

// Similarity scores how well transcribed (raw ASR output, any script)
// matches expected (Jyutping target text). The result is clamped to [0, 1].
// One empty and one non-empty input score 0; two empty inputs score 1.
func (c *Comparator) Similarity(transcribed, expected string) float64 {
	trans := Normalize(Romanize(transcribed))
	exp := Normalize(expected)

	if trans == exp {
		return 1.0
	}
	if trans == "" || exp == "" {
		return 0.0
	}

	sylScore := c.syllableScore(strings.Fields(trans), strings.Fields(exp))
	jac := charJaccard(trans, exp) * jaccardDiscount

	score := sylScore
	if jac > score {
		score = jac
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// IsMatch reports whether transcribed and expected are semantically the same
// utterance under the configured threshold.
func (c *Comparator) IsMatch(transcribed, expected string) bool {
	return c.Similarity(transcribed, expected) >= c.matchThreshold
}

// syllableScore walks the shorter token sequence comparing position i to
// position i and averages contributions over the longer sequence, so missing
// syllables count against the score.
func (c *Comparator) syllableScore(a, b []string) float64 {
	shorter, longer := a, b
	if len(b) < len(a) {
		shorter, longer = b, a
	}
	if len(longer) == 0 {
		return 0
	}

	var total float64
	for i := range shorter {
		switch {
		case shorter[i] == longer[i]:
			total += 1.0
		case similarSound(shorter[i], longer[i]):
			total += c.similarScore
		}
	}
	return total / float64(len(longer))
}

// similarSound reports whether two syllables plausibly denote the same sound:
// same leading consonant, equality after stripping tone digits, equality
// after cross-dialect substitution, or Double Metaphone code overlap.
func similarSound(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a[0] == b[0] && isConsonant(a[0]) {
		return true
	}
	if stripTones(a) == stripTones(b) {
		return true
	}
	if pinyinToJyutping(a) == b || pinyinToJyutping(b) == a {
		return true
	}
	return metaphoneOverlap(stripTones(a), stripTones(b))
}

// metaphoneOverlap reports whether two romanized tokens share a Double
// Metaphone code. Catches consonant-cluster confusions the simpler rules
// miss (e.g. "zoeng" vs "cheung").
func metaphoneOverlap(a, b string) bool {
	p1, s1 := matchr.DoubleMetaphone(a)
	p2, s2 := matchr.DoubleMetaphone(b)
	if p1 == "" && s1 == "" {
		return false
	}
	for _, x := range []string{p1, s1} {
		if x == "" {
			continue
		}
		if x == p2 || (s2 != "" && x == s2) {
			return true
		}
	}
	return false
}

// stripTones removes trailing digit characters from a syllable.
func stripTones(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return -1
		}
		return r
	}, s)
}

// isConsonant reports whether b is an ASCII consonant letter.
func isConsonant(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return false
	}
	return b >= 'a' && b <= 'z'
}

// charJaccard computes the Jaccard similarity of the two strings' character
// sets, ignoring spaces. A coarse fallback for when syllable tokenization
// disagrees between the two sides.
func charJaccard(a, b string) float64 {
	setA := charSet(a)
	setB := charSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func charSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		if r != ' ' {
			set[r] = struct{}{}
		}
	}
	return set
}

// Normalize lowercases s, strips punctuation and symbols, and collapses
// whitespace runs to single spaces. Normalize(Normalize(x)) == Normalize(x).
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := true // treat leading whitespace as already collapsed
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// dropped
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimRight(b.String(), " ")
}
