package phonetic

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
)

// pinyinArgs requests tone-number style output ("zhong1") from go-pinyin so
// tone digits survive into the substitution step.
var pinyinArgs = func() pinyin.Args {
	a := pinyin.NewArgs()
	a.Style = pinyin.Tone3
	return a
}()

// Romanize maps transcribed text (typically Han characters from the ASR
// output) to space-separated Jyutping-like syllables.
//
// Resolution order per character:
//  1. the curated jyutping table;
//  2. the Mandarin pinyin romanizer followed by the cross-dialect
//     substitution tables (an approximation, not an authority);
//  3. Latin letters and digits pass through as literal tokens;
//  4. anything else (punctuation, symbols) is dropped.
func Romanize(text string) string {
	var (
		syllables []string
		latin     strings.Builder
	)
	flushLatin := func() {
		if latin.Len() > 0 {
			syllables = append(syllables, strings.ToLower(latin.String()))
			latin.Reset()
		}
	}

	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			latin.WriteRune(r)
		case r == ' ' || r == '\t':
			flushLatin()
		case unicode.Is(unicode.Han, r):
			flushLatin()
			if syl, ok := jyutpingTable[r]; ok {
				syllables = append(syllables, syl)
				continue
			}
			if py := pinyin.SinglePinyin(r, pinyinArgs); len(py) > 0 {
				syllables = append(syllables, pinyinToJyutping(py[0]))
			}
		default:
			// Punctuation and symbols carry no phonetic content.
			flushLatin()
		}
	}
	flushLatin()

	return strings.Join(syllables, " ")
}

// pinyinToJyutping approximates a Mandarin tone-number pinyin syllable as a
// Cantonese one by remapping the initial, the final, and the tone digit
// through the cross-dialect substitution tables.
func pinyinToJyutping(syl string) string {
	syl = strings.ToLower(strings.TrimSpace(syl))
	if syl == "" {
		return ""
	}

	// Peel off a trailing tone digit.
	var tone byte
	if last := syl[len(syl)-1]; last >= '0' && last <= '9' {
		tone = last
		syl = syl[:len(syl)-1]
	}

	// Greedy initial match, longest first.
	var initial, final string
	for _, ini := range pinyinInitials {
		if strings.HasPrefix(syl, ini) && len(syl) > len(ini) {
			initial = ini
			final = syl[len(ini):]
			break
		}
	}
	if initial == "" {
		final = syl
	}

	if sub, ok := initialSubstitutions[initial]; ok {
		initial = sub
	}
	if sub, ok := finalSubstitutions[final]; ok {
		final = sub
	}

	out := initial + final
	if tone != 0 {
		if sub, ok := toneSubstitutions[tone]; ok {
			tone = sub
		}
		out += string(tone)
	}
	return out
}
