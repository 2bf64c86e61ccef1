package vocab

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vocalign/vocalign/pkg/types"
)

// TSVSource reads vocabulary entries from a tab-separated file with one
// row per term: english gloss, target text, and an optional extraction
// confidence. Lines starting with '#' and blank lines are skipped.
type TSVSource struct {
	path string
}

var _ Source = (*TSVSource)(nil)

// NewTSVSource creates a source reading from path. The file is opened on
// each Entries call, not at construction.
func NewTSVSource(path string) *TSVSource {
	return &TSVSource{path: path}
}

// Entries parses the file into vocabulary entries. Row indexes count
// data rows from zero, skipped lines excluded.
func (s *TSVSource) Entries(ctx context.Context) ([]types.VocabularyEntry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("vocab: open %q: %w", s.path, err)
	}
	defer f.Close()

	var entries []types.VocabularyEntry
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		e := types.VocabularyEntry{
			RowIndex:   len(entries),
			English:    strings.TrimSpace(fields[0]),
			Confidence: 1.0,
		}
		if len(fields) > 1 {
			e.TargetText = strings.TrimSpace(fields[1])
		}
		if len(fields) > 2 {
			var conf float64
			if _, err := fmt.Sscanf(strings.TrimSpace(fields[2]), "%f", &conf); err == nil && conf >= 0 && conf <= 1 {
				e.Confidence = conf
			}
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read %q at line %d: %w", s.path, line, err)
	}
	return entries, nil
}
