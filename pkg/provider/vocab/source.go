// Package vocab defines the Source interface for vocabulary-list providers.
//
// Document and table parsing live outside the alignment engine; a Source is
// the seam through which a parser hands the engine its ordered entries. The
// engine only depends on two guarantees: entries arrive in stable source
// order (ascending RowIndex) and are never mutated afterwards.
package vocab

import (
	"context"

	"github.com/vocalign/vocalign/pkg/types"
)

// Source supplies the ordered vocabulary list for one run.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// Entries returns all vocabulary entries in stable source order.
	Entries(ctx context.Context) ([]types.VocabularyEntry, error)
}
