// Package mock provides a test double for the vocab.Source interface.
package mock

import (
	"context"
	"sync"

	"github.com/vocalign/vocalign/pkg/provider/vocab"
	"github.com/vocalign/vocalign/pkg/types"
)

// Source is a mock implementation of vocab.Source.
type Source struct {
	mu sync.Mutex

	// List is returned by Entries.
	List []types.VocabularyEntry

	// Err, if non-nil, is returned as the error from Entries.
	Err error

	// CallCount records how many times Entries was invoked.
	CallCount int
}

// Compile-time interface assertion.
var _ vocab.Source = (*Source)(nil)

// Entries returns List, Err.
func (s *Source) Entries(_ context.Context) ([]types.VocabularyEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCount++
	if s.Err != nil {
		return nil, s.Err
	}
	return s.List, nil
}
