package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vocalign/vocalign/pkg/provider/asr"
	"github.com/vocalign/vocalign/pkg/provider/vocab"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory
// has been registered under the requested name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to constructor functions. It is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	asr   map[string]func(ProviderEntry) (asr.Provider, error)
	vocab map[string]func(path string) (vocab.Source, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		asr:   make(map[string]func(ProviderEntry) (asr.Provider, error)),
		vocab: make(map[string]func(path string) (vocab.Source, error)),
	}
}

// RegisterASR registers a transcription backend factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterASR(name string, factory func(ProviderEntry) (asr.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asr[name] = factory
}

// RegisterVocab registers a vocabulary source factory under name.
func (r *Registry) RegisterVocab(name string, factory func(path string) (vocab.Source, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vocab[name] = factory
}

// CreateASR constructs the transcription backend named by entry.Name.
func (r *Registry) CreateASR(entry ProviderEntry) (asr.Provider, error) {
	r.mu.RLock()
	factory, ok := r.asr[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: asr %q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateVocab constructs the vocabulary source named by name for path.
func (r *Registry) CreateVocab(name, path string) (vocab.Source, error) {
	r.mu.RLock()
	factory, ok := r.vocab[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vocab %q", ErrProviderNotRegistered, name)
	}
	return factory(path)
}
