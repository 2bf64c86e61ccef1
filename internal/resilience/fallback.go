package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when a [FallbackGroup] exhausts its chain: every
// backend either failed or sat behind an open breaker.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig configures the breaker created for each backend in a
// [FallbackGroup].
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// chainLink is one backend in the failover chain together with its
// dedicated breaker.
type chainLink[T any] struct {
	name    string
	backend T
	breaker *CircuitBreaker
}

// FallbackGroup chains a primary and zero or more fallback backends of the
// same type. Calls go to the first backend whose breaker admits them; a
// failure moves on to the next link. A whisper model that keeps erroring is
// therefore skipped for the breaker's cooldown while the hosted API carries
// the load.
//
// The chain must be assembled before use; [FallbackGroup.AddFallback] is
// not safe to call concurrently with Execute.
type FallbackGroup[T any] struct {
	chain []chainLink[T]
	cfg   FallbackConfig
}

// NewFallbackGroup creates a group with primary as the head of the chain.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	g := &FallbackGroup[T]{cfg: cfg}
	g.append(primaryName, primary)
	return g
}

// AddFallback appends a backend to the end of the chain.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	fg.append(name, fallback)
}

func (fg *FallbackGroup[T]) append(name string, backend T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.chain = append(fg.chain, chainLink[T]{
		name:    name,
		backend: backend,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Execute runs fn against each backend in chain order until one succeeds.
// Returns [ErrAllFailed] wrapping the last error when none does.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	_, err := ExecuteWithResult(fg, func(backend T) (struct{}, error) {
		return struct{}{}, fn(backend)
	})
	return err
}

// ExecuteWithResult runs fn against each backend in chain order until one
// succeeds, returning that backend's result. A package-level function, as
// Go has no method-level type parameters.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var lastErr error
	for i := range fg.chain {
		link := &fg.chain[i]
		var result R
		err := link.breaker.Execute(func() error {
			var callErr error
			result, callErr = fn(link.backend)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider (circuit open)", "provider", link.name)
		} else {
			slog.Warn("provider failed, trying next", "provider", link.name, "error", err)
		}
	}
	var zero R
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
