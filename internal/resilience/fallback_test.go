package resilience

import (
	"errors"
	"slices"
	"testing"
	"time"
)

// fakeEngine stands in for an ASR backend in chain tests.
type fakeEngine struct {
	id   string
	fail bool
}

func newEngineGroup(cfg CircuitBreakerConfig, engines ...*fakeEngine) *FallbackGroup[*fakeEngine] {
	fg := NewFallbackGroup(engines[0], engines[0].id, FallbackConfig{CircuitBreaker: cfg})
	for _, e := range engines[1:] {
		fg.AddFallback(e.id, e)
	}
	return fg
}

func TestFallbackGroup_StopsAtFirstHealthyBackend(t *testing.T) {
	local := &fakeEngine{id: "local"}
	hosted := &fakeEngine{id: "hosted"}
	fg := newEngineGroup(CircuitBreakerConfig{MaxFailures: 3}, local, hosted)

	var tried []string
	err := fg.Execute(func(e *fakeEngine) error {
		tried = append(tried, e.id)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(tried, []string{"local"}) {
		t.Fatalf("tried = %v, want [local] only", tried)
	}
}

func TestFallbackGroup_WalksChainInOrder(t *testing.T) {
	local := &fakeEngine{id: "local", fail: true}
	hosted := &fakeEngine{id: "hosted", fail: true}
	spare := &fakeEngine{id: "spare"}
	fg := newEngineGroup(CircuitBreakerConfig{MaxFailures: 3}, local, hosted, spare)

	var tried []string
	err := fg.Execute(func(e *fakeEngine) error {
		tried = append(tried, e.id)
		if e.fail {
			return errBackend
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(tried, []string{"local", "hosted", "spare"}) {
		t.Fatalf("tried = %v, want full chain order", tried)
	}
}

func TestFallbackGroup_ExhaustedChainWrapsLastError(t *testing.T) {
	local := &fakeEngine{id: "local", fail: true}
	hosted := &fakeEngine{id: "hosted", fail: true}
	fg := newEngineGroup(CircuitBreakerConfig{MaxFailures: 3}, local, hosted)

	err := fg.Execute(func(e *fakeEngine) error { return errBackend })
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroup_OpenBreakerShortCircuitsHead(t *testing.T) {
	local := &fakeEngine{id: "local", fail: true}
	hosted := &fakeEngine{id: "hosted"}
	fg := newEngineGroup(CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	}, local, hosted)

	run := func() []string {
		var tried []string
		err := fg.Execute(func(e *fakeEngine) error {
			tried = append(tried, e.id)
			if e.fail {
				return errBackend
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return tried
	}

	// Two failovers open the local breaker.
	run()
	run()

	// The third call must not touch the local engine at all.
	if tried := run(); !slices.Equal(tried, []string{"hosted"}) {
		t.Fatalf("tried = %v, want [hosted] once local breaker is open", tried)
	}
}

func TestExecuteWithResult_ReturnsHeadResult(t *testing.T) {
	local := &fakeEngine{id: "local"}
	hosted := &fakeEngine{id: "hosted"}
	fg := newEngineGroup(CircuitBreakerConfig{MaxFailures: 3}, local, hosted)

	got, err := ExecuteWithResult(fg, func(e *fakeEngine) (string, error) {
		return "text from " + e.id, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "text from local"; got != want {
		t.Fatalf("result = %q, want %q", got, want)
	}
}

func TestExecuteWithResult_FailsOverWithResult(t *testing.T) {
	local := &fakeEngine{id: "local", fail: true}
	hosted := &fakeEngine{id: "hosted"}
	fg := newEngineGroup(CircuitBreakerConfig{MaxFailures: 3}, local, hosted)

	got, err := ExecuteWithResult(fg, func(e *fakeEngine) (string, error) {
		if e.fail {
			return "", errBackend
		}
		return "text from " + e.id, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "text from hosted"; got != want {
		t.Fatalf("result = %q, want %q", got, want)
	}
}

func TestExecuteWithResult_AllFailReturnsZero(t *testing.T) {
	local := &fakeEngine{id: "local", fail: true}
	fg := newEngineGroup(CircuitBreakerConfig{MaxFailures: 3}, local)

	got, err := ExecuteWithResult(fg, func(e *fakeEngine) (string, error) {
		return "partial", errBackend
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
	if got != "" {
		t.Fatalf("result = %q, want zero value on failure", got)
	}
}
