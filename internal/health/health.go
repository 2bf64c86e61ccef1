// Package health implements the liveness and readiness probes exposed on
// the optional debug listener while an alignment run is in flight.
//
// /healthz answers 200 whenever the process can serve HTTP. /readyz runs
// every registered [Checker] and answers 200 only if all of them pass,
// reporting per-check detail in the body. Both endpoints respond with JSON.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkBudget bounds a single readiness check.
const checkBudget = 5 * time.Second

// Checker probes one dependency of the running aligner. Check returns nil
// when the dependency is usable and must honor ctx cancellation.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// checkDetail is the per-checker entry in a readiness response.
type checkDetail struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
	Elapsed string `json:"elapsed"`
}

// report is the response body for both probe endpoints.
type report struct {
	Status string                 `json:"status"`
	Checks map[string]checkDetail `json:"checks,omitempty"`
}

// Handler serves the probe endpoints. The checker set is fixed at
// construction, so a Handler is safe for concurrent requests.
type Handler struct {
	checkers []Checker
}

// New builds a Handler over the given checkers. Readiness evaluates them
// sequentially in the order given.
func New(checkers ...Checker) *Handler {
	h := &Handler{checkers: make([]Checker, len(checkers))}
	copy(h.checkers, checkers)
	return h
}

// Healthz reports liveness. It never fails: a process that reached this
// handler is alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, report{Status: "ok"})
}

// Readyz reports readiness. Each checker runs under a [checkBudget]
// deadline derived from the request context; any failure turns the whole
// response into a 503.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep := report{
		Status: "ok",
		Checks: make(map[string]checkDetail, len(h.checkers)),
	}
	code := http.StatusOK

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkBudget)
		start := time.Now()
		err := c.Check(ctx)
		elapsed := time.Since(start)
		cancel()

		detail := checkDetail{Healthy: err == nil, Elapsed: elapsed.String()}
		if err != nil {
			detail.Error = err.Error()
			rep.Status = "fail"
			code = http.StatusServiceUnavailable
		}
		rep.Checks[c.Name] = detail
	}

	respond(w, code, rep)
}

// Register mounts the probe routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func respond(w http.ResponseWriter, code int, rep report) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
