// Package health serves Kubernetes-style liveness and readiness probes.
//
// Registered checks are polled by a single background goroutine; the probe
// endpoints answer from the cached results so a slow dependency cannot slow
// down the kubelet.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports the health of one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

type kind int

const (
	liveness kind = iota
	readiness
)

type check struct {
	name    string
	kind    kind
	timeout time.Duration
	fn      CheckFunc
}

// Health polls registered checks and answers /livez and /readyz probes.
type Health struct {
	ready atomic.Bool

	mu      sync.RWMutex
	checks  []check
	results map[string]error
	cancel  context.CancelFunc
}

// New creates a Health with no checks. The service starts not-ready; call
// SetReady(true) once initialization finishes.
func New() *Health {
	return &Health{results: make(map[string]error)}
}

// AddLivenessCheck registers a check that decides whether the process should
// be restarted.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.add(check{name: name, kind: liveness, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a check that decides whether the process should
// receive traffic.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.add(check{name: name, kind: readiness, timeout: timeout, fn: fn})
}

func (h *Health) add(c check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, c)
}

// Start runs every registered check once, then keeps polling at the given
// interval until the context is cancelled or Stop is called.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()

	h.poll(ctx)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.poll(ctx)
			}
		}
	}()
}

func (h *Health) poll(ctx context.Context) {
	h.mu.RLock()
	checks := h.checks
	h.mu.RUnlock()

	results := make(map[string]error, len(checks))
	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		results[c.name] = c.fn(checkCtx)
		cancel()
	}

	h.mu.Lock()
	h.results = results
	h.mu.Unlock()
}

// Stop cancels the polling goroutine. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate. It is set to true after startup
// and back to false at the beginning of graceful shutdown so load balancers
// drain the instance.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the gate is open and every readiness check passed
// on its last poll.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(h.failures(readiness)) == 0
}

// failures returns the name -> message map of failing checks of a kind.
func (h *Health) failures(k kind) map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]string)
	for _, c := range h.checks {
		if c.kind != k {
			continue
		}
		if err, ok := h.results[c.name]; ok && err != nil {
			out[c.name] = err.Error()
		}
	}
	return out
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint answers the /livez probe: 200 when all liveness checks passed
// on the last poll, 503 with per-check messages otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, h.failures(liveness))
}

// ReadyEndpoint answers the /readyz probe. It also fails while the manual
// readiness gate is closed.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := h.failures(readiness)
	if !h.ready.Load() {
		failures["_gate"] = "service is not ready"
	}
	writeStatus(w, failures)
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp = statusResponse{Status: "unhealthy", Checks: failures}
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
