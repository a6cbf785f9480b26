// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
)

const checkTimeout = 5 * time.Second

const (
	statusOK           = "ok"
	statusDegraded     = "degraded"
	statusNotReady     = "not_ready"
	statusShuttingDown = "shutting_down"
)

type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a plain function, e.g. an upstream reachability probe.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Handler serves the probes. Liveness only reflects shutdown; readiness also
// pings every named dependency.
type Handler struct {
	names    []string
	checks   map[string]Checker
	ready    atomic.Bool
	shutdown atomic.Bool
}

// NewHandler takes the dependencies readiness depends on, keyed by the name
// reported in the response. A nil checker reports as not configured.
func NewHandler(checks map[string]Checker) *Handler {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	slices.Sort(names)

	h := &Handler{names: names, checks: checks}
	h.ready.Store(true)
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	if h.shutdown.Load() {
		writeProbe(w, http.StatusServiceUnavailable, StatusResponse{Status: statusShuttingDown})
		return
	}
	writeProbe(w, http.StatusOK, StatusResponse{Status: statusOK})
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	switch {
	case h.shutdown.Load():
		writeProbe(w, http.StatusServiceUnavailable, StatusResponse{Status: statusShuttingDown})
		return
	case !h.ready.Load():
		writeProbe(w, http.StatusServiceUnavailable, StatusResponse{Status: statusNotReady})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := ReadinessResponse{Status: statusOK, Checks: h.probe(ctx)}
	code := http.StatusOK
	if slices.ContainsFunc(resp.Checks, func(c HealthCheck) bool { return !c.Healthy }) {
		resp.Status = statusDegraded
		code = http.StatusServiceUnavailable
	}

	writeProbe(w, code, resp)
}

// probe runs every check concurrently; results keep name order.
func (h *Handler) probe(ctx context.Context) []HealthCheck {
	results := make([]HealthCheck, len(h.names))

	var wg sync.WaitGroup
	for i, name := range h.names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = ping(ctx, name, h.checks[name])
		}()
	}
	wg.Wait()

	return results
}

func ping(ctx context.Context, name string, checker Checker) HealthCheck {
	if checker == nil {
		return HealthCheck{Name: name, Message: name + " checker not configured"}
	}

	start := time.Now()
	err := checker.Ping(ctx)
	result := HealthCheck{
		Name:    name,
		Healthy: err == nil,
		Latency: time.Since(start).String(),
	}
	if err != nil {
		result.Message = "ping failed"
	}
	return result
}

func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *Handler) SetShutdown(shutdown bool) {
	h.shutdown.Store(shutdown)
}

func writeProbe(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	core.JSON(w, status, body)
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}
