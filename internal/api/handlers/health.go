package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// HealthCheck pings one backing dependency (Postgres, Redis).
type HealthCheck func(ctx context.Context) error

const healthCheckTimeout = 2 * time.Second

type HealthHandler struct {
	checks map[string]HealthCheck
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ServeHTTP reports "ok", or "degraded" with 503 when any check fails.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	res := healthResponse{Status: "ok"}
	status := http.StatusOK
	for _, name := range names {
		if res.Checks == nil {
			res.Checks = make(map[string]string, len(names))
		}
		if err := h.checks[name](ctx); err != nil {
			res.Checks[name] = "error: " + err.Error()
			res.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		res.Checks[name] = "ok"
	}

	writeJSON(w, r, status, res)
}
