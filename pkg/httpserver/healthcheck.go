package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rogertalk/roger-api-sub001/pkg/logger"
)

// Check is a named readiness probe, e.g. pg.Healthcheck(pool).
type Check struct {
	Name  string
	Probe func(context.Context) error
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler answers 200 "ALIVE" while the process serves requests.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	}
}

// ReadinessHandler runs every check with the request context bounded by
// timeout (zero means no bound). All passing yields 200, any failure 503.
// The body reports each check as "ok" or "fail"; errors go to the log only.
func ReadinessHandler(log *slog.Logger, timeout time.Duration, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		resp := readiness{Status: "ready", Checks: make(map[string]string, len(checks))}
		code := http.StatusOK

		for _, c := range checks {
			ctx, cancel := r.Context(), context.CancelFunc(func() {})
			if timeout > 0 {
				ctx, cancel = context.WithTimeout(ctx, timeout)
			}
			err := c.Probe(ctx)
			cancel()
			if err != nil {
				log.LogAttrs(r.Context(), slog.LevelError, "readiness check failed",
					logger.Component(c.Name),
					logger.Error(err),
				)
				resp.Checks[c.Name] = "fail"
				resp.Status = "not_ready"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
