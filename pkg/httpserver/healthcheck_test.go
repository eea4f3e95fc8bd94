package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rogertalk/roger-api-sub001/pkg/httpserver"
)

func TestLivenessHandler(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	httpserver.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ALIVE", rec.Body.String())
}

func TestReadinessHandler(t *testing.T) {
	t.Parallel()
	log := slog.New(slog.DiscardHandler)
	ok := httpserver.Check{Name: "postgres", Probe: func(context.Context) error { return nil }}
	failing := httpserver.Check{Name: "redis", Probe: func(context.Context) error { return errors.New("down") }}
	slow := httpserver.Check{Name: "slow", Probe: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	tests := []struct {
		name       string
		checks     []httpserver.Check
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{"no checks", nil, http.StatusOK, "ready", nil},
		{"all pass", []httpserver.Check{ok}, http.StatusOK, "ready", map[string]string{"postgres": "ok"}},
		{"one fails", []httpserver.Check{ok, failing}, http.StatusServiceUnavailable, "not_ready",
			map[string]string{"postgres": "ok", "redis": "fail"}},
		{"timeout", []httpserver.Check{slow}, http.StatusServiceUnavailable, "not_ready",
			map[string]string{"slow": "fail"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			h := httpserver.ReadinessHandler(log, 20*time.Millisecond, tt.checks...)
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantChecks, body.Checks)
		})
	}
}
