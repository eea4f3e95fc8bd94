package main

import (
	"bytes"
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

	"github.com/rogertalk/roger-api-sub001/pkg/eventhub"
	"github.com/rogertalk/roger-api-sub001/pkg/httpserver"
	"github.com/rogertalk/roger-api-sub001/pkg/notifications"
	"github.com/rogertalk/roger-api-sub001/pkg/push"
	"github.com/rogertalk/roger-api-sub001/pkg/ratelimit"
)

type fixture struct {
	router   http.Handler
	store    *notifications.MemoryStore
	pipeline *eventhub.Pipeline
}

func newFixture(t *testing.T, checks ...httpserver.Check) *fixture {
	t.Helper()
	log := slog.New(slog.DiscardHandler)

	store := notifications.NewMemoryStore()
	repo := notifications.NewRepository(store, notifications.NewMemoryDirectory(), notifications.WithLogger(log))
	pushClient := push.New(push.WithLogger(log))
	pipeline := eventhub.NewPipelineFromConfig(eventhub.Config{
		BatchSize:   10,
		Linger:      time.Millisecond,
		MaxInFlight: 1,
		Platforms:   []string{notifications.PlatformIOS},
		Apps:        []string{eventhub.DefaultApp},
		AppName:     eventhub.DefaultAppName,
	}, repo, pushClient, log)
	t.Cleanup(func() {
		_ = pipeline.Close(context.Background())
		_ = pushClient.Close(context.Background())
	})

	bucketStore := ratelimit.NewMemoryStore()
	t.Cleanup(func() { _ = bucketStore.Close() })
	limiter, err := ratelimit.New(bucketStore, ratelimit.WithRules(ratelimit.Rules{
		"emit:*": {Size: 2, Rate: 0.001},
	}))
	require.NoError(t, err)

	hub, err := eventhub.NewHub(pipeline, eventhub.WithSpender(limiter), eventhub.WithHubLogger(log))
	require.NoError(t, err)

	return &fixture{
		router: newRouter(routerConfig{
			api:          newAPI(hub, notifications.NewManager(store), log),
			limiter:      limiter,
			checks:       checks,
			probeTimeout: time.Second,
			log:          log,
		}),
		store:    store,
		pipeline: pipeline,
	}
}

type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Error *errorDetail    `json:"error"`
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.RemoteAddr = "192.0.2.10:4567"
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var resp apiResponse
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp
}

func (f *fixture) seed(t *testing.T, recipient int64, id string) {
	t.Helper()
	_, err := f.store.Insert(context.Background(), notifications.Record{
		ID:          id,
		RecipientID: recipient,
		Type:        string(eventhub.Custom),
		Properties:  map[string]any{"text": id},
		GroupCount:  1,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	})
	require.NoError(t, err)
}

func TestEmit_PersistsNotification(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	code, resp := f.do(t, http.MethodPost, "/v1/accounts/7/events",
		`{"type":"custom","data":{"title":"Hi","text":"hello","mood":"good"}}`)
	require.Equal(t, http.StatusAccepted, code)
	assert.JSONEq(t, `{"recipient_id":7,"type":"custom"}`, string(resp.Data))

	require.NoError(t, f.pipeline.Close(context.Background()))

	code, resp = f.do(t, http.MethodGet, "/v1/accounts/7/notifications", "")
	require.Equal(t, http.StatusOK, code)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "custom", records[0]["type"])
	assert.Equal(t, "hello", records[0]["text"])
	assert.Equal(t, "good", records[0]["mood"])
	assert.Equal(t, false, records[0]["seen"])
	assert.Contains(t, records[0], "group_count")
	assert.EqualValues(t, 1, resp.Meta["unseen"])
}

func TestEmit_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		body string
		code string
	}{
		{"non-numeric account", "/v1/accounts/abc/events", `{"type":"custom","data":{"text":"x"}}`, "invalid_account_id"},
		{"zero account", "/v1/accounts/0/events", `{"type":"custom","data":{"text":"x"}}`, "invalid_account_id"},
		{"malformed body", "/v1/accounts/7/events", `{"type":`, "invalid_body"},
		{"unknown type", "/v1/accounts/7/events", `{"type":"no-such-type","data":{}}`, "invalid_event_type"},
		{"missing data", "/v1/accounts/7/events", `{"type":"custom"}`, "invalid_payload"},
		{"custom without text", "/v1/accounts/7/events", `{"type":"custom","data":{"title":"x"}}`, "invalid_payload"},
		{"follow without follower", "/v1/accounts/7/events", `{"type":"account-follow","data":{}}`, "invalid_payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			code, resp := f.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestEmit_RateLimitedPerIP(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	body := `{"type":"custom","data":{"text":"hello"}}`

	for range 2 {
		code, _ := f.do(t, http.MethodPost, "/v1/accounts/7/events", body)
		require.Equal(t, http.StatusAccepted, code)
	}
	code, resp := f.do(t, http.MethodPost, "/v1/accounts/7/events", body)
	assert.Equal(t, http.StatusTooManyRequests, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "rate_limited", resp.Error.Code)
}

func TestList_Pagination(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	for _, id := range []string{"a", "b", "c"} {
		f.seed(t, 7, id)
	}

	code, resp := f.do(t, http.MethodGet, "/v1/accounts/7/notifications?limit=2&api_version=41", "")
	require.Equal(t, http.StatusOK, code)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &records))
	assert.Len(t, records, 2)
	assert.NotContains(t, records[0], "group_count")
	assert.EqualValues(t, 3, resp.Meta["unseen"])

	code, resp = f.do(t, http.MethodGet, "/v1/accounts/7/notifications?limit=500", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_limit", resp.Error.Code)

	code, resp = f.do(t, http.MethodGet, "/v1/accounts/7/notifications?offset=-1", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_offset", resp.Error.Code)
}

func TestMarkSeen(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t, 7, "a")
	f.seed(t, 7, "b")
	f.seed(t, 8, "other")

	code, resp := f.do(t, http.MethodPost, "/v1/accounts/7/notifications/a/seen", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"marked":1}`, string(resp.Data))

	code, resp = f.do(t, http.MethodPost, "/v1/accounts/7/notifications/other/seen", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", resp.Error.Code)

	code, resp = f.do(t, http.MethodPost, "/v1/accounts/7/notifications/seen", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"marked":1}`, string(resp.Data))

	_, resp = f.do(t, http.MethodGet, "/v1/accounts/7/notifications", "")
	assert.EqualValues(t, 0, resp.Meta["unseen"])
	_, resp = f.do(t, http.MethodGet, "/v1/accounts/8/notifications", "")
	assert.EqualValues(t, 1, resp.Meta["unseen"])
}

func TestHealth(t *testing.T) {
	t.Parallel()
	down := httpserver.Check{Name: "postgres", Probe: func(context.Context) error { return errors.New("down") }}
	f := newFixture(t, down)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(httpserver.RequestIDHeader))
}
