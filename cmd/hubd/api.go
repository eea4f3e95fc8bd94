package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rogertalk/roger-api-sub001/pkg/async"
	"github.com/rogertalk/roger-api-sub001/pkg/eventhub"
	"github.com/rogertalk/roger-api-sub001/pkg/httpserver"
	"github.com/rogertalk/roger-api-sub001/pkg/logger"
	"github.com/rogertalk/roger-api-sub001/pkg/notifications"
	"github.com/rogertalk/roger-api-sub001/pkg/ratelimit"
)

const (
	// currentAPIVersion renders records for clients that do not send one.
	currentAPIVersion = 50
	maxListLimit      = 100
	maxEventBodyBytes = 1 << 20
)

type emitter interface {
	EmitAsync(ctx context.Context, recipientID int64, t eventhub.EventType, data eventhub.Payload) (*async.Future[struct{}], error)
}

type notificationReader interface {
	Get(ctx context.Context, recipientID int64, id string) (notifications.Record, error)
	List(ctx context.Context, recipientID int64, opts notifications.ListOptions) ([]notifications.Record, error)
	CountUnseen(ctx context.Context, recipientID int64) (int, error)
	MarkSeen(ctx context.Context, recipientID int64, ids ...string) (int, error)
	MarkAllSeen(ctx context.Context, recipientID int64) (int, error)
}

type api struct {
	hub   emitter
	notes notificationReader
	log   *slog.Logger
}

func newAPI(hub emitter, notes notificationReader, log *slog.Logger) *api {
	return &api{hub: hub, notes: notes, log: log}
}

type routerConfig struct {
	api          *api
	limiter      ratelimit.Spender
	checks       []httpserver.Check
	probeTimeout time.Duration
	log          *slog.Logger
}

func newRouter(cfg routerConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, httpserver.RequestID, middleware.Recoverer)

	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(cfg.log, cfg.probeTimeout, cfg.checks...))

	emitLimit := ratelimit.Middleware(cfg.limiter, "emit", ratelimit.Composite(ratelimit.RemoteIP),
		ratelimit.WithMiddlewareLogger(cfg.log),
		ratelimit.WithOnLimitReached(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited", nil)
		}),
	)

	r.Route("/v1/accounts/{accountID}", func(r chi.Router) {
		r.With(emitLimit).Post("/events", cfg.api.emit)
		r.Get("/notifications", cfg.api.list)
		r.Post("/notifications/seen", cfg.api.markAllSeen)
		r.Post("/notifications/{notificationID}/seen", cfg.api.markSeen)
	})
	return r
}

type emitRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (a *api) emit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountParam(w, r)
	if !ok {
		return
	}

	var req emitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err)
		return
	}
	t, err := eventhub.ParseEventType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_event_type", err)
		return
	}
	payload, err := eventhub.DecodePayload(t, req.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", err)
		return
	}

	if _, err := a.hub.EmitAsync(r.Context(), accountID, t, payload); err != nil {
		if errors.Is(err, eventhub.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, "invalid_payload", err)
			return
		}
		a.log.LogAttrs(r.Context(), slog.LevelError, "emit failed",
			logger.AccountID(accountID),
			logger.EventType(t.String()),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	writeJSON(w, http.StatusAccepted, response{Data: map[string]any{
		"recipient_id": accountID,
		"type":         t,
	}})
}

func (a *api) list(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountParam(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	opts := notifications.ListOptions{OnlyUnseen: q.Get("unseen") == "true"}
	var err error
	if opts.Limit, err = intQuery(q.Get("limit"), notifications.DefaultListLimit); err != nil || opts.Limit > maxListLimit {
		writeError(w, http.StatusBadRequest, "invalid_limit", errors.New("limit must be between 1 and 100"))
		return
	}
	if opts.Offset, err = intQuery(q.Get("offset"), 0); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_offset", err)
		return
	}
	apiVersion, err := intQuery(q.Get("api_version"), currentAPIVersion)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_api_version", err)
		return
	}

	records, err := a.notes.List(r.Context(), accountID, opts)
	if err != nil {
		a.storeError(w, r, accountID, err)
		return
	}
	unseen, err := a.notes.CountUnseen(r.Context(), accountID)
	if err != nil {
		a.storeError(w, r, accountID, err)
		return
	}

	data := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		data = append(data, rec.Public(apiVersion))
	}
	writeJSON(w, http.StatusOK, response{Data: data, Meta: map[string]any{"unseen": unseen}})
}

func (a *api) markAllSeen(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountParam(w, r)
	if !ok {
		return
	}
	n, err := a.notes.MarkAllSeen(r.Context(), accountID)
	if err != nil {
		a.storeError(w, r, accountID, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: map[string]any{"marked": n}})
}

func (a *api) markSeen(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountParam(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "notificationID")
	if _, err := a.notes.Get(r.Context(), accountID, id); err != nil {
		a.storeError(w, r, accountID, err)
		return
	}
	n, err := a.notes.MarkSeen(r.Context(), accountID, id)
	if err != nil {
		a.storeError(w, r, accountID, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: map[string]any{"marked": n}})
}

func (a *api) storeError(w http.ResponseWriter, r *http.Request, accountID int64, err error) {
	if errors.Is(err, notifications.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	a.log.LogAttrs(r.Context(), slog.LevelWarn, "notification store failed",
		logger.AccountID(accountID),
		logger.Error(err),
	)
	writeError(w, http.StatusServiceUnavailable, "store_unavailable", err)
}

func accountParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_account_id", errors.New("account id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func intQuery(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("expected a non-negative integer")
	}
	return n, nil
}
