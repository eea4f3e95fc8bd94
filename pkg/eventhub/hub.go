package eventhub

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/rogertalk/roger-api-sub001/pkg/async"
	"github.com/rogertalk/roger-api-sub001/pkg/logger"
	"github.com/rogertalk/roger-api-sub001/pkg/ratelimit"
)

// Subscriber is an in-process handler of events of one type.
type Subscriber interface {
	On(ctx context.Context, ev *Event)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(ctx context.Context, ev *Event)

func (f SubscriberFunc) On(ctx context.Context, ev *Event) {
	f(ctx, ev)
}

// Enqueuer receives validated events. *Pipeline implements it.
type Enqueuer interface {
	Enqueue(ev *Event) *async.Future[struct{}]
}

// Hub is the emission entry point. Subscribers for an event type run
// synchronously, in registration order, before the event is enqueued for
// fan-out.
type Hub struct {
	pipeline Enqueuer
	spender  ratelimit.Spender
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	handlers map[EventType][]Subscriber
	frozen   bool
}

// NewHub creates a hub feeding pipeline.
func NewHub(pipeline Enqueuer, opts ...HubOption) (*Hub, error) {
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	h := &Hub{
		pipeline: pipeline,
		logger:   slog.Default(),
		now:      time.Now,
		handlers: make(map[EventType][]Subscriber),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// AddHandler registers sub for events of type t. Registration closes with
// the first emission.
func (h *Hub) AddHandler(t EventType, sub Subscriber) error {
	if !t.Valid() {
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidArgument, t)
	}
	if sub == nil {
		return fmt.Errorf("%w: nil subscriber", ErrInvalidArgument)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.frozen {
		return ErrRegistryFrozen
	}
	h.handlers[t] = append(h.handlers[t], sub)
	return nil
}

// EmitAsync validates the event, runs its subscribers and enqueues it for
// fan-out. Invalid events return ErrInvalidArgument and have no effect.
// The future never resolves with a delivery error: fan-out is best effort.
func (h *Hub) EmitAsync(ctx context.Context, recipientID int64, t EventType, data Payload) (*async.Future[struct{}], error) {
	ev, err := newEvent(recipientID, t, data, h.now())
	if err != nil {
		return nil, err
	}

	for _, sub := range h.subscribers(t) {
		h.dispatch(ctx, sub, ev)
	}

	if !h.allow(ctx, ev) {
		return async.Resolved(struct{}{}, nil), nil
	}
	return h.pipeline.Enqueue(ev), nil
}

// Emit is EmitAsync followed by waiting for the fan-out or ctx.
func (h *Hub) Emit(ctx context.Context, recipientID int64, t EventType, data Payload) error {
	fut, err := h.EmitAsync(ctx, recipientID, t, data)
	if err != nil {
		return err
	}
	_, err = fut.AwaitContext(ctx)
	return err
}

func (h *Hub) subscribers(t EventType) []Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frozen = true
	return h.handlers[t]
}

func (h *Hub) dispatch(ctx context.Context, sub Subscriber, ev *Event) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.LogAttrs(ctx, slog.LevelError, "Event subscriber panicked",
				logger.EventType(ev.Type.String()),
				logger.AccountID(ev.RecipientID),
				logger.Handler(fmt.Sprintf("%T", sub)),
				slog.Any("panic", r),
			)
		}
	}()
	sub.On(ctx, ev)
}

// allow applies abuse control. Limiter failures let the event through.
func (h *Hub) allow(ctx context.Context, ev *Event) bool {
	if h.spender == nil {
		return true
	}
	recipient := strconv.FormatInt(ev.RecipientID, 10)
	ok, err := h.spender.Spend(ctx, "push", ev.Type.String(), recipient)
	if err != nil {
		h.logger.LogAttrs(ctx, slog.LevelWarn, "Abuse control unavailable",
			logger.EventType(ev.Type.String()),
			logger.AccountID(ev.RecipientID),
			logger.Error(err),
		)
		return true
	}
	if !ok {
		h.logger.LogAttrs(ctx, slog.LevelInfo, "Event dropped by abuse control",
			logger.EventType(ev.Type.String()),
			logger.AccountID(ev.RecipientID),
			logger.RateLimitKey(ratelimit.Key("push", ev.Type.String(), recipient)),
		)
	}
	return ok
}
