package eventhub

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rogertalk/roger-api-sub001/pkg/async"
	"github.com/rogertalk/roger-api-sub001/pkg/batcher"
	"github.com/rogertalk/roger-api-sub001/pkg/logger"
	"github.com/rogertalk/roger-api-sub001/pkg/notifications"
)

// Repository is the storage the pipeline reads devices and accounts from
// and writes notification records to. *notifications.Repository implements it.
type Repository interface {
	GetDevices(ctx context.Context, recipientID int64) ([]notifications.Device, error)
	GetAccount(ctx context.Context, id int64) (*notifications.Account, error)
	CountUnseen(ctx context.Context, recipientID int64) (int, error)
	PutNotification(ctx context.Context, rec notifications.Record) (notifications.Record, error)
	MergeNotification(ctx context.Context, rec notifications.Record) (notifications.Record, error)
}

// Pusher delivers assembled push bodies. *push.Client implements it.
type Pusher interface {
	Post(body string) *async.Future[bool]
}

// Pipeline fans batches of events out to notification records, badges and
// push bodies.
type Pipeline struct {
	repo      Repository
	factory   *Factory
	assembler *Assembler
	pusher    Pusher
	logger    *slog.Logger
	batcher   *batcher.Batcher[*Event, *async.Future[struct{}]]
	pushes    sync.WaitGroup
}

// NewPipeline creates a pipeline. Events are batched until DefaultBatchSize
// events are pending or DefaultLinger elapsed.
func NewPipeline(repo Repository, pusher Pusher, opts ...PipelineOption) *Pipeline {
	cfg := defaultPipelineOptions()
	for _, opt := range opts {
		opt(cfg)
	}

	p := &Pipeline{
		repo:      repo,
		factory:   cfg.factory,
		assembler: cfg.assembler,
		pusher:    pusher,
		logger:    cfg.logger,
	}
	if p.factory == nil {
		p.factory = NewFactory(WithFactoryLogger(cfg.logger))
	}
	if p.assembler == nil {
		p.assembler = NewAssembler(WithAssemblerLogger(cfg.logger))
	}
	p.batcher = batcher.New(p.process,
		batcher.WithSize(cfg.batchSize),
		batcher.WithLinger(cfg.linger),
		batcher.WithMaxInFlight(cfg.maxInFlight),
		batcher.WithName("eventhub"),
		batcher.WithLogger(cfg.logger),
	)
	return p
}

// Enqueue adds ev to the current batch. The future resolves once every push
// of the batch has completed, whatever their outcome. The batch slot is
// released as soon as the bodies are handed to the pusher, so later batches
// of the same tick share the pusher's batch.
func (p *Pipeline) Enqueue(ev *Event) *async.Future[struct{}] {
	return async.Async(context.Background(), p.batcher.Add(ev), awaitPushed)
}

func awaitPushed(_ context.Context, handoff *async.Future[*async.Future[struct{}]]) (struct{}, error) {
	pushed, err := handoff.Await()
	if err != nil {
		return struct{}{}, err
	}
	return pushed.Await()
}

// Flush dispatches the pending batch without waiting for the linger window.
func (p *Pipeline) Flush() {
	p.batcher.Flush()
}

// State reports the batcher state.
func (p *Pipeline) State() batcher.State {
	return p.batcher.State()
}

// Close processes pending events and waits for in-flight batches and their
// pushes, or for ctx.
func (p *Pipeline) Close(ctx context.Context) error {
	if err := p.batcher.Close(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		p.pushes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fanOutItem struct {
	ev        *Event
	persisted bool
	dropped   bool
}

func (p *Pipeline) process(ctx context.Context, events []*Event) ([]*async.Future[struct{}], error) {
	start := time.Now()
	items := make([]*fanOutItem, len(events))
	for i, ev := range events {
		items[i] = &fanOutItem{ev: ev}
	}

	p.hydrateOrigins(ctx, items)
	p.persist(ctx, items)
	badges := p.badges(ctx, items)
	devices := p.devices(ctx, items)
	futures := p.push(ctx, items, devices, badges)

	pushed, resolve := async.NewPromise[struct{}]()
	p.pushes.Add(1)
	go func() {
		defer p.pushes.Done()
		sent, failed := countPushed(futures)
		p.logger.LogAttrs(ctx, slog.LevelDebug, "Fan-out batch done",
			logger.BatchSize(len(events)),
			slog.Int("pushed", sent),
			slog.Int("push_failed", failed),
			logger.Duration(time.Since(start)),
		)
		resolve(struct{}{}, nil)
	}()

	out := make([]*async.Future[struct{}], len(events))
	for i := range out {
		out[i] = pushed
	}
	return out, nil
}

// hydrateOrigins loads the block lists of origin accounts that arrived
// without one. Accounts that cannot be loaded are treated as not blocked.
func (p *Pipeline) hydrateOrigins(ctx context.Context, items []*fanOutItem) {
	var ids []int64
	seen := map[int64]bool{}
	for _, it := range items {
		o := it.ev.Origin
		if o == nil || o.BlockListLoaded() || seen[o.ID] {
			continue
		}
		seen[o.ID] = true
		ids = append(ids, o.ID)
	}
	if len(ids) == 0 {
		return
	}

	futures := make([]*async.Future[*notifications.Account], len(ids))
	for i, id := range ids {
		futures[i] = async.Async(ctx, id, p.repo.GetAccount)
	}
	results, errs := async.AwaitAll(futures...)

	loaded := make(map[int64]*notifications.Account, len(ids))
	for i, id := range ids {
		if errs[i] != nil {
			p.logStoreError(ctx, "Failed to load origin account", id, errs[i])
			continue
		}
		loaded[id] = results[i]
	}
	for _, it := range items {
		if it.ev.Origin == nil {
			continue
		}
		if acc, ok := loaded[it.ev.Origin.ID]; ok && acc != nil {
			it.ev = it.ev.withOrigin(acc)
		}
	}
}

func (p *Pipeline) persist(ctx context.Context, items []*fanOutItem) {
	futures := make([]*async.Future[notifications.Record], len(items))
	for i, it := range items {
		rec, err := p.factory.Build(it.ev)
		if err != nil {
			p.logger.LogAttrs(ctx, slog.LevelError, "Skipping event",
				logger.EventType(it.ev.Type.String()),
				logger.AccountID(it.ev.RecipientID),
				logger.Error(err),
			)
			it.dropped = true
			continue
		}
		if rec == nil {
			continue
		}
		write := p.repo.PutNotification
		if rec.Grouped() {
			write = p.repo.MergeNotification
		}
		futures[i] = async.Async(ctx, *rec, write)
	}

	for i, f := range futures {
		if f == nil {
			continue
		}
		if _, err := f.Await(); err != nil {
			p.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to persist notification",
				logger.EventType(items[i].ev.Type.String()),
				logger.AccountID(items[i].ev.RecipientID),
				logger.Error(err),
			)
			items[i].dropped = true
			continue
		}
		items[i].persisted = true
	}
}

// badges counts unseen records of every recipient that got a record in this
// batch, after all writes of the batch.
func (p *Pipeline) badges(ctx context.Context, items []*fanOutItem) map[int64]int {
	recipients := uniqueRecipients(items, func(it *fanOutItem) bool { return it.persisted })
	futures := make([]*async.Future[int], len(recipients))
	for i, id := range recipients {
		futures[i] = async.Async(ctx, id, p.repo.CountUnseen)
	}
	counts, errs := async.AwaitAll(futures...)

	badges := make(map[int64]int, len(recipients))
	for i, id := range recipients {
		if errs[i] != nil {
			p.logStoreError(ctx, "Failed to count unseen notifications", id, errs[i])
			continue
		}
		badges[id] = counts[i]
	}
	return badges
}

func (p *Pipeline) devices(ctx context.Context, items []*fanOutItem) map[int64][]notifications.Device {
	recipients := uniqueRecipients(items, func(it *fanOutItem) bool { return !it.dropped })
	futures := make([]*async.Future[[]notifications.Device], len(recipients))
	for i, id := range recipients {
		futures[i] = async.Async(ctx, id, p.repo.GetDevices)
	}
	lists, errs := async.AwaitAll(futures...)

	devices := make(map[int64][]notifications.Device, len(recipients))
	for i, id := range recipients {
		if errs[i] != nil {
			p.logStoreError(ctx, "Failed to load devices", id, errs[i])
			continue
		}
		devices[id] = lists[i]
	}
	return devices
}

// push hands every body of the batch to the pusher without waiting for delivery.
func (p *Pipeline) push(ctx context.Context, items []*fanOutItem, devices map[int64][]notifications.Device, badges map[int64]int) []*async.Future[bool] {
	var futures []*async.Future[bool]
	for _, it := range items {
		if it.dropped {
			continue
		}
		recipient := it.ev.RecipientID
		var badge *int
		if b, ok := badges[recipient]; ok {
			badge = &b
		}
		for _, dev := range devices[recipient] {
			bodies, err := p.assembler.Assemble(recipient, dev, it.ev, badge)
			if err != nil {
				p.logger.LogAttrs(ctx, slog.LevelError, "Failed to assemble push",
					logger.EventType(it.ev.Type.String()),
					logger.AccountID(recipient),
					logger.DeviceToken(dev.Token),
					logger.Error(err),
				)
				continue
			}
			for _, body := range bodies {
				futures = append(futures, p.pusher.Post(body))
			}
		}
	}

	return futures
}

func countPushed(futures []*async.Future[bool]) (sent, failed int) {
	results, errs := async.AwaitAll(futures...)
	for i, ok := range results {
		if ok && errs[i] == nil {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed
}

func (p *Pipeline) logStoreError(ctx context.Context, msg string, accountID int64, err error) {
	level := slog.LevelWarn
	if errors.Is(err, notifications.ErrNotFound) {
		level = slog.LevelDebug
	}
	p.logger.LogAttrs(ctx, level, msg,
		logger.AccountID(accountID),
		logger.Error(err),
	)
}

func uniqueRecipients(items []*fanOutItem, keep func(*fanOutItem) bool) []int64 {
	var ids []int64
	seen := map[int64]bool{}
	for _, it := range items {
		id := it.ev.RecipientID
		if !keep(it) || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
