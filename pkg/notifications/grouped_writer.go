package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rogertalk/roger-api-sub001/pkg/logger"
)

// DefaultMergeAttempts bounds the read-merge-swap loop of GroupedWriter.
const DefaultMergeAttempts = 3

// GroupedWriter merges grouped records into the existing record of their
// (recipient, group key) through optimistic compare-and-swap.
type GroupedWriter struct {
	store    Store
	now      func() time.Time
	attempts int
	logger   *slog.Logger
}

// GroupedWriterOption configures a GroupedWriter.
type GroupedWriterOption func(*GroupedWriter)

// WithWriterClock overrides time.Now for merge timestamps.
func WithWriterClock(now func() time.Time) GroupedWriterOption {
	return func(w *GroupedWriter) {
		if now != nil {
			w.now = now
		}
	}
}

// WithMergeAttempts overrides DefaultMergeAttempts.
func WithMergeAttempts(n int) GroupedWriterOption {
	return func(w *GroupedWriter) {
		if n > 0 {
			w.attempts = n
		}
	}
}

// WithWriterLogger sets the logger for lost races.
func WithWriterLogger(l *slog.Logger) GroupedWriterOption {
	return func(w *GroupedWriter) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewGroupedWriter creates a writer over store.
func NewGroupedWriter(store Store, opts ...GroupedWriterOption) *GroupedWriter {
	w := &GroupedWriter{
		store:    store,
		now:      time.Now,
		attempts: DefaultMergeAttempts,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Merge writes rec as a new grouped record or folds it into the existing
// one. After the configured number of lost races it gives up with
// ErrTransient.
func (w *GroupedWriter) Merge(ctx context.Context, rec Record) (Record, error) {
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	if !rec.Grouped() {
		return Record{}, fmt.Errorf("%w: group key is required", ErrInvalidRecord)
	}

	for attempt := 1; attempt <= w.attempts; attempt++ {
		existing, err := w.store.FindGroup(ctx, rec.RecipientID, rec.GroupKey)
		switch {
		case errors.Is(err, ErrNotFound):
			out, err := w.store.Insert(ctx, NewGroupedRecord(rec, w.now()))
			if errors.Is(err, ErrConflict) {
				w.logLostRace(ctx, rec, attempt)
				continue
			}
			return out, err
		case err != nil:
			return Record{}, err
		}

		out, err := w.store.CompareAndSwap(ctx, MergeRecords(existing, rec, w.now()))
		if errors.Is(err, ErrConflict) {
			w.logLostRace(ctx, rec, attempt)
			continue
		}
		return out, err
	}

	return Record{}, errors.Join(ErrTransient, ErrConflict)
}

func (w *GroupedWriter) logLostRace(ctx context.Context, rec Record, attempt int) {
	w.logger.LogAttrs(ctx, slog.LevelDebug, "Grouped notification write lost a race",
		logger.AccountID(rec.RecipientID),
		logger.GroupKey(rec.GroupKey),
		logger.RetryCount(attempt),
	)
}

// NewGroupedRecord prepares the first record of a group: history values are
// wrapped into one-element lists and the group count starts at one.
func NewGroupedRecord(rec Record, now time.Time) Record {
	out := rec.Clone()
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	for _, k := range out.GroupHistoryKeys {
		if v, ok := out.Properties[k]; ok {
			out.Properties[k] = []any{v}
		}
	}
	out.GroupCount = 1
	out.Seen = false
	out.SeenAt = nil
	out.CreatedAt = now
	out.UpdatedAt = now
	return out
}

// MergeRecords folds incoming into existing and returns the result without
// touching either argument. Non-history properties are replaced by the
// incoming ones. For history keys the incoming value is prepended; an older
// entry with the same identity (the value under the first history key) is
// removed from every history list first, and lists are capped at
// MaxGroupHistory. The result is unseen and carries existing's version so it
// can be used for compare-and-swap.
func MergeRecords(existing, incoming Record, now time.Time) Record {
	out := existing.Clone()
	keys := incoming.GroupHistoryKeys
	if len(keys) == 0 {
		keys = existing.GroupHistoryKeys
	}

	props := make(map[string]any, len(incoming.Properties))
	for k, v := range incoming.Properties {
		props[k] = v
	}

	if len(keys) > 0 {
		lists := make(map[string][]any, len(keys))
		for _, k := range keys {
			lists[k] = asList(existing.Properties[k])
		}

		if identity, ok := incoming.Properties[keys[0]]; ok {
			dup := -1
			for i, v := range lists[keys[0]] {
				if sameValue(v, identity) {
					dup = i
					break
				}
			}
			if dup >= 0 {
				for k, list := range lists {
					if dup < len(list) {
						lists[k] = append(list[:dup:dup], list[dup+1:]...)
					}
				}
			}
		}

		for _, k := range keys {
			v, ok := incoming.Properties[k]
			if !ok {
				props[k] = lists[k]
				continue
			}
			list := append([]any{v}, lists[k]...)
			if len(list) > MaxGroupHistory {
				list = list[:MaxGroupHistory]
			}
			props[k] = list
		}
	}

	out.Type = incoming.Type
	out.Properties = props
	out.GroupHistoryKeys = keys
	out.GroupCount = existing.GroupCount + 1
	out.Seen = false
	out.SeenAt = nil
	out.UpdatedAt = now
	return out
}

func asList(v any) []any {
	switch list := v.(type) {
	case nil:
		return nil
	case []any:
		return list
	default:
		return []any{list}
	}
}

// sameValue compares two property values by their JSON encoding, so an
// int64 written by the factory equals the json.Number read back from
// storage.
func sameValue(a, b any) bool {
	ja, err := json.Marshal(a)
	if err != nil {
		return false
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
