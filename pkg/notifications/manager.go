package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/rogertalk/roger-api-sub001/pkg/logger"
)

// DefaultListLimit is the page size used when ListOptions.Limit is zero.
const DefaultListLimit = 50

// Manager serves the recipient-facing operations: listing records and
// marking them seen.
type Manager struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger for the Manager.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithManagerClock overrides time.Now for seen timestamps.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a new notification manager.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Get(ctx context.Context, recipientID int64, id string) (Record, error) {
	return m.store.Get(ctx, recipientID, id)
}

// List returns the recipient's records, newest first, DefaultListLimit at a time.
func (m *Manager) List(ctx context.Context, recipientID int64, opts ListOptions) ([]Record, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	return m.store.List(ctx, recipientID, opts)
}

// MarkSeen marks the given records as seen. Records already seen keep their
// original SeenAt.
func (m *Manager) MarkSeen(ctx context.Context, recipientID int64, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return m.markSeen(ctx, recipientID, ids...)
}

// MarkAllSeen marks every record of the recipient as seen.
func (m *Manager) MarkAllSeen(ctx context.Context, recipientID int64) (int, error) {
	return m.markSeen(ctx, recipientID)
}

func (m *Manager) CountUnseen(ctx context.Context, recipientID int64) (int, error) {
	return m.store.CountUnseen(ctx, recipientID, UnseenWindow)
}

func (m *Manager) markSeen(ctx context.Context, recipientID int64, ids ...string) (int, error) {
	n, err := m.store.MarkSeen(ctx, recipientID, m.now(), ids...)
	if err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to mark notifications seen",
			logger.AccountID(recipientID),
			logger.Error(err),
		)
		return 0, err
	}
	return n, nil
}
