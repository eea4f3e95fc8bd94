package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence facade used by the event hub. It combines a
// Store for notification records with a Directory for accounts and devices.
type Repository struct {
	store  Store
	dir    Directory
	writer *GroupedWriter
	now    func() time.Time
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*repositoryOptions)

type repositoryOptions struct {
	now           func() time.Time
	logger        *slog.Logger
	mergeAttempts int
}

// WithClock overrides time.Now for record timestamps.
func WithClock(now func() time.Time) RepositoryOption {
	return func(o *repositoryOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger of the grouped writer.
func WithLogger(l *slog.Logger) RepositoryOption {
	return func(o *repositoryOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxMergeAttempts bounds compare-and-swap retries for grouped writes.
func WithMaxMergeAttempts(n int) RepositoryOption {
	return func(o *repositoryOptions) {
		if n > 0 {
			o.mergeAttempts = n
		}
	}
}

// NewRepository creates a repository.
func NewRepository(store Store, dir Directory, opts ...RepositoryOption) *Repository {
	o := &repositoryOptions{
		now:           time.Now,
		logger:        slog.Default(),
		mergeAttempts: DefaultMergeAttempts,
	}
	for _, opt := range opts {
		opt(o)
	}
	return &Repository{
		store: store,
		dir:   dir,
		writer: NewGroupedWriter(store,
			WithWriterClock(o.now),
			WithWriterLogger(o.logger),
			WithMergeAttempts(o.mergeAttempts),
		),
		now: o.now,
	}
}

// GetDevices returns up to MaxDevicesPerAccount devices of the recipient.
// A recipient without devices yields ErrNotFound.
func (r *Repository) GetDevices(ctx context.Context, recipientID int64) ([]Device, error) {
	devices, err := r.dir.Devices(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if len(devices) > MaxDevicesPerAccount {
		devices = devices[:MaxDevicesPerAccount]
	}
	return devices, nil
}

// GetAccount returns the account with its block list.
func (r *Repository) GetAccount(ctx context.Context, id int64) (*Account, error) {
	return r.dir.Account(ctx, id)
}

// CountUnseen returns the unseen badge of the recipient.
func (r *Repository) CountUnseen(ctx context.Context, recipientID int64) (int, error) {
	return r.store.CountUnseen(ctx, recipientID, UnseenWindow)
}

// PutNotification persists rec. Grouped records are merged into their group.
func (r *Repository) PutNotification(ctx context.Context, rec Record) (Record, error) {
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	if rec.Grouped() {
		return r.writer.Merge(ctx, rec)
	}

	now := r.now()
	rec = rec.Clone()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.GroupCount = 1
	rec.Seen = false
	rec.SeenAt = nil
	rec.CreatedAt = now
	rec.UpdatedAt = now

	out, err := r.store.Insert(ctx, rec)
	if errors.Is(err, ErrConflict) {
		return Record{}, errors.Join(ErrTransient, err)
	}
	return out, err
}

// MergeNotification merges a grouped record into its group.
func (r *Repository) MergeNotification(ctx context.Context, rec Record) (Record, error) {
	if !rec.Grouped() {
		return Record{}, fmt.Errorf("%w: group key is required", ErrInvalidRecord)
	}
	return r.writer.Merge(ctx, rec)
}

// Store returns the underlying record store.
func (r *Repository) Store() Store {
	return r.store
}
