package notifications

import (
	"context"
	"time"
)

// Store persists notification records. Every successful write increments
// Version; CompareAndSwap succeeds only when the stored version still equals
// the version of the record passed in.
type Store interface {
	// Insert stores a new record. A grouped record whose (recipient, group
	// key) already exists yields ErrConflict.
	Insert(ctx context.Context, rec Record) (Record, error)

	// FindGroup returns the record for (recipient, group key) or ErrNotFound.
	FindGroup(ctx context.Context, recipientID int64, groupKey string) (Record, error)

	// CompareAndSwap replaces the stored record with rec if versions match,
	// otherwise it returns ErrConflict.
	CompareAndSwap(ctx context.Context, rec Record) (Record, error)

	// Get returns a single record of the recipient or ErrNotFound.
	Get(ctx context.Context, recipientID int64, id string) (Record, error)

	// List returns the recipient's records, most recently updated first.
	List(ctx context.Context, recipientID int64, opts ListOptions) ([]Record, error)

	// CountUnseen counts unseen records among the window most recently
	// updated ones.
	CountUnseen(ctx context.Context, recipientID int64, window int) (int, error)

	// MarkSeen flags the given records as seen at t. No ids means all of the
	// recipient's records. It returns how many records changed.
	MarkSeen(ctx context.Context, recipientID int64, t time.Time, ids ...string) (int, error)
}

// ListOptions provides filtering and pagination options for listing records.
type ListOptions struct {
	Limit      int        // Maximum number of records to return (0 = no limit)
	Offset     int        // Number of records to skip for pagination
	OnlyUnseen bool       // When true, only return unseen records
	Types      []string   // If specified, only return records of these types
	Since      *time.Time // If specified, only return records updated after this time
}
