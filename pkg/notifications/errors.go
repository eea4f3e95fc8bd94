package notifications

import "errors"

var (
	// ErrNotFound is returned when a record, account or device set does not exist.
	ErrNotFound = errors.New("notifications: not found")
	// ErrTransient wraps storage failures that may succeed on a later attempt.
	ErrTransient = errors.New("notifications: transient failure")
	// ErrConflict signals a lost compare-and-swap or a concurrent grouped insert.
	ErrConflict = errors.New("notifications: version conflict")
	// ErrInvalidRecord is returned for records missing a recipient or type.
	ErrInvalidRecord = errors.New("notifications: invalid record")
)
