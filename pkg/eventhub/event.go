package eventhub

import (
	"fmt"
	"time"

	"github.com/rogertalk/roger-api-sub001/pkg/notifications"
)

// Event is one emission for one recipient. It is never mutated after
// construction; stages that need to change it work on a copy.
type Event struct {
	Type        EventType
	RecipientID int64
	Data        Payload
	// Origin is the account that caused the event. Its block list may not be
	// loaded yet; the pipeline hydrates it before filtering.
	Origin    *notifications.Account
	CreatedAt time.Time
}

// NewEvent validates and builds an event.
func NewEvent(recipientID int64, t EventType, data Payload) (*Event, error) {
	return newEvent(recipientID, t, data, time.Now())
}

func newEvent(recipientID int64, t EventType, data Payload, now time.Time) (*Event, error) {
	if recipientID <= 0 {
		return nil, fmt.Errorf("%w: recipient id must be positive", ErrInvalidArgument)
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrInvalidArgument, t)
	}
	if err := checkPayload(t, data); err != nil {
		return nil, err
	}
	return &Event{
		Type:        t,
		RecipientID: recipientID,
		Data:        data,
		Origin:      data.Origin(),
		CreatedAt:   now,
	}, nil
}

// withOrigin returns a copy of e carrying origin.
func (e *Event) withOrigin(origin *notifications.Account) *Event {
	cp := *e
	cp.Origin = origin
	return &cp
}

// SelfAction reports whether the recipient caused the event themselves.
func (e *Event) SelfAction() bool {
	if e.Origin == nil || e.Origin.ID != e.RecipientID {
		return false
	}
	switch e.Type {
	case ContentCreated, ContentComment, ContentMention, ContentReferenced,
		ContentRequestFulfilled, ContentVote:
		return true
	}
	return false
}

// BlockedByRecipient reports whether the recipient has blocked the origin.
func (e *Event) BlockedByRecipient() bool {
	return e.Origin.IsBlockedBy(e.RecipientID)
}
