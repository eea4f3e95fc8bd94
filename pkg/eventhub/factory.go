package eventhub

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/rogertalk/roger-api-sub001/pkg/logger"
	"github.com/rogertalk/roger-api-sub001/pkg/notifications"
)

// StreakGroupKey collapses every streak notification of a recipient.
const StreakGroupKey = "streak"

// Factory maps events to the notification records they produce.
type Factory struct {
	now    func() time.Time
	logger *slog.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithFactoryClock overrides time.Now, which decides the follow group key.
func WithFactoryClock(now func() time.Time) FactoryOption {
	return func(f *Factory) {
		if now != nil {
			f.now = now
		}
	}
}

func WithFactoryLogger(l *slog.Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFactory creates a notification factory.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Build returns the record ev should persist. A nil record means the event
// is suppressed or does not produce notifications. ErrUnsupportedEvent is
// returned when the payload does not match the event type.
func (f *Factory) Build(ev *Event) (*notifications.Record, error) {
	if ev == nil || !ev.Type.Valid() {
		return nil, ErrUnsupportedEvent
	}
	if ev.SelfAction() || ev.BlockedByRecipient() {
		return nil, nil
	}

	rec := &notifications.Record{
		RecipientID: ev.RecipientID,
		Type:        ev.Type.String(),
		Properties:  map[string]any{},
	}
	props := rec.Properties

	switch ev.Type {
	case Custom:
		p, ok := ev.Data.(CustomPayload)
		if !ok {
			return nil, f.mismatch(ev)
		}
		if p.NotifDisabled {
			return nil, nil
		}
		for k, v := range p.Properties {
			props[k] = v
		}
		props["title"] = p.Title
		props["text"] = p.Text
		rec.GroupKey = typedGroupKey(ev.Type, p.GroupKey)
		rec.GroupHistoryKeys = append([]string(nil), p.GroupHistoryKeys...)

	case AccountFollow:
		p, ok := ev.Data.(FollowPayload)
		if !ok {
			return nil, f.mismatch(ev)
		}
		putAccount(props, "follower", p.Follower)
		rec.GroupKey = f.now().UTC().Format(time.DateOnly)
		rec.GroupHistoryKeys = accountKeys("follower")

	case ChatJoin:
		p, ok := ev.Data.(ChatJoinPayload)
		if !ok {
			return nil, f.mismatch(ev)
		}
		props["channel_id"] = p.ChannelID
		putAccount(props, "joiner", p.Joiner)
		putAccount(props, "owner", p.Owner)
		props["text"] = p.Text
		rec.GroupKey = typedGroupKey(ev.Type, p.ChannelID)

	case ChatMessage, ChatMention:
		p, ok := ev.Data.(ChatMessagePayload)
		if !ok {
			return nil, f.mismatch(ev)
		}
		props["channel_id"] = p.ChannelID
		putAccount(props, "owner", p.Owner)
		putAccount(props, "sender", p.Sender)
		props["text"] = p.Text
		rec.GroupKey = typedGroupKey(ev.Type, p.ChannelID)

	case ChatOwnerJoin:
		p, ok := ev.Data.(ChatOwnerJoinPayload)
		if !ok {
			return nil, f.mismatch(ev)
		}
		props["channel_id"] = p.ChannelID
		putAccount(props, "owner", p.Owner)
		props["text"] = p.Text
		rec.GroupKey = typedGroupKey(ev.Type, p.ChannelID)

	case ContentComment:
		p, ok := ev.Data.(CommentPayload)
		if !ok {
			return nil, f.mismatch(ev)
		}
		props["comment_id"] = p.Comment.ID
		props["comment_offset"] = p.Comment.Offset
		props["comment_text"] = p.Comment.Text
		putContent(props, p.Content)
		putAccount(props, "commenter", p.Commenter)

	case ContentCreated, ContentMention:
		p, ok := ev.Data.(ContentPayload)
		if !ok {
			return nil, f.mismatch(ev)
		}
		putContent(props, p.Content)
		props["content_url"] = p.Content.URL()
		putAccount(props, "creator", p.Creator)

	case ContentReferenced, ContentRequestFulfilled:
		p, ok := ev.Data.(ContentPayload)
		if !ok {
			return nil, f.mismatch(ev)
		}
		putContent(props, p.Content)
		putAccount(props, "creator", p.Creator)
		props["original_id"] = p.Content.RelatedToID

	case ContentFeatured:
		p, ok := ev.Data.(FeaturedPayload)
		if !ok {
			return nil, f.mismatch(ev)
		}
		putContent(props, p.Content)

	case ContentRequest:
		p, ok := ev.Data.(RequestPayload)
		if !ok {
			return nil, f.mismatch(ev)
		}
		if p.Comment != "" {
			props["comment"] = p.Comment
		} else {
			props["comment"] = nil
		}
		putContent(props, p.Content)
		props["content_url"] = p.Content.URL()
		putAccount(props, "requester", p.Requester)

	case ContentVote:
		p, ok := ev.Data.(VotePayload)
		if !ok {
			return nil, f.mismatch(ev)
		}
		putContent(props, p.Content)
		putAccount(props, "voter", p.Voter)
		rec.GroupKey = strconv.FormatInt(p.Content.ID, 10)
		rec.GroupHistoryKeys = accountKeys("voter")

	case FriendJoined:
		p, ok := ev.Data.(FriendJoinedPayload)
		if !ok {
			return nil, f.mismatch(ev)
		}
		props["friend_id"] = p.Friend.ID
		props["friend_name"] = p.FriendName
		props["friend_image_url"] = p.FriendImageURL

	case Streak:
		p, ok := ev.Data.(StreakPayload)
		if !ok {
			return nil, f.mismatch(ev)
		}
		props["days"] = p.Days
		rec.GroupKey = StreakGroupKey

	default:
		return nil, nil
	}

	return rec, nil
}

func (f *Factory) mismatch(ev *Event) error {
	err := fmt.Errorf("%w: %s with %T payload", ErrUnsupportedEvent, ev.Type, ev.Data)
	f.logger.LogAttrs(context.Background(), slog.LevelError, "Cannot build notification",
		logger.EventType(ev.Type.String()),
		logger.AccountID(ev.RecipientID),
		logger.Error(err),
	)
	return err
}

func putAccount(props map[string]any, prefix string, a *notifications.Account) {
	props[prefix+"_id"] = a.ID
	props[prefix+"_image_url"] = a.ImageURL
	props[prefix+"_username"] = a.Username
	props[prefix+"_verified"] = a.Verified
}

// accountKeys lists the history keys of an account written by putAccount,
// identity first.
func accountKeys(prefix string) []string {
	return []string{prefix + "_id", prefix + "_image_url", prefix + "_username", prefix + "_verified"}
}

func putContent(props map[string]any, c Content) {
	props["content_id"] = c.ID
	props["content_thumb_url"] = c.ThumbURL
	props["content_title"] = c.Title
}

// typedGroupKey scopes a caller-chosen key to t, so a chat-join and a
// chat-message of one channel stay separate records.
func typedGroupKey(t EventType, key string) string {
	if key == "" {
		return ""
	}
	return t.String() + ":" + key
}
