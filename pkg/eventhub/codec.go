package eventhub

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type variant struct {
	name    string
	decode  func(raw []byte) (Payload, error)
	accepts func(p Payload) bool
}

func variantOf[P Payload](name string) variant {
	return variant{
		name: name,
		decode: func(raw []byte) (Payload, error) {
			var p P
			if len(bytes.TrimSpace(raw)) == 0 {
				return p, nil
			}
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			if err := dec.Decode(&p); err != nil {
				return nil, err
			}
			return p, nil
		},
		accepts: func(p Payload) bool {
			_, ok := p.(P)
			return ok
		},
	}
}

var variants = func() map[EventType]variant {
	m := map[EventType]variant{
		Custom:                  variantOf[CustomPayload]("custom"),
		AccountFollow:           variantOf[FollowPayload]("follow"),
		ChatJoin:                variantOf[ChatJoinPayload]("chat join"),
		ChatMessage:             variantOf[ChatMessagePayload]("chat message"),
		ChatMention:             variantOf[ChatMessagePayload]("chat message"),
		ChatOwnerJoin:           variantOf[ChatOwnerJoinPayload]("chat owner join"),
		ContentComment:          variantOf[CommentPayload]("comment"),
		ContentCreated:          variantOf[ContentPayload]("content"),
		ContentMention:          variantOf[ContentPayload]("content"),
		ContentReferenced:       variantOf[ContentPayload]("content"),
		ContentRequestFulfilled: variantOf[ContentPayload]("content"),
		ContentFeatured:         variantOf[FeaturedPayload]("featured"),
		ContentRequest:          variantOf[RequestPayload]("request"),
		ContentVote:             variantOf[VotePayload]("vote"),
		FriendJoined:            variantOf[FriendJoinedPayload]("friend joined"),
		Streak:                  variantOf[StreakPayload]("streak"),
		ThreadMessage:           variantOf[ThreadMessagePayload]("thread message"),
	}
	for _, t := range eventTypes {
		if _, ok := m[t]; ok {
			continue
		}
		switch {
		case t.IsStreamData():
			m[t] = variantOf[StreamPayload]("stream")
		case t.IsStreamChunk():
			m[t] = variantOf[StreamChunkPayload]("stream chunk")
		default:
			m[t] = variantOf[GenericPayload]("generic")
		}
	}
	return m
}()

// DecodePayload decodes the JSON data of an event into the payload variant
// accepted by t. Numbers inside free-form maps are kept as json.Number.
func DecodePayload(t EventType, raw json.RawMessage) (Payload, error) {
	v, ok := variants[t]
	if !ok {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrInvalidArgument, t)
	}
	p, err := v.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s payload: %w", ErrInvalidArgument, t, err)
	}
	return p, nil
}

func checkPayload(t EventType, p Payload) error {
	v, ok := variants[t]
	if !ok {
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidArgument, t)
	}
	if p == nil || !v.accepts(p) {
		return fmt.Errorf("%w: %s expects a %s payload, got %T", ErrInvalidArgument, t, v.name, p)
	}
	return p.Validate()
}
