package eventhub

import (
	"fmt"
	"slices"
)

// EventType identifies an event. The set is closed; identifiers are stable
// strings stored in notification records and push payloads.
type EventType string

const (
	Custom                  EventType = "custom"
	AccountChange           EventType = "account-change"
	AccountFollow           EventType = "account-follow"
	StatusChange            EventType = "status-change"
	ChatMention             EventType = "chat-mention"
	ChatMessage             EventType = "chat-message"
	ChatJoin                EventType = "chat-join"
	ChatOwnerJoin           EventType = "chat-owner-join"
	ContentComment          EventType = "content-comment"
	ContentCreated          EventType = "content-created"
	ContentFeatured         EventType = "content-featured"
	ContentMention          EventType = "content-mention"
	ContentReferenced       EventType = "content-referenced"
	ContentRequest          EventType = "content-request"
	ContentRequestFulfilled EventType = "content-request-fulfilled"
	ContentView             EventType = "content-view"
	ContentVote             EventType = "content-vote"
	FriendJoined            EventType = "friend-joined"
	PublicRequestUpdate     EventType = "public-request-update"
	ServiceTeamJoin         EventType = "service-team-join"
	Streak                  EventType = "streak"
	StreamAttachment        EventType = "stream-attachment"
	StreamBuzz              EventType = "stream-buzz"
	StreamChange            EventType = "stream-change"
	StreamChunk             EventType = "stream-chunk"
	StreamChunkExternalPlay EventType = "stream-chunk-external-play"
	StreamChunkFirstPlay    EventType = "stream-chunk-first-play"
	StreamChunkReaction     EventType = "stream-chunk-reaction"
	StreamChunkText         EventType = "stream-chunk-text"
	StreamHidden            EventType = "stream-hidden"
	StreamImage             EventType = "stream-image"
	StreamJoin              EventType = "stream-join"
	StreamLeave             EventType = "stream-leave"
	StreamListen            EventType = "stream-listen"
	StreamNew               EventType = "stream-new"
	StreamParticipantChange EventType = "stream-participant-change"
	StreamParticipants      EventType = "stream-participants"
	StreamShareable         EventType = "stream-shareable"
	StreamShown             EventType = "stream-shown"
	StreamStatus            EventType = "stream-status"
	StreamTitle             EventType = "stream-title"
	ThreadMessage           EventType = "thread-message"
)

var eventTypes = []EventType{
	Custom, AccountChange, AccountFollow, StatusChange,
	ChatMention, ChatMessage, ChatJoin, ChatOwnerJoin,
	ContentComment, ContentCreated, ContentFeatured, ContentMention,
	ContentReferenced, ContentRequest, ContentRequestFulfilled, ContentView,
	ContentVote, FriendJoined, PublicRequestUpdate, ServiceTeamJoin, Streak,
	StreamAttachment, StreamBuzz, StreamChange, StreamChunk,
	StreamChunkExternalPlay, StreamChunkFirstPlay, StreamChunkReaction,
	StreamChunkText, StreamHidden, StreamImage, StreamJoin, StreamLeave,
	StreamListen, StreamNew, StreamParticipantChange, StreamParticipants,
	StreamShareable, StreamShown, StreamStatus, StreamTitle, ThreadMessage,
}

// EventTypes returns every known event type.
func EventTypes() []EventType {
	return slices.Clone(eventTypes)
}

// ParseEventType converts s into an EventType.
func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown event type %q", ErrInvalidArgument, s)
	}
	return t, nil
}

// Valid reports whether t belongs to the closed set.
func (t EventType) Valid() bool {
	return slices.Contains(eventTypes, t)
}

func (t EventType) String() string {
	return string(t)
}

// IsStreamChunk reports whether t carries a chunk of a stream rather than
// the stream itself.
func (t EventType) IsStreamChunk() bool {
	switch t {
	case StreamChunk, StreamChunkExternalPlay, StreamChunkFirstPlay, StreamChunkReaction, StreamChunkText:
		return true
	}
	return false
}

// IsStreamData reports whether t carries the full stream.
func (t EventType) IsStreamData() bool {
	switch t {
	case StreamBuzz, StreamChange, StreamImage, StreamListen, StreamShareable, StreamTitle:
		return true
	}
	return false
}
