package eventhub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/rogertalk/roger-api-sub001/pkg/notifications"
)

// Payload is the typed data of an event. Each event type accepts exactly one
// payload variant; variants are passed by value.
type Payload interface {
	// Fields renders the client view of the payload for a device api version.
	Fields(apiVersion int) map[string]any
	// Validate reports missing required fields.
	Validate() error
	// Origin returns the account whose action caused the event, if any.
	Origin() *notifications.Account
}

// Content is the partial view of a video post carried by content events.
type Content struct {
	ID          int64    `json:"id"`
	CreatorID   int64    `json:"creator_id"`
	Title       string   `json:"title,omitempty"`
	ThumbURL    string   `json:"thumb_url,omitempty"`
	OriginalURL string   `json:"original_url,omitempty"`
	VideoURL    string   `json:"video_url,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	RelatedToID int64    `json:"related_to,omitempty"`
}

// URL prefers the original url over the transcoded video.
func (c Content) URL() string {
	if c.OriginalURL != "" {
		return c.OriginalURL
	}
	return c.VideoURL
}

func (c Content) HasTag(tag string) bool {
	return slices.Contains(c.Tags, tag)
}

func (c Content) view() map[string]any {
	v := map[string]any{
		"id":         c.ID,
		"creator_id": c.CreatorID,
		"title":      c.Title,
		"thumb_url":  c.ThumbURL,
		"url":        c.URL(),
	}
	if len(c.Tags) > 0 {
		v["tags"] = slices.Clone(c.Tags)
	}
	if c.RelatedToID != 0 {
		v["related_to"] = c.RelatedToID
	}
	return v
}

// Comment is a comment left on a Content.
type Comment struct {
	ID     int64  `json:"id"`
	Offset int    `json:"offset"`
	Text   string `json:"text"`
}

// Stream is the partial view of an audio stream.
type Stream struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title,omitempty"`
	ImageURL    string           `json:"image_url,omitempty"`
	Chunks      []map[string]any `json:"chunks,omitempty"`
	Others      []map[string]any `json:"others,omitempty"`
	Attachments []map[string]any `json:"attachments,omitempty"`
}

// view strips the lists newer clients fetch on their own: chunks and
// participants from api version 8, attachments from 16.
// TODO: silent pushes to clients below version 8 still carry full chunk
// lists; trim them if payloads hit the gateway size limit.
func (s Stream) view(apiVersion int) map[string]any {
	v := map[string]any{
		"id":        s.ID,
		"title":     s.Title,
		"image_url": s.ImageURL,
	}
	if apiVersion < 8 {
		v["chunks"] = nonNilList(s.Chunks)
		v["others"] = nonNilList(s.Others)
	}
	if apiVersion < 16 {
		v["attachments"] = nonNilList(s.Attachments)
	}
	return v
}

// CustomPayload is a free-form notification sent by operators and bots.
// Properties are stored verbatim on the notification record.
type CustomPayload struct {
	Title            string
	Text             string
	AlertDisabled    bool
	AlertSound       *bool
	AlertOpenURL     string
	NotifDisabled    bool
	GroupKey         string
	GroupHistoryKeys []string
	Properties       map[string]any
}

// customKeys are the control keys of a custom payload; everything else in
// the JSON object lands in Properties.
var customKeys = []string{
	"title", "text", "alert_disabled", "alert_sound", "alert_open_url",
	"notif_disabled", "group_key", "group_history_keys",
}

// UnmarshalJSON reads the flat object used by the emit API.
func (p *CustomPayload) UnmarshalJSON(raw []byte) error {
	var control struct {
		Title            string   `json:"title"`
		Text             string   `json:"text"`
		AlertDisabled    bool     `json:"alert_disabled"`
		AlertSound       *bool    `json:"alert_sound"`
		AlertOpenURL     string   `json:"alert_open_url"`
		NotifDisabled    bool     `json:"notif_disabled"`
		GroupKey         string   `json:"group_key"`
		GroupHistoryKeys []string `json:"group_history_keys"`
	}
	if err := json.Unmarshal(raw, &control); err != nil {
		return err
	}

	props := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&props); err != nil {
		return err
	}
	for _, k := range customKeys {
		delete(props, k)
	}

	*p = CustomPayload{
		Title:            control.Title,
		Text:             control.Text,
		AlertDisabled:    control.AlertDisabled,
		AlertSound:       control.AlertSound,
		AlertOpenURL:     control.AlertOpenURL,
		NotifDisabled:    control.NotifDisabled,
		GroupKey:         control.GroupKey,
		GroupHistoryKeys: control.GroupHistoryKeys,
		Properties:       props,
	}
	return nil
}

// Sound reports whether the alert plays the default sound. It does unless
// AlertSound is explicitly false.
func (p CustomPayload) Sound() bool {
	return p.AlertSound == nil || *p.AlertSound
}

func (p CustomPayload) Fields(int) map[string]any {
	out := cloneMap(p.Properties)
	if p.AlertOpenURL != "" {
		out["alert_open_url"] = p.AlertOpenURL
	}
	if p.NotifDisabled {
		out["notif_disabled"] = true
	}
	return out
}

func (p CustomPayload) Validate() error {
	if p.Text == "" {
		return missing("text")
	}
	if len(p.GroupHistoryKeys) > 0 && p.GroupKey == "" {
		return fmt.Errorf("%w: group_history_keys require group_key", ErrInvalidArgument)
	}
	for _, k := range p.GroupHistoryKeys {
		if _, ok := p.Properties[k]; !ok {
			return fmt.Errorf("%w: group history key %q has no value", ErrInvalidArgument, k)
		}
	}
	return nil
}

func (CustomPayload) Origin() *notifications.Account { return nil }

// FollowPayload is carried by account-follow.
type FollowPayload struct {
	Follower *notifications.Account `json:"follower"`
}

func (p FollowPayload) Fields(int) map[string]any {
	return map[string]any{"follower": accountView(p.Follower)}
}

func (p FollowPayload) Validate() error { return requireAccount("follower", p.Follower) }

func (p FollowPayload) Origin() *notifications.Account { return p.Follower }

// ChatJoinPayload is carried by chat-join.
type ChatJoinPayload struct {
	ChannelID string                 `json:"channel_id"`
	Joiner    *notifications.Account `json:"joiner"`
	Owner     *notifications.Account `json:"owner"`
	Text      string                 `json:"text"`
}

func (p ChatJoinPayload) Fields(int) map[string]any {
	return map[string]any{
		"channel_id": p.ChannelID,
		"joiner":     accountView(p.Joiner),
		"owner":      accountView(p.Owner),
		"text":       p.Text,
	}
}

func (p ChatJoinPayload) Validate() error {
	if p.ChannelID == "" {
		return missing("channel_id")
	}
	if err := requireAccount("joiner", p.Joiner); err != nil {
		return err
	}
	return requireAccount("owner", p.Owner)
}

func (p ChatJoinPayload) Origin() *notifications.Account { return p.Joiner }

// ChatMessagePayload is carried by chat-message and chat-mention.
type ChatMessagePayload struct {
	ChannelID string                 `json:"channel_id"`
	Owner     *notifications.Account `json:"owner"`
	Sender    *notifications.Account `json:"sender"`
	Text      string                 `json:"text"`
}

func (p ChatMessagePayload) Fields(int) map[string]any {
	return map[string]any{
		"channel_id": p.ChannelID,
		"owner":      accountView(p.Owner),
		"sender":     accountView(p.Sender),
		"text":       p.Text,
	}
}

func (p ChatMessagePayload) Validate() error {
	if p.ChannelID == "" {
		return missing("channel_id")
	}
	if err := requireAccount("owner", p.Owner); err != nil {
		return err
	}
	return requireAccount("sender", p.Sender)
}

func (p ChatMessagePayload) Origin() *notifications.Account { return p.Sender }

// ChatOwnerJoinPayload is carried by chat-owner-join.
type ChatOwnerJoinPayload struct {
	ChannelID string                 `json:"channel_id"`
	Owner     *notifications.Account `json:"owner"`
	Text      string                 `json:"text"`
}

func (p ChatOwnerJoinPayload) Fields(int) map[string]any {
	return map[string]any{
		"channel_id": p.ChannelID,
		"owner":      accountView(p.Owner),
		"text":       p.Text,
	}
}

func (p ChatOwnerJoinPayload) Validate() error {
	if p.ChannelID == "" {
		return missing("channel_id")
	}
	return requireAccount("owner", p.Owner)
}

func (p ChatOwnerJoinPayload) Origin() *notifications.Account { return p.Owner }

// CommentPayload is carried by content-comment.
type CommentPayload struct {
	Commenter *notifications.Account `json:"commenter"`
	Comment   Comment                `json:"comment"`
	Content   Content                `json:"content"`
}

func (p CommentPayload) Fields(int) map[string]any {
	return map[string]any{
		"commenter": accountView(p.Commenter),
		"comment":   map[string]any{"id": p.Comment.ID, "offset": p.Comment.Offset, "text": p.Comment.Text},
		"content":   p.Content.view(),
	}
}

func (p CommentPayload) Validate() error {
	if err := requireAccount("commenter", p.Commenter); err != nil {
		return err
	}
	if p.Comment.ID == 0 {
		return missing("comment.id")
	}
	return requireContent(p.Content)
}

func (p CommentPayload) Origin() *notifications.Account { return p.Commenter }

// ContentPayload is carried by content-created, content-mention,
// content-referenced and content-request-fulfilled.
type ContentPayload struct {
	Creator *notifications.Account `json:"creator"`
	Content Content                `json:"content"`
}

func (p ContentPayload) Fields(int) map[string]any {
	return map[string]any{
		"creator": accountView(p.Creator),
		"content": p.Content.view(),
	}
}

func (p ContentPayload) Validate() error {
	if err := requireAccount("creator", p.Creator); err != nil {
		return err
	}
	return requireContent(p.Content)
}

func (p ContentPayload) Origin() *notifications.Account { return p.Creator }

// FeaturedPayload is carried by content-featured.
type FeaturedPayload struct {
	Content Content `json:"content"`
}

func (p FeaturedPayload) Fields(int) map[string]any {
	return map[string]any{"content": p.Content.view()}
}

func (p FeaturedPayload) Validate() error { return requireContent(p.Content) }

func (FeaturedPayload) Origin() *notifications.Account { return nil }

// RequestPayload is carried by content-request.
type RequestPayload struct {
	Requester *notifications.Account `json:"requester"`
	Content   Content                `json:"content"`
	Comment   string                 `json:"comment,omitempty"`
}

func (p RequestPayload) Fields(int) map[string]any {
	out := map[string]any{
		"requester": accountView(p.Requester),
		"content":   p.Content.view(),
	}
	if p.Comment != "" {
		out["comment"] = p.Comment
	}
	return out
}

func (p RequestPayload) Validate() error {
	if err := requireAccount("requester", p.Requester); err != nil {
		return err
	}
	return requireContent(p.Content)
}

func (p RequestPayload) Origin() *notifications.Account { return p.Requester }

// VotePayload is carried by content-vote.
type VotePayload struct {
	Voter   *notifications.Account `json:"voter"`
	Content Content                `json:"content"`
}

func (p VotePayload) Fields(int) map[string]any {
	return map[string]any{
		"voter":   accountView(p.Voter),
		"content": p.Content.view(),
	}
}

func (p VotePayload) Validate() error {
	if err := requireAccount("voter", p.Voter); err != nil {
		return err
	}
	return requireContent(p.Content)
}

func (p VotePayload) Origin() *notifications.Account { return p.Voter }

// FriendJoinedPayload is carried by friend-joined.
type FriendJoinedPayload struct {
	Friend         *notifications.Account `json:"friend"`
	FriendName     string                 `json:"friend_name"`
	FriendImageURL string                 `json:"friend_image_url,omitempty"`
}

func (p FriendJoinedPayload) Fields(int) map[string]any {
	return map[string]any{
		"friend":           accountView(p.Friend),
		"friend_name":      p.FriendName,
		"friend_image_url": p.FriendImageURL,
	}
}

func (p FriendJoinedPayload) Validate() error {
	if err := requireAccount("friend", p.Friend); err != nil {
		return err
	}
	if p.FriendName == "" {
		return missing("friend_name")
	}
	return nil
}

func (p FriendJoinedPayload) Origin() *notifications.Account { return p.Friend }

// StreakPayload is carried by streak.
type StreakPayload struct {
	Days int `json:"days"`
}

func (p StreakPayload) Fields(int) map[string]any {
	return map[string]any{"days": p.Days}
}

func (p StreakPayload) Validate() error {
	if p.Days <= 0 {
		return missing("days")
	}
	return nil
}

func (StreakPayload) Origin() *notifications.Account { return nil }

// ThreadMessagePayload is carried by thread-message.
type ThreadMessagePayload struct {
	ThreadID string                 `json:"thread_id"`
	Sender   *notifications.Account `json:"sender"`
	Text     string                 `json:"text"`
}

func (p ThreadMessagePayload) Fields(int) map[string]any {
	return map[string]any{
		"thread_id": p.ThreadID,
		"message":   map[string]any{"account_id": accountID(p.Sender), "text": p.Text},
		"sender":    accountView(p.Sender),
	}
}

func (p ThreadMessagePayload) Validate() error {
	if p.ThreadID == "" {
		return missing("thread_id")
	}
	return requireAccount("sender", p.Sender)
}

func (p ThreadMessagePayload) Origin() *notifications.Account { return p.Sender }

// StreamPayload is carried by events that ship the whole stream.
type StreamPayload struct {
	Stream Stream         `json:"stream"`
	Extra  map[string]any `json:"extra,omitempty"`
}

func (p StreamPayload) Fields(apiVersion int) map[string]any {
	out := cloneMap(p.Extra)
	out["stream"] = p.Stream.view(apiVersion)
	return out
}

func (p StreamPayload) Validate() error {
	if p.Stream.ID == 0 {
		return missing("stream.id")
	}
	return nil
}

func (StreamPayload) Origin() *notifications.Account { return nil }

// StreamChunkPayload is carried by stream chunk events. Clients only get the
// stream id, not the stream.
type StreamChunkPayload struct {
	StreamID int64          `json:"stream_id"`
	Chunk    map[string]any `json:"chunk,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

func (p StreamChunkPayload) Fields(int) map[string]any {
	out := cloneMap(p.Extra)
	out["stream_id"] = p.StreamID
	if p.Chunk != nil {
		out["chunk"] = cloneMap(p.Chunk)
	}
	return out
}

func (p StreamChunkPayload) Validate() error {
	if p.StreamID == 0 {
		return missing("stream_id")
	}
	return nil
}

func (StreamChunkPayload) Origin() *notifications.Account { return nil }

// GenericPayload carries the events that never produce a notification
// record; clients receive Data as is.
type GenericPayload struct {
	Data map[string]any `json:"data,omitempty"`
}

func (p GenericPayload) Fields(int) map[string]any {
	out := cloneMap(p.Data)
	delete(out, "mute_notification")
	return out
}

func (GenericPayload) Validate() error { return nil }

func (GenericPayload) Origin() *notifications.Account { return nil }

func accountView(a *notifications.Account) map[string]any {
	if a == nil {
		return nil
	}
	return map[string]any{
		"id":        a.ID,
		"username":  a.Username,
		"image_url": a.ImageURL,
		"verified":  a.Verified,
	}
}

func accountID(a *notifications.Account) int64 {
	if a == nil {
		return 0
	}
	return a.ID
}

func requireAccount(name string, a *notifications.Account) error {
	if a == nil || a.ID <= 0 {
		return missing(name)
	}
	return nil
}

func requireContent(c Content) error {
	if c.ID == 0 {
		return missing("content.id")
	}
	return nil
}

func missing(field string) error {
	return fmt.Errorf("%w: %s is required", ErrInvalidArgument, field)
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return maps.Clone(m)
}

func nonNilList(l []map[string]any) []map[string]any {
	if l == nil {
		return []map[string]any{}
	}
	return l
}
