package eventhub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"unicode/utf8"

	"github.com/rogertalk/roger-api-sub001/pkg/logger"
	"github.com/rogertalk/roger-api-sub001/pkg/notifications"
)

const (
	DefaultApp     = "cam.reaction.ReactionCam"
	DefaultAppName = "reaction.cam"
	DefaultSound   = "default"

	// maxTitleRunes bounds content titles used as alert bodies.
	maxTitleRunes = 100
)

// Assembler renders push bodies for one device.
type Assembler struct {
	platforms []string
	apps      []string
	appName   string
	logger    *slog.Logger
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithPlatforms sets the device platforms that receive pushes.
func WithPlatforms(platforms ...string) AssemblerOption {
	return func(a *Assembler) {
		if len(platforms) > 0 {
			a.platforms = slices.Clone(platforms)
		}
	}
}

// WithApps sets the app bundle identifiers that receive pushes.
func WithApps(apps ...string) AssemblerOption {
	return func(a *Assembler) {
		if len(apps) > 0 {
			a.apps = slices.Clone(apps)
		}
	}
}

// WithAppName sets the product name used in alert texts.
func WithAppName(name string) AssemblerOption {
	return func(a *Assembler) {
		if name != "" {
			a.appName = name
		}
	}
}

func WithAssemblerLogger(l *slog.Logger) AssemblerOption {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAssembler creates an assembler for iOS devices of the default app.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		platforms: []string{notifications.PlatformIOS},
		apps:      []string{DefaultApp},
		appName:   DefaultAppName,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type alert struct {
	title string
	body  string
	sound string
}

type envelope struct {
	AccountID   int64          `json:"account_id"`
	App         string         `json:"app"`
	DeviceToken string         `json:"device_token"`
	Environment string         `json:"environment"`
	Data        map[string]any `json:"data"`
}

// Assemble returns the push bodies for device. It returns none for
// unsupported devices, blocked origins and the recipient's own actions. A
// known badge is attached to alerts.
func (a *Assembler) Assemble(recipientID int64, device notifications.Device, ev *Event, badge *int) ([]string, error) {
	if ev == nil || ev.Data == nil {
		return nil, ErrUnsupportedEvent
	}
	if !slices.Contains(a.platforms, device.Platform) {
		a.logger.LogAttrs(context.Background(), slog.LevelInfo, "Unsupported platform",
			logger.AccountID(recipientID),
			logger.Platform(device.Platform),
			logger.DeviceToken(device.Token),
		)
		return nil, nil
	}
	if !slices.Contains(a.apps, device.App) {
		a.logger.LogAttrs(context.Background(), slog.LevelInfo, "Unsupported app",
			logger.AccountID(recipientID),
			logger.App(device.App),
			logger.DeviceToken(device.Token),
		)
		return nil, nil
	}
	if ev.Origin.IsBlockedBy(recipientID) || ev.SelfAction() {
		return nil, nil
	}

	data := ev.Data.Fields(device.APIVersion)
	data["type"] = ev.Type.String()
	data["api_version"] = device.APIVersion
	data["aps"] = a.alertFor(recipientID, ev).aps(badge)

	body, err := encode(envelope{
		AccountID:   recipientID,
		App:         device.App,
		DeviceToken: device.Token,
		Environment: device.Environment,
		Data:        data,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding %s push: %w", ErrUnsupportedEvent, ev.Type, err)
	}
	return []string{body}, nil
}

func (al alert) aps(badge *int) map[string]any {
	if al.body == "" {
		return map[string]any{"content-available": 1}
	}
	msg := map[string]any{"body": al.body}
	if al.title != "" {
		msg["title"] = al.title
	}
	aps := map[string]any{"alert": msg}
	if badge != nil {
		aps["badge"] = *badge
	}
	if al.sound != "" {
		aps["sound"] = al.sound
	}
	return aps
}

// alertFor returns the visible alert of ev, or an empty alert for a silent
// push.
func (a *Assembler) alertFor(me int64, ev *Event) alert {
	switch p := ev.Data.(type) {
	case CustomPayload:
		if p.AlertDisabled {
			return alert{}
		}
		al := alert{title: p.Title, body: p.Text}
		if p.Sound() {
			al.sound = DefaultSound
		}
		return al

	case FollowPayload:
		return alert{body: fmt.Sprintf("@%s subscribed to you", p.Follower.Username)}

	case ChatJoinPayload:
		return alert{
			title: fmt.Sprintf("@%s joined your LIVECHAT", p.Joiner.Username),
			body:  "Go there now to reply to them!",
			sound: DefaultSound,
		}

	case ChatMessagePayload:
		title := "LIVECHAT"
		if p.Owner.ID != me {
			title = fmt.Sprintf("@%s's LIVECHAT", p.Owner.Username)
		}
		return alert{
			title: title,
			body:  fmt.Sprintf("@%s: %s", p.Sender.Username, p.Text),
			sound: DefaultSound,
		}

	case ChatOwnerJoinPayload:
		return alert{
			title: fmt.Sprintf("@%s is on LIVECHAT", p.Owner.Username),
			body:  p.Text,
		}

	case CommentPayload:
		if p.Commenter.ID == me {
			return alert{}
		}
		// Anyone other than the creator is notified because they commented too.
		if p.Content.CreatorID != me {
			return alert{body: fmt.Sprintf("@%s also commented: %s", p.Commenter.Username, p.Comment.Text)}
		}
		title := p.Content.Title
		if title == "" {
			title = "New Comment"
		}
		return alert{
			title: title,
			body:  fmt.Sprintf("@%s: %s", p.Commenter.Username, p.Comment.Text),
			sound: DefaultSound,
		}

	case ContentPayload:
		if p.Creator.ID == me {
			return alert{}
		}
		return a.contentAlert(ev.Type, p)

	case FeaturedPayload:
		return alert{title: "FEATURED", body: "Your video just got featured!", sound: DefaultSound}

	case RequestPayload:
		if p.Requester.ID == me {
			return alert{}
		}
		body := fmt.Sprintf("@%s requested your reaction", p.Requester.Username)
		if p.Content.Title != "" {
			body = fmt.Sprintf("@%s requested your reaction to %s", p.Requester.Username, p.Content.Title)
		}
		if p.Comment != "" {
			return alert{title: body, body: p.Comment}
		}
		return alert{body: body}

	case VotePayload:
		if p.Voter.ID == me {
			return alert{}
		}
		return alert{body: fmt.Sprintf("@%s liked your video", p.Voter.Username)}

	case FriendJoinedPayload:
		return alert{
			title: "FRIEND JOINED",
			body:  fmt.Sprintf("%s joined you on %s", p.FriendName, a.appName),
			sound: DefaultSound,
		}

	case StreakPayload:
		return alert{body: fmt.Sprintf("You're on a %d-day posting streak!", p.Days), sound: DefaultSound}

	case ThreadMessagePayload:
		if p.Sender.ID == me {
			return alert{}
		}
		return alert{title: "@" + p.Sender.Username, body: p.Text, sound: DefaultSound}
	}
	return alert{}
}

func (a *Assembler) contentAlert(t EventType, p ContentPayload) alert {
	creator := p.Creator.Username
	switch t {
	case ContentCreated:
		switch {
		case p.Content.HasTag("repost") && p.Content.Title != "":
			return alert{title: fmt.Sprintf("@%s reposted a video", creator), body: truncate(p.Content.Title, maxTitleRunes)}
		case p.Content.HasTag("repost"):
			return alert{body: fmt.Sprintf("@%s reposted a video.", creator)}
		case p.Content.Title != "":
			return alert{title: fmt.Sprintf("@%s posted a video", creator), body: truncate(p.Content.Title, maxTitleRunes)}
		default:
			return alert{body: fmt.Sprintf("@%s just posted a new video!", creator)}
		}
	case ContentMention:
		return alert{body: fmt.Sprintf("@%s mentioned you in their video!", creator), sound: DefaultSound}
	case ContentReferenced:
		return alert{body: fmt.Sprintf("@%s reacted to your video!", creator), sound: DefaultSound}
	case ContentRequestFulfilled:
		return alert{body: fmt.Sprintf("@%s made the reaction you requested!", creator), sound: DefaultSound}
	}
	return alert{}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// encode marshals v without HTML escaping and without the trailing newline
// added by json.Encoder.
func encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
