package eventhub_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rogertalk/roger-api-sub001/pkg/async"
	"github.com/rogertalk/roger-api-sub001/pkg/eventhub"
	"github.com/rogertalk/roger-api-sub001/pkg/notifications"
)

var testNow = time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

func acct(id int64, username string, blockedBy ...int64) *notifications.Account {
	if blockedBy == nil {
		blockedBy = []int64{}
	}
	return &notifications.Account{ID: id, Username: username, BlockedBy: blockedBy}
}

func iosDevice(owner int64, token string) notifications.Device {
	return notifications.Device{
		Token:       token,
		Platform:    notifications.PlatformIOS,
		App:         eventhub.DefaultApp,
		Environment: notifications.EnvironmentProd,
		APIVersion:  50,
		OwnerID:     owner,
	}
}

func mustEvent(t *testing.T, recipient int64, typ eventhub.EventType, data eventhub.Payload) *eventhub.Event {
	t.Helper()
	ev, err := eventhub.NewEvent(recipient, typ, data)
	require.NoError(t, err)
	return ev
}

type pushBody struct {
	AccountID   int64          `json:"account_id"`
	App         string         `json:"app"`
	DeviceToken string         `json:"device_token"`
	Environment string         `json:"environment"`
	Data        map[string]any `json:"data"`
}

func decodeBody(t *testing.T, raw string) pushBody {
	t.Helper()
	var b pushBody
	require.NoError(t, json.Unmarshal([]byte(raw), &b))
	return b
}

type recordingPusher struct {
	mu     sync.Mutex
	bodies []string
}

func (p *recordingPusher) Post(body string) *async.Future[bool] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bodies = append(p.bodies, body)
	return async.Resolved(true, nil)
}

func (p *recordingPusher) Bodies() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.bodies...)
}

type fakeEnqueuer struct {
	mu     sync.Mutex
	events []*eventhub.Event
}

func (f *fakeEnqueuer) Enqueue(ev *eventhub.Event) *async.Future[struct{}] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return async.Resolved(struct{}{}, nil)
}

func (f *fakeEnqueuer) Events() []*eventhub.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*eventhub.Event(nil), f.events...)
}

// heldPusher records bodies and resolves their futures only on Release.
type heldPusher struct {
	mu       sync.Mutex
	bodies   []string
	resolves []async.ResolveFunc[bool]
}

func (p *heldPusher) Post(body string) *async.Future[bool] {
	p.mu.Lock()
	defer p.mu.Unlock()
	fut, resolve := async.NewPromise[bool]()
	p.bodies = append(p.bodies, body)
	p.resolves = append(p.resolves, resolve)
	return fut
}

func (p *heldPusher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bodies)
}

func (p *heldPusher) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, resolve := range p.resolves {
		resolve(true, nil)
	}
}
