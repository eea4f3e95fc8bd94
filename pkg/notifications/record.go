package notifications

import (
	"maps"
	"slices"
	"time"
)

const (
	// MaxGroupHistory caps every group history list.
	// TODO: make per-type once clients page through long follower histories.
	MaxGroupHistory = 50
	// MaxDevicesPerAccount caps the devices returned for one recipient.
	MaxDevicesPerAccount = 6
	// UnseenWindow is how many of the most recent records are considered
	// when computing the unseen badge.
	// TODO: revisit together with a retention job; records are never pruned.
	UnseenWindow = 50
)

// Record is a persisted, per-recipient notification. Grouped records share
// a GroupKey and accumulate history lists instead of creating new rows.
type Record struct {
	ID               string         `json:"id"`
	RecipientID      int64          `json:"recipient_id"`
	Type             string         `json:"type"`
	Properties       map[string]any `json:"properties"`
	GroupKey         string         `json:"group_key,omitempty"`
	GroupHistoryKeys []string       `json:"group_history_keys,omitempty"`
	GroupCount       int            `json:"group_count"`
	Seen             bool           `json:"seen"`
	SeenAt           *time.Time     `json:"seen_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Version          int64          `json:"-"`
}

// Grouped reports whether r coalesces with other records of its recipient.
func (r Record) Grouped() bool {
	return r.GroupKey != ""
}

// Validate checks the fields every store relies on.
func (r Record) Validate() error {
	if r.RecipientID <= 0 || r.Type == "" {
		return ErrInvalidRecord
	}
	if len(r.GroupHistoryKeys) > 0 && !r.Grouped() {
		return ErrInvalidRecord
	}
	return nil
}

// MarkSeen flags the record as seen at t.
func (r *Record) MarkSeen(t time.Time) {
	if r.Seen {
		return
	}
	r.Seen = true
	r.SeenAt = &t
}

// Clone returns a copy that shares no mutable state with r. History lists
// are copied one level deep, which is all MergeRecords mutates.
func (r Record) Clone() Record {
	out := r
	out.Properties = make(map[string]any, len(r.Properties))
	for k, v := range r.Properties {
		if list, ok := v.([]any); ok {
			v = slices.Clone(list)
		}
		out.Properties[k] = v
	}
	out.GroupHistoryKeys = slices.Clone(r.GroupHistoryKeys)
	if r.SeenAt != nil {
		t := *r.SeenAt
		out.SeenAt = &t
	}
	return out
}

// Public renders the client view of the record. Clients on api version 42
// and later also receive the group count.
func (r Record) Public(apiVersion int) map[string]any {
	out := maps.Clone(r.Properties)
	if out == nil {
		out = make(map[string]any, 5)
	}
	out["id"] = r.ID
	out["seen"] = r.Seen
	out["timestamp"] = r.UpdatedAt
	out["type"] = r.Type
	if apiVersion >= 42 {
		out["group_count"] = r.GroupCount
	}
	return out
}

// Platforms a device may register with.
const (
	PlatformIOS        = "ios"
	PlatformAndroid    = "android"
	PlatformGCM        = "gcm"
	PlatformGCMIOS     = "gcm_ios"
	PlatformPushKit    = "pushkit"
	EnvironmentProd    = "prod"
	EnvironmentSandbox = "sandbox"
)

// Device is a push target owned by an account.
type Device struct {
	Token       string `json:"token"`
	Platform    string `json:"platform"`
	App         string `json:"app"`
	Environment string `json:"environment"`
	APIVersion  int    `json:"api_version"`
	OwnerID     int64  `json:"owner_id"`
}

// Account is the partial account view the hub needs. A nil BlockedBy means
// the block list has not been loaded.
type Account struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	ImageURL  string  `json:"image_url,omitempty"`
	Verified  bool    `json:"verified"`
	BlockedBy []int64 `json:"-"`
}

// BlockListLoaded reports whether BlockedBy is authoritative.
func (a *Account) BlockListLoaded() bool {
	return a != nil && a.BlockedBy != nil
}

// IsBlockedBy reports whether id has blocked a.
func (a *Account) IsBlockedBy(id int64) bool {
	return a != nil && slices.Contains(a.BlockedBy, id)
}
