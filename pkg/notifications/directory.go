package notifications

import (
	"context"
	"slices"
	"sync"
)

// Directory reads accounts and devices owned by other subsystems.
type Directory interface {
	// Account returns the account with its block list loaded, or ErrNotFound.
	Account(ctx context.Context, id int64) (*Account, error)
	// Devices returns the devices of owner, most recently registered first.
	Devices(ctx context.Context, ownerID int64) ([]Device, error)
}

// MemoryDirectory is an in-memory Directory for development and tests.
type MemoryDirectory struct {
	mu       sync.RWMutex
	accounts map[int64]Account
	devices  map[int64][]Device
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		accounts: make(map[int64]Account),
		devices:  make(map[int64][]Device),
	}
}

// PutAccount stores or replaces an account.
func (d *MemoryDirectory) PutAccount(a Account) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a.BlockedBy = slices.Clone(a.BlockedBy)
	d.accounts[a.ID] = a
}

// Block records that blocker has blocked the account blocked.
func (d *MemoryDirectory) Block(blocker, blocked int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a := d.accounts[blocked]
	a.ID = blocked
	if !slices.Contains(a.BlockedBy, blocker) {
		a.BlockedBy = append(a.BlockedBy, blocker)
	}
	d.accounts[blocked] = a
}

// AddDevice registers a device for its owner, replacing an earlier device
// with the same token.
func (d *MemoryDirectory) AddDevice(dev Device) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := slices.DeleteFunc(d.devices[dev.OwnerID], func(x Device) bool { return x.Token == dev.Token })
	d.devices[dev.OwnerID] = append([]Device{dev}, list...)
}

func (d *MemoryDirectory) Account(_ context.Context, id int64) (*Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if a.BlockedBy == nil {
		a.BlockedBy = []int64{}
	} else {
		a.BlockedBy = slices.Clone(a.BlockedBy)
	}
	return &a, nil
}

func (d *MemoryDirectory) Devices(_ context.Context, ownerID int64) ([]Device, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	list, ok := d.devices[ownerID]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(list), nil
}
