package notifications

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

type groupKey struct {
	recipientID int64
	key         string
}

// MemoryStore is an in-memory implementation of Store.
// Suitable for development and testing.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[int64][]Record // recipientID -> records
	groups  map[groupKey]string
}

// NewMemoryStore creates a new in-memory notification store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[int64][]Record),
		groups:  make(map[groupKey]string),
	}
}

func (s *MemoryStore) Insert(_ context.Context, rec Record) (Record, error) {
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	if rec.ID == "" {
		return Record{}, ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Grouped() {
		gk := groupKey{rec.RecipientID, rec.GroupKey}
		if _, exists := s.groups[gk]; exists {
			return Record{}, ErrConflict
		}
		s.groups[gk] = rec.ID
	}

	rec = rec.Clone()
	rec.Version = 1
	s.records[rec.RecipientID] = append(s.records[rec.RecipientID], rec)
	return rec.Clone(), nil
}

func (s *MemoryStore) FindGroup(_ context.Context, recipientID int64, key string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.groups[groupKey{recipientID, key}]
	if !ok {
		return Record{}, ErrNotFound
	}
	i := s.indexLocked(recipientID, id)
	if i < 0 {
		return Record{}, ErrNotFound
	}
	return s.records[recipientID][i].Clone(), nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, rec Record) (Record, error) {
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(rec.RecipientID, rec.ID)
	if i < 0 {
		return Record{}, ErrNotFound
	}
	current := s.records[rec.RecipientID][i]
	if current.Version != rec.Version {
		return Record{}, ErrConflict
	}
	// Identity fields are owned by the store.
	rec = rec.Clone()
	rec.GroupKey = current.GroupKey
	rec.CreatedAt = current.CreatedAt
	rec.Version = current.Version + 1
	s.records[rec.RecipientID][i] = rec
	return rec.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, recipientID int64, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(recipientID, id)
	if i < 0 {
		return Record{}, ErrNotFound
	}
	return s.records[recipientID][i].Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, recipientID int64, opts ListOptions) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []Record
	for _, r := range s.records[recipientID] {
		if opts.OnlyUnseen && r.Seen {
			continue
		}
		if len(opts.Types) > 0 && !slices.Contains(opts.Types, r.Type) {
			continue
		}
		if opts.Since != nil && !r.UpdatedAt.After(*opts.Since) {
			continue
		}
		filtered = append(filtered, r.Clone())
	}
	sortRecent(filtered)

	start := opts.Offset
	if start > len(filtered) {
		return []Record{}, nil
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], nil
}

func (s *MemoryStore) CountUnseen(_ context.Context, recipientID int64, window int) (int, error) {
	s.mu.RLock()
	recent := slices.Clone(s.records[recipientID])
	s.mu.RUnlock()

	sortRecent(recent)
	if window > 0 && len(recent) > window {
		recent = recent[:window]
	}
	count := 0
	for _, r := range recent {
		if !r.Seen {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) MarkSeen(_ context.Context, recipientID int64, t time.Time, ids ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.records[recipientID]
	changed := 0
	for i := range records {
		if records[i].Seen {
			continue
		}
		if len(ids) > 0 && !slices.Contains(ids, records[i].ID) {
			continue
		}
		records[i].MarkSeen(t)
		records[i].Version++
		changed++
	}
	return changed, nil
}

func (s *MemoryStore) indexLocked(recipientID int64, id string) int {
	return slices.IndexFunc(s.records[recipientID], func(r Record) bool { return r.ID == id })
}

// sortRecent orders records by UpdatedAt, newest first, ties broken by ID
// so pagination is stable.
func sortRecent(records []Record) {
	slices.SortFunc(records, func(a, b Record) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
