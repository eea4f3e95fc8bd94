package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStore for testing Manager
type MockStore struct {
	mock.Mock
	Store
}

func (m *MockStore) List(ctx context.Context, recipientID int64, opts ListOptions) ([]Record, error) {
	args := m.Called(ctx, recipientID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Record), args.Error(1)
}

func (m *MockStore) MarkSeen(ctx context.Context, recipientID int64, t time.Time, ids ...string) (int, error) {
	args := m.Called(ctx, recipientID, t, ids)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) CountUnseen(ctx context.Context, recipientID int64, window int) (int, error) {
	args := m.Called(ctx, recipientID, window)
	return args.Int(0), args.Error(1)
}

func TestManager_List(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		opts     ListOptions
		wantOpts ListOptions
	}{
		{name: "default limit", opts: ListOptions{}, wantOpts: ListOptions{Limit: DefaultListLimit}},
		{name: "explicit limit", opts: ListOptions{Limit: 5, OnlyUnseen: true}, wantOpts: ListOptions{Limit: 5, OnlyUnseen: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockStore{}
			store.On("List", ctx, int64(1), tt.wantOpts).Return([]Record{{ID: "a"}}, nil)

			m := NewManager(store)
			got, err := m.List(ctx, 1, tt.opts)
			require.NoError(t, err)
			assert.Len(t, got, 1)
			store.AssertExpectations(t)
		})
	}
}

func TestManager_MarkSeen(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("selected ids", func(t *testing.T) {
		store := &MockStore{}
		store.On("MarkSeen", ctx, int64(1), now, []string{"a", "b"}).Return(2, nil)

		m := NewManager(store, WithManagerClock(func() time.Time { return now }))
		n, err := m.MarkSeen(ctx, 1, "a", "b")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		store.AssertExpectations(t)
	})

	t.Run("no ids is a no-op", func(t *testing.T) {
		store := &MockStore{}
		m := NewManager(store)
		n, err := m.MarkSeen(ctx, 1)
		require.NoError(t, err)
		assert.Zero(t, n)
		store.AssertNotCalled(t, "MarkSeen", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("all", func(t *testing.T) {
		store := &MockStore{}
		store.On("MarkSeen", ctx, int64(1), now, []string(nil)).Return(4, nil)

		m := NewManager(store, WithManagerClock(func() time.Time { return now }))
		n, err := m.MarkAllSeen(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run("store error", func(t *testing.T) {
		store := &MockStore{}
		boom := errors.New("boom")
		store.On("MarkSeen", ctx, int64(1), mock.Anything, mock.Anything).Return(0, boom)

		m := NewManager(store)
		_, err := m.MarkAllSeen(ctx, 1)
		assert.ErrorIs(t, err, boom)
	})
}

func TestManager_CountUnseen(t *testing.T) {
	ctx := context.Background()
	store := &MockStore{}
	store.On("CountUnseen", ctx, int64(3), UnseenWindow).Return(7, nil)

	n, err := NewManager(store).CountUnseen(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}
