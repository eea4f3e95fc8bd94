package notifications_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rogertalk/roger-api-sub001/pkg/notifications"
)

func newRepository(t *testing.T) (*notifications.Repository, *notifications.MemoryStore, *notifications.MemoryDirectory) {
	t.Helper()
	store := notifications.NewMemoryStore()
	dir := notifications.NewMemoryDirectory()
	repo := notifications.NewRepository(store, dir, notifications.WithClock(func() time.Time { return testNow }))
	return repo, store, dir
}

func TestRepository_PutNotification(t *testing.T) {
	t.Parallel()

	repo, store, _ := newRepository(t)
	ctx := context.Background()

	t.Run("ungrouped records are always new", func(t *testing.T) {
		for range 2 {
			rec, err := repo.PutNotification(ctx, notifications.Record{
				RecipientID: 7,
				Type:        "content-comment",
				Properties:  map[string]any{"comment": "hi"},
			})
			require.NoError(t, err)
			assert.NotEmpty(t, rec.ID)
			assert.Equal(t, testNow, rec.CreatedAt)
			assert.Equal(t, 1, rec.GroupCount)
		}
		list, err := store.List(ctx, 7, notifications.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("grouped records merge", func(t *testing.T) {
		first, err := repo.PutNotification(ctx, followRecord(8, 1))
		require.NoError(t, err)
		second, err := repo.MergeNotification(ctx, followRecord(8, 2))
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 2, second.GroupCount)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := repo.PutNotification(ctx, notifications.Record{Type: "custom"})
		assert.ErrorIs(t, err, notifications.ErrInvalidRecord)

		_, err = repo.MergeNotification(ctx, notifications.Record{RecipientID: 1, Type: "custom"})
		assert.ErrorIs(t, err, notifications.ErrInvalidRecord)
	})
}

func TestRepository_Directory(t *testing.T) {
	t.Parallel()

	repo, _, dir := newRepository(t)
	ctx := context.Background()

	_, err := repo.GetDevices(ctx, 1)
	assert.ErrorIs(t, err, notifications.ErrNotFound)

	for i := range 8 {
		dir.AddDevice(notifications.Device{
			Token:      fmt.Sprintf("tok-%d", i),
			Platform:   notifications.PlatformIOS,
			App:        "cam.reaction.ReactionCam",
			OwnerID:    1,
			APIVersion: 50,
		})
	}
	devices, err := repo.GetDevices(ctx, 1)
	require.NoError(t, err)
	require.Len(t, devices, notifications.MaxDevicesPerAccount)
	assert.Equal(t, "tok-7", devices[0].Token)

	_, err = repo.GetAccount(ctx, 5)
	assert.ErrorIs(t, err, notifications.ErrNotFound)

	dir.PutAccount(notifications.Account{ID: 5, Username: "vee"})
	acc, err := repo.GetAccount(ctx, 5)
	require.NoError(t, err)
	assert.True(t, acc.BlockListLoaded())
	assert.False(t, acc.IsBlockedBy(1))

	dir.Block(1, 5)
	acc, err = repo.GetAccount(ctx, 5)
	require.NoError(t, err)
	assert.True(t, acc.IsBlockedBy(1))
	assert.Equal(t, "vee", acc.Username)
}

func TestRepository_CountUnseen(t *testing.T) {
	t.Parallel()

	repo, store, _ := newRepository(t)
	ctx := context.Background()

	_, err := repo.PutNotification(ctx, followRecord(9, 1))
	require.NoError(t, err)
	_, err = repo.PutNotification(ctx, notifications.Record{RecipientID: 9, Type: "custom"})
	require.NoError(t, err)

	count, err := repo.CountUnseen(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = store.MarkSeen(ctx, 9, testNow)
	require.NoError(t, err)
	_, err = repo.PutNotification(ctx, followRecord(9, 2))
	require.NoError(t, err)

	count, err = repo.CountUnseen(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "merged group becomes unseen again")
}

func TestRecord_Public(t *testing.T) {
	t.Parallel()

	rec := notifications.Record{
		ID:          "n1",
		Type:        "content-vote",
		Properties:  map[string]any{"content_id": int64(7)},
		GroupCount:  3,
		UpdatedAt:   testNow,
		RecipientID: 1,
	}

	old := rec.Public(41)
	assert.Equal(t, "n1", old["id"])
	assert.Equal(t, int64(7), old["content_id"])
	assert.NotContains(t, old, "group_count")

	current := rec.Public(42)
	assert.Equal(t, 3, current["group_count"])
	assert.NotContains(t, rec.Properties, "id", "public view must not alias properties")
}
