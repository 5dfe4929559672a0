package db

import (
	"context"
	"testing"
	"time"

	"github.com/shandysiswandi/stockmaster/internal/notification/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"github.com/shandysiswandi/stockmaster/internal/pkg/pgtest"
	"github.com/shandysiswandi/stockmaster/internal/pkg/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDB(t *testing.T) {
	pool := pgtest.New(t)
	store := NewDB(pool, instrument.NewNoop())
	ctx := context.Background()

	base := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	add := func(id, userID int64, offset time.Duration) {
		require.NoError(t, store.CreateNotification(ctx, entity.Notification{
			ID: id, UserID: userID, Type: entity.TypeSystem, Title: "t", Message: "m",
			EntityRef: valueobject.JSONMap{"kind": "item", "id": "1"}, Level: entity.LevelInfo,
			CreatedAt: base.Add(offset), UpdatedAt: base.Add(offset),
		}))
	}
	add(1, 10, 0)
	add(2, 0, time.Minute)
	add(3, 20, 2*time.Minute)
	add(4, 10, 3*time.Minute)

	items, err := store.ListNotifications(ctx, 10, 50)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []int64{4, 2, 1}, []int64{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, "item", items[0].EntityRef.String("kind"))

	items, err = store.ListNotifications(ctx, 10, 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	n, err := store.CountUnread(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ok, err := store.MarkRead(ctx, 10, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.MarkRead(ctx, 10, 3)
	require.NoError(t, err)
	assert.False(t, ok, "row of another user")

	n, err = store.CountUnread(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	items, err = store.ListNotifications(ctx, 10, 50)
	require.NoError(t, err)
	assert.True(t, items[2].Read)
	assert.NotNil(t, items[2].ReadAt)
}
