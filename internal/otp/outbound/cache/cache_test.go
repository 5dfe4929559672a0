package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/otp/outbound/storetest"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewCache(rdb, instrument.NewNoop(), WithPrefix("test:otp:")), mr
}

func TestCache(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store {
		c, _ := newCache(t)
		return c
	})
}

func TestCache_KeysExpireAtPurge(t *testing.T) {
	s, mr := newCache(t)
	ctx := context.Background()

	c := storetest.Challenge("a@x.com", entity.PurposeRegistration, time.Now())
	require.NoError(t, s.Upsert(ctx, c))

	pair := "test:otp:pair:registration:a@x.com"
	assert.True(t, mr.Exists(pair))
	assert.True(t, mr.Exists("test:otp:id:"+c.ID))
	assert.InDelta(t, 70*time.Minute, mr.TTL(pair), float64(5*time.Second))

	mr.FastForward(71 * time.Minute)
	_, err := s.Find(ctx, c.Identifier, c.Purpose)
	assert.ErrorIs(t, err, goerror.ErrNotFound)

	n, err := s.DeleteExpired(ctx, c.PurgeAt)
	require.NoError(t, err)
	assert.Zero(t, n, "redis already dropped it")
	members, err := mr.ZMembers("test:otp:purge")
	if err == nil {
		assert.Empty(t, members)
	}
}

func TestCache_CorruptRecord(t *testing.T) {
	s, mr := newCache(t)

	mr.HSet("test:otp:pair:registration:a@x.com", "id", "x", "attempts", "many")
	_, err := s.Find(context.Background(), "a@x.com", entity.PurposeRegistration)
	require.Error(t, err)
	assert.NotErrorIs(t, err, goerror.ErrNotFound)
}
