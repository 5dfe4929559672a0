package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client), mr
}

func TestDo_ReplaysResult(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx := context.Background()

	calls := 0
	fn := func(context.Context) ([]byte, error) {
		calls++
		return []byte(`{"success":true}`), nil
	}

	first, err := tracker.Do(ctx, "send:abc", fn)
	require.NoError(t, err)
	second, err := tracker.Do(ctx, "send:abc", fn)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestDo_FailureReleasesKey(t *testing.T) {
	tracker, mr := newTracker(t)
	ctx := context.Background()

	_, err := tracker.Do(ctx, "k", func(context.Context) ([]byte, error) {
		return nil, errors.New("boom")
	})
	require.EqualError(t, err, "boom")
	assert.False(t, mr.Exists("idempotency:k"))

	out, err := tracker.Do(ctx, "k", func(context.Context) ([]byte, error) {
		return []byte("ok"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), out)
}

func TestDo_InProgress(t *testing.T) {
	tracker, mr := newTracker(t)
	require.NoError(t, mr.Set("idempotency:busy", markerInProgress))

	_, err := tracker.Do(context.Background(), "busy", func(context.Context) ([]byte, error) {
		t.Fatal("fn must not run while another call holds the key")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrInProgress)
}

func TestDo_TTL(t *testing.T) {
	tracker, mr := newTracker(t)

	_, err := tracker.Do(context.Background(), "ttl", func(context.Context) ([]byte, error) {
		return []byte("x"), nil
	}, WithTTL(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, time.Minute, mr.TTL("idempotency:ttl"))
}

func TestDo_StoreFailureKeepsResult(t *testing.T) {
	tracker, mr := newTracker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	out, err := tracker.Do(ctx, "send:lost", func(context.Context) ([]byte, error) {
		calls++
		cancel() // the result write fails with the caller's context
		return []byte("sent"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("sent"), out)
	assert.False(t, mr.Exists("idempotency:send:lost"), "marker released")

	_, err = tracker.Do(context.Background(), "send:lost", func(context.Context) ([]byte, error) {
		calls++
		return []byte("sent"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
