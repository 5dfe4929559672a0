// Package storetest checks a challenge store against the contract the OTP
// usecase relies on. Every store adapter runs the same suite.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type Store interface {
	Find(ctx context.Context, identifier string, purpose entity.Purpose) (*entity.Challenge, error)
	Upsert(ctx context.Context, c entity.Challenge) error
	IncrementAttempts(ctx context.Context, id string) (int, error)
	MarkVerified(ctx context.Context, id string) error
	Delete(ctx context.Context, identifier string, purpose entity.Purpose) error
	DeleteByID(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Challenge builds a fresh pending challenge. Times are truncated to the
// millisecond, the coarsest precision among the stores.
func Challenge(identifier string, purpose entity.Purpose, now time.Time) entity.Challenge {
	now = now.UTC().Truncate(time.Millisecond)
	return entity.Challenge{
		ID:          uuid.NewString(),
		Identifier:  identifier,
		Purpose:     purpose,
		CodeHash:    "digest-" + identifier,
		MaxAttempts: 3,
		CreatedAt:   now,
		ExpiresAt:   now.Add(10 * time.Minute),
		PurgeAt:     now.Add(70 * time.Minute),
	}
}

// Run executes the suite. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	ctx := context.Background()
	now := time.Now()

	t.Run("find missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Find(ctx, "nobody@x.com", entity.PurposeRegistration)
		assert.ErrorIs(t, err, goerror.ErrNotFound)
	})

	t.Run("upsert then find", func(t *testing.T) {
		s := newStore(t)
		c := Challenge("a@x.com", entity.PurposeRegistration, now)
		require.NoError(t, s.Upsert(ctx, c))

		got, err := s.Find(ctx, c.Identifier, c.Purpose)
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)
		assert.Equal(t, c.CodeHash, got.CodeHash)
		assert.Equal(t, c.MaxAttempts, got.MaxAttempts)
		assert.Zero(t, got.Attempts)
		assert.False(t, got.Verified)
		assert.True(t, c.CreatedAt.Equal(got.CreatedAt), "created_at %s != %s", c.CreatedAt, got.CreatedAt)
		assert.True(t, c.ExpiresAt.Equal(got.ExpiresAt))
		assert.True(t, c.PurgeAt.Equal(got.PurgeAt))

		_, err = s.Find(ctx, c.Identifier, entity.PurposePasswordReset)
		assert.ErrorIs(t, err, goerror.ErrNotFound, "purposes are isolated")
	})

	t.Run("upsert replaces and resets", func(t *testing.T) {
		s := newStore(t)
		old := Challenge("b@x.com", entity.PurposeRegistration, now)
		require.NoError(t, s.Upsert(ctx, old))
		_, err := s.IncrementAttempts(ctx, old.ID)
		require.NoError(t, err)

		fresh := Challenge("b@x.com", entity.PurposeRegistration, now.Add(time.Minute))
		fresh.CodeHash = "digest-2"
		require.NoError(t, s.Upsert(ctx, fresh))

		got, err := s.Find(ctx, "b@x.com", entity.PurposeRegistration)
		require.NoError(t, err)
		assert.Equal(t, fresh.ID, got.ID)
		assert.Equal(t, "digest-2", got.CodeHash)
		assert.Zero(t, got.Attempts)

		// stale ids no longer address the pair
		assert.ErrorIs(t, s.DeleteByID(ctx, old.ID), goerror.ErrNotFound)
		_, err = s.IncrementAttempts(ctx, old.ID)
		assert.ErrorIs(t, err, goerror.ErrNotFound)
		assert.ErrorIs(t, s.MarkVerified(ctx, old.ID), goerror.ErrNotFound)

		_, err = s.Find(ctx, "b@x.com", entity.PurposeRegistration)
		require.NoError(t, err)
	})

	t.Run("increment is capped", func(t *testing.T) {
		s := newStore(t)
		c := Challenge("c@x.com", entity.PurposeEmailVerification, now)
		require.NoError(t, s.Upsert(ctx, c))

		for want := 1; want <= c.MaxAttempts; want++ {
			n, err := s.IncrementAttempts(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, want, n)
		}

		_, err := s.IncrementAttempts(ctx, c.ID)
		assert.ErrorIs(t, err, goerror.ErrNotFound)

		got, err := s.Find(ctx, c.Identifier, c.Purpose)
		require.NoError(t, err)
		assert.Equal(t, c.MaxAttempts, got.Attempts)
		assert.ErrorIs(t, s.MarkVerified(ctx, c.ID), goerror.ErrNotFound, "exhausted records cannot verify")
	})

	t.Run("concurrent increments stop at the ceiling", func(t *testing.T) {
		s := newStore(t)
		c := Challenge("h@x.com", entity.PurposeRegistration, now)
		require.NoError(t, s.Upsert(ctx, c))

		const workers = 20
		var (
			wg       sync.WaitGroup
			accepted = atomic.NewInt32(0)
			failures = make(chan error, workers)
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.IncrementAttempts(ctx, c.ID)
				switch {
				case err == nil:
					accepted.Inc()
				case !errors.Is(err, goerror.ErrNotFound):
					failures <- err
				}
			}()
		}
		wg.Wait()
		close(failures)

		for err := range failures {
			assert.NoError(t, err)
		}
		assert.Equal(t, int32(c.MaxAttempts), accepted.Load())

		got, err := s.Find(ctx, c.Identifier, c.Purpose)
		require.NoError(t, err)
		assert.Equal(t, c.MaxAttempts, got.Attempts)
	})

	t.Run("concurrent upserts leave one record", func(t *testing.T) {
		s := newStore(t)

		const workers = 10
		ids := make([]string, workers)
		failures := make(chan error, workers)
		var wg sync.WaitGroup
		for i := range workers {
			c := Challenge("i@x.com", entity.PurposePasswordReset, now)
			ids[i] = c.ID
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.Upsert(ctx, c); err != nil {
					failures <- err
				}
			}()
		}
		wg.Wait()
		close(failures)

		for err := range failures {
			assert.NoError(t, err)
		}

		got, err := s.Find(ctx, "i@x.com", entity.PurposePasswordReset)
		require.NoError(t, err)
		assert.Contains(t, ids, got.ID)
		assert.Zero(t, got.Attempts)

		// only the surviving id still addresses the pair
		for _, id := range ids {
			if id == got.ID {
				continue
			}
			_, err := s.IncrementAttempts(ctx, id)
			assert.ErrorIs(t, err, goerror.ErrNotFound)
		}

		require.NoError(t, s.DeleteByID(ctx, got.ID))
		_, err = s.Find(ctx, "i@x.com", entity.PurposePasswordReset)
		assert.ErrorIs(t, err, goerror.ErrNotFound)
	})

	t.Run("mark verified once", func(t *testing.T) {
		s := newStore(t)
		c := Challenge("d@x.com", entity.PurposePasswordReset, now)
		require.NoError(t, s.Upsert(ctx, c))

		require.NoError(t, s.MarkVerified(ctx, c.ID))
		assert.ErrorIs(t, s.MarkVerified(ctx, c.ID), goerror.ErrNotFound)

		got, err := s.Find(ctx, c.Identifier, c.Purpose)
		require.NoError(t, err)
		assert.True(t, got.Verified)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		c := Challenge("e@x.com", entity.PurposeRegistration, now)
		require.NoError(t, s.Upsert(ctx, c))

		require.NoError(t, s.Delete(ctx, c.Identifier, c.Purpose))
		assert.ErrorIs(t, s.Delete(ctx, c.Identifier, c.Purpose), goerror.ErrNotFound)
		assert.ErrorIs(t, s.DeleteByID(ctx, c.ID), goerror.ErrNotFound)

		c2 := Challenge("e@x.com", entity.PurposeRegistration, now)
		require.NoError(t, s.Upsert(ctx, c2))
		require.NoError(t, s.DeleteByID(ctx, c2.ID))
		_, err := s.Find(ctx, c2.Identifier, c2.Purpose)
		assert.ErrorIs(t, err, goerror.ErrNotFound)
	})

	t.Run("delete expired", func(t *testing.T) {
		s := newStore(t)
		early := Challenge("f@x.com", entity.PurposeRegistration, now)
		late := Challenge("g@x.com", entity.PurposeRegistration, now.Add(30*time.Minute))
		require.NoError(t, s.Upsert(ctx, early))
		require.NoError(t, s.Upsert(ctx, late))

		n, err := s.DeleteExpired(ctx, early.ExpiresAt)
		require.NoError(t, err)
		assert.Zero(t, n, "expired but still retained")

		n, err = s.DeleteExpired(ctx, early.PurgeAt)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = s.Find(ctx, early.Identifier, early.Purpose)
		assert.ErrorIs(t, err, goerror.ErrNotFound)
		_, err = s.Find(ctx, late.Identifier, late.Purpose)
		require.NoError(t, err)
	})
}
