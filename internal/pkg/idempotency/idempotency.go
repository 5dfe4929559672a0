// Package idempotency collapses repeated requests that carry the same key
// into a single execution, replaying the stored result to latecomers.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInProgress is returned while another request holding the same key runs.
var ErrInProgress = errors.New("idempotency: operation already in progress")

const (
	markerInProgress = "p"
	prefixDone       = "d:"

	defaultLock = time.Minute
	defaultTTL  = 10 * time.Minute
)

// Idempotency runs fn at most once per key within the retention window.
type Idempotency interface {
	// Do runs fn the first time key is seen and stores its result. Later calls
	// with the same key get the stored result without running fn. A failing fn
	// releases the key so the caller may retry.
	Do(ctx context.Context, key string, fn func(context.Context) ([]byte, error), opts ...Option) ([]byte, error)
}

// Option tunes a single Do call.
type Option func(*options)

type options struct {
	lock time.Duration
	ttl  time.Duration
}

// WithLockDuration bounds how long an in-flight marker survives a crash.
func WithLockDuration(d time.Duration) Option {
	return func(o *options) { o.lock = d }
}

// WithTTL sets how long a completed result is replayed.
func WithTTL(d time.Duration) Option {
	return func(o *options) { o.ttl = d }
}

// Redis keeps markers and results in redis.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

func New(client redis.UniversalClient) *Redis {
	return &Redis{client: client, prefix: "idempotency:"}
}

func (r *Redis) Do(ctx context.Context, key string, fn func(context.Context) ([]byte, error), opts ...Option) ([]byte, error) {
	o := options{lock: defaultLock, ttl: defaultTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.lock <= 0 {
		o.lock = defaultLock
	}
	if o.ttl <= 0 {
		o.ttl = defaultTTL
	}

	fk := r.prefix + key

	acquired, err := r.client.SetNX(ctx, fk, markerInProgress, o.lock).Result()
	if err != nil {
		return nil, err
	}

	if !acquired {
		val, err := r.client.Get(ctx, fk).Result()
		switch {
		case errors.Is(err, redis.Nil):
			// expired between SETNX and GET; the caller may simply retry
			return nil, ErrInProgress
		case err != nil:
			return nil, err
		case strings.HasPrefix(val, prefixDone):
			return []byte(strings.TrimPrefix(val, prefixDone)), nil
		default:
			return nil, ErrInProgress
		}
	}

	out, err := fn(ctx)
	if err != nil {
		if delErr := r.client.Del(context.WithoutCancel(ctx), fk).Err(); delErr != nil {
			return nil, errors.Join(err, delErr)
		}
		return nil, err
	}

	// fn already ran; a lost result only means a retry runs it again
	if err := r.client.Set(ctx, fk, prefixDone+string(out), o.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "failed to store idempotent result", "key", key, "error", err)
		if delErr := r.client.Del(context.WithoutCancel(ctx), fk).Err(); delErr != nil {
			slog.WarnContext(ctx, "failed to release idempotency key", "key", key, "error", delErr)
		}
	}

	return out, nil
}
