package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Layout, all under one prefix:
//
//	{prefix}pair:{purpose}:{identifier}  hash with the challenge fields
//	{prefix}id:{id}                      string holding the pair key
//	{prefix}purge                        zset of ids scored by purge_at (ms)
//
// Both keys of a challenge carry PEXPIREAT purge_at, so Redis drops them
// even when no sweeper runs. The scripts derive id keys from the prefix and
// therefore need all keys on one node.
const defaultPrefix = "otp:"

var (
	scriptUpsert = redis.NewScript(`
local old = redis.call('HGET', KEYS[1], 'id')
if old then
  redis.call('DEL', ARGV[1] .. 'id:' .. old)
  redis.call('ZREM', KEYS[3], old)
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1],
  'id', ARGV[2], 'identifier', ARGV[3], 'purpose', ARGV[4], 'code_hash', ARGV[5],
  'verified', 0, 'attempts', 0, 'max_attempts', ARGV[6],
  'created_at', ARGV[7], 'expires_at', ARGV[8], 'purge_at', ARGV[9])
redis.call('PEXPIREAT', KEYS[1], ARGV[9])
redis.call('SET', KEYS[2], KEYS[1])
redis.call('PEXPIREAT', KEYS[2], ARGV[9])
redis.call('ZADD', KEYS[3], ARGV[9], ARGV[2])
return 1
`)

	scriptIncrement = redis.NewScript(`
local pair = redis.call('GET', KEYS[1])
if not pair or redis.call('HGET', pair, 'id') ~= ARGV[1] then
  return -1
end
local attempts = tonumber(redis.call('HGET', pair, 'attempts'))
if attempts >= tonumber(redis.call('HGET', pair, 'max_attempts')) then
  return -1
end
return redis.call('HINCRBY', pair, 'attempts', 1)
`)

	scriptMarkVerified = redis.NewScript(`
local pair = redis.call('GET', KEYS[1])
if not pair or redis.call('HGET', pair, 'id') ~= ARGV[1] then
  return 0
end
local f = redis.call('HMGET', pair, 'verified', 'attempts', 'max_attempts')
if f[1] == '1' or tonumber(f[2]) >= tonumber(f[3]) then
  return 0
end
redis.call('HSET', pair, 'verified', 1)
return 1
`)

	scriptDeleteByID = redis.NewScript(`
local pair = redis.call('GET', KEYS[1])
redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[1])
if not pair or redis.call('HGET', pair, 'id') ~= ARGV[1] then
  return 0
end
redis.call('DEL', pair)
return 1
`)

	scriptDelete = redis.NewScript(`
local id = redis.call('HGET', KEYS[1], 'id')
if not id then
  return 0
end
redis.call('DEL', KEYS[1])
redis.call('DEL', ARGV[1] .. 'id:' .. id)
redis.call('ZREM', KEYS[2], id)
return 1
`)

	scriptDeleteExpired = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[2])
local n = 0
for _, id in ipairs(ids) do
  local idKey = ARGV[1] .. 'id:' .. id
  local pair = redis.call('GET', idKey)
  if pair and redis.call('HGET', pair, 'id') == id then
    redis.call('DEL', pair)
    n = n + 1
  end
  redis.call('DEL', idKey)
  redis.call('ZREM', KEYS[1], id)
end
return n
`)
)

// Cache stores challenges in Redis.
type Cache struct {
	client redis.UniversalClient
	prefix string
	ins    instrument.Instrumentation
}

type Option func(*Cache)

// WithPrefix namespaces every key. The default is "otp:".
func WithPrefix(p string) Option {
	return func(c *Cache) {
		if p != "" {
			c.prefix = p
		}
	}
}

func NewCache(client redis.UniversalClient, ins instrument.Instrumentation, opts ...Option) *Cache {
	c := &Cache{client: client, prefix: defaultPrefix, ins: ins}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (s *Cache) pairKey(identifier string, purpose entity.Purpose) string {
	return s.prefix + "pair:" + purpose.String() + ":" + identifier
}

func (s *Cache) idKey(id string) string { return s.prefix + "id:" + id }

func (s *Cache) purgeKey() string { return s.prefix + "purge" }

func (s *Cache) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otp.outbound.cache").Start(ctx, name)
}

func (s *Cache) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func ms(t time.Time) int64 { return t.UnixMilli() }

func fromMS(v string) (time.Time, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}

	return time.UnixMilli(n).UTC(), nil
}

func (s *Cache) Find(ctx context.Context, identifier string, purpose entity.Purpose) (_ *entity.Challenge, err error) {
	ctx, span := s.startSpan(ctx, "Find")
	defer func() { s.endSpan(span, err) }()

	fields, err := s.client.HGetAll(ctx, s.pairKey(identifier, purpose)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, goerror.ErrNotFound
	}

	return decode(fields)
}

func decode(f map[string]string) (*entity.Challenge, error) {
	c := entity.Challenge{
		ID:         f["id"],
		Identifier: f["identifier"],
		Purpose:    entity.Purpose(f["purpose"]),
		CodeHash:   f["code_hash"],
		Verified:   f["verified"] == "1",
	}

	var err error
	if c.Attempts, err = strconv.Atoi(f["attempts"]); err != nil {
		return nil, err
	}
	if c.MaxAttempts, err = strconv.Atoi(f["max_attempts"]); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = fromMS(f["created_at"]); err != nil {
		return nil, err
	}
	if c.ExpiresAt, err = fromMS(f["expires_at"]); err != nil {
		return nil, err
	}
	if c.PurgeAt, err = fromMS(f["purge_at"]); err != nil {
		return nil, err
	}

	return &c, nil
}

func (s *Cache) Upsert(ctx context.Context, c entity.Challenge) (err error) {
	ctx, span := s.startSpan(ctx, "Upsert")
	defer func() { s.endSpan(span, err) }()

	return scriptUpsert.Run(ctx, s.client,
		[]string{s.pairKey(c.Identifier, c.Purpose), s.idKey(c.ID), s.purgeKey()},
		s.prefix, c.ID, c.Identifier, c.Purpose.String(), c.CodeHash, c.MaxAttempts,
		ms(c.CreatedAt), ms(c.ExpiresAt), ms(c.PurgeAt),
	).Err()
}

func (s *Cache) IncrementAttempts(ctx context.Context, id string) (_ int, err error) {
	ctx, span := s.startSpan(ctx, "IncrementAttempts")
	defer func() { s.endSpan(span, err) }()

	n, err := scriptIncrement.Run(ctx, s.client, []string{s.idKey(id)}, id).Int()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, goerror.ErrNotFound
	}

	return n, nil
}

func (s *Cache) MarkVerified(ctx context.Context, id string) (err error) {
	ctx, span := s.startSpan(ctx, "MarkVerified")
	defer func() { s.endSpan(span, err) }()

	return s.affected(scriptMarkVerified.Run(ctx, s.client, []string{s.idKey(id)}, id))
}

func (s *Cache) Delete(ctx context.Context, identifier string, purpose entity.Purpose) (err error) {
	ctx, span := s.startSpan(ctx, "Delete")
	defer func() { s.endSpan(span, err) }()

	return s.affected(scriptDelete.Run(ctx, s.client,
		[]string{s.pairKey(identifier, purpose), s.purgeKey()}, s.prefix))
}

func (s *Cache) DeleteByID(ctx context.Context, id string) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteByID")
	defer func() { s.endSpan(span, err) }()

	return s.affected(scriptDeleteByID.Run(ctx, s.client, []string{s.idKey(id), s.purgeKey()}, id))
}

// DeleteExpired clears index entries up to now and counts the challenges it
// removed. Keys Redis already expired are not counted.
func (s *Cache) DeleteExpired(ctx context.Context, now time.Time) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteExpired")
	defer func() { s.endSpan(span, err) }()

	return scriptDeleteExpired.Run(ctx, s.client, []string{s.purgeKey()}, s.prefix, ms(now)).Int64()
}

func (s *Cache) affected(cmd *redis.Cmd) error {
	n, err := cmd.Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return goerror.ErrNotFound
	}

	return nil
}
