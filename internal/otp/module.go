package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/otp/inbound"
	"github.com/shandysiswandi/stockmaster/internal/otp/outbound/cache"
	"github.com/shandysiswandi/stockmaster/internal/otp/outbound/db"
	"github.com/shandysiswandi/stockmaster/internal/otp/outbound/email"
	otpmongo "github.com/shandysiswandi/stockmaster/internal/otp/outbound/mongo"
	"github.com/shandysiswandi/stockmaster/internal/otp/usecase"
	"github.com/shandysiswandi/stockmaster/internal/pkg/clock"
	"github.com/shandysiswandi/stockmaster/internal/pkg/config"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goroutine"
	"github.com/shandysiswandi/stockmaster/internal/pkg/hash"
	"github.com/shandysiswandi/stockmaster/internal/pkg/idempotency"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"github.com/shandysiswandi/stockmaster/internal/pkg/mail"
	"github.com/shandysiswandi/stockmaster/internal/pkg/otpcode"
	"github.com/shandysiswandi/stockmaster/internal/pkg/router"
	"github.com/shandysiswandi/stockmaster/internal/pkg/uid"
	"github.com/shandysiswandi/stockmaster/internal/pkg/validator"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
	StoreDriverMongo    = "mongo"
)

var (
	ErrUnknownStoreDriver = errors.New("otp: unknown store driver")
	ErrStoreConnMissing   = errors.New("otp: store connection missing")
)

type Dependency struct {
	Ctx context.Context `validate:"required"`
	// DBConn, CacheConn or MongoDB must be set for the configured driver.
	DBConn     *pgxpool.Pool
	CacheConn  redis.UniversalClient
	MongoDB    *mongo.Database
	Goroutine  *goroutine.Manager         `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	// Idempotency enables the Idempotency-Key header when set.
	Idempotency idempotency.Idempotency
}

// New wires the OTP module and returns its usecase for the flows that
// depend on verified challenges.
func New(dep Dependency) (*usecase.Usecase, error) {
	if err := dep.Validator.Validate(dep); err != nil {
		return nil, err
	}

	store, err := newStore(dep)
	if err != nil {
		return nil, err
	}

	notifier := email.New(dep.Mail, email.Config{
		From:       dep.Config.GetString("mail.from"),
		MaxRetries: uint64(config.IntOr(dep.Config, "modules.otp.mail.max_retries", 2)),
		Backoff:    config.DurationOr(dep.Config, "modules.otp.mail.backoff_ms", time.Millisecond, 500*time.Millisecond),
	}, dep.Clock, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		Config:      usecase.NewConfig(dep.Config),
		RepoStore:   store,
		Notifier:    notifier,
		Codes:       otpcode.New(),
		HMAC:        dep.HMAC,
		UUID:        dep.UUID,
		Clock:       dep.Clock,
		Validator:   dep.Validator,
		Idempotency: dep.Idempotency,
		Goroutine:   dep.Goroutine,
		Instrument:  dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	interval := config.DurationOr(dep.Config, "modules.otp.sweep_interval_seconds", time.Second, 5*time.Minute)
	if !uc.StartSweeper(dep.Ctx, interval) {
		return nil, errors.New("otp: failed to start expired challenge sweeper")
	}

	return uc, nil
}

type store interface {
	Find(ctx context.Context, identifier string, purpose entity.Purpose) (*entity.Challenge, error)
	Upsert(ctx context.Context, c entity.Challenge) error
	IncrementAttempts(ctx context.Context, id string) (int, error)
	MarkVerified(ctx context.Context, id string) error
	Delete(ctx context.Context, identifier string, purpose entity.Purpose) error
	DeleteByID(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

func newStore(dep Dependency) (store, error) {
	switch driver := dep.Config.GetString("modules.otp.store.driver"); driver {
	case "", StoreDriverPostgres:
		if dep.DBConn == nil {
			return nil, fmt.Errorf("%w: postgres", ErrStoreConnMissing)
		}
		return db.NewDB(dep.DBConn, dep.Instrument), nil
	case StoreDriverRedis:
		if dep.CacheConn == nil {
			return nil, fmt.Errorf("%w: redis", ErrStoreConnMissing)
		}
		return cache.NewCache(dep.CacheConn, dep.Instrument, cache.WithPrefix(dep.Config.GetString("modules.otp.store.redis_prefix"))), nil
	case StoreDriverMongo:
		if dep.MongoDB == nil {
			return nil, fmt.Errorf("%w: mongo", ErrStoreConnMissing)
		}
		s := otpmongo.NewMongo(dep.MongoDB, dep.Instrument)
		if err := s.EnsureIndexes(dep.Ctx); err != nil {
			return nil, fmt.Errorf("otp: ensure mongo indexes: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStoreDriver, driver)
	}
}
