package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/clock"
	"github.com/shandysiswandi/stockmaster/internal/pkg/config"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goroutine"
	"github.com/shandysiswandi/stockmaster/internal/pkg/hash"
	"github.com/shandysiswandi/stockmaster/internal/pkg/idempotency"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"github.com/shandysiswandi/stockmaster/internal/pkg/uid"
	"github.com/shandysiswandi/stockmaster/internal/pkg/validator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// repoStore keeps at most one challenge per (identifier, purpose). Lookups
// return goerror.ErrNotFound when nothing matches.
type repoStore interface {
	Find(ctx context.Context, identifier string, purpose entity.Purpose) (*entity.Challenge, error)
	// Upsert atomically replaces whatever is stored for the pair.
	Upsert(ctx context.Context, c entity.Challenge) error
	// IncrementAttempts adds one attempt unless the record already reached
	// maxAttempts, and returns the new count.
	IncrementAttempts(ctx context.Context, id string) (int, error)
	// MarkVerified flags a pending record that still has attempts left.
	MarkVerified(ctx context.Context, id string) error
	Delete(ctx context.Context, identifier string, purpose entity.Purpose) error
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired removes records whose PurgeAt is not after now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type notifier interface {
	Send(ctx context.Context, identifier, code string, purpose entity.Purpose, ttl time.Duration) entity.Delivery
}

type codeGenerator interface {
	Generate() (string, error)
}

// Config is read once at startup.
type Config struct {
	Expiry      time.Duration
	MaxAttempts int
	Cooldown    time.Duration
	Retention   time.Duration
	// ResendBypassCooldown makes Resend drop the pending challenge even
	// inside the cooldown window.
	ResendBypassCooldown bool
}

const (
	DefaultExpiry      = 10 * time.Minute
	DefaultMaxAttempts = 5
	DefaultCooldown    = 120 * time.Second
	DefaultRetention   = 60 * time.Minute
)

// NewConfig reads modules.otp.* and fills defaults for unset or non-positive values.
func NewConfig(c config.Config) Config {
	return Config{
		Expiry:               config.DurationOr(c, "modules.otp.expiry_minutes", time.Minute, DefaultExpiry),
		MaxAttempts:          config.IntOr(c, "modules.otp.max_attempts", DefaultMaxAttempts),
		Cooldown:             config.DurationOr(c, "modules.otp.cooldown_seconds", time.Second, DefaultCooldown),
		Retention:            config.DurationOr(c, "modules.otp.retention_minutes", time.Minute, DefaultRetention),
		ResendBypassCooldown: c.GetBool("modules.otp.resend_bypass_cooldown"),
	}
}

type Usecase struct {
	cfg       Config
	store     repoStore
	notifier  notifier
	codes     codeGenerator
	hmac      hash.Hash
	uuid      uid.StringID
	clock     clock.Clocker
	validator validator.Validator
	idemp     idempotency.Idempotency
	goroutine *goroutine.Manager
	ins       instrument.Instrumentation

	requests      metric.Int64Counter
	verifications metric.Int64Counter
}

type Dependency struct {
	Config    Config
	RepoStore repoStore
	Notifier  notifier
	Codes     codeGenerator
	HMAC      hash.Hash
	UUID      uid.StringID
	Clock     clock.Clocker
	Validator validator.Validator
	// Idempotency is optional. Without it Idempotency-Key is ignored.
	Idempotency idempotency.Idempotency
	Goroutine   *goroutine.Manager
	Instrument  instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	meter := dep.Instrument.Meter("otp.usecase")

	requests, err := meter.Int64Counter("otp.requests", metric.WithDescription("OTP send and resend outcomes"))
	if err != nil {
		slog.Error("failed to create otp request counter", "error", err)
	}
	verifications, err := meter.Int64Counter("otp.verifications", metric.WithDescription("OTP verification outcomes"))
	if err != nil {
		slog.Error("failed to create otp verification counter", "error", err)
	}

	return &Usecase{
		cfg:           dep.Config,
		store:         dep.RepoStore,
		notifier:      dep.Notifier,
		codes:         dep.Codes,
		hmac:          dep.HMAC,
		uuid:          dep.UUID,
		clock:         dep.Clock,
		validator:     dep.Validator,
		idemp:         dep.Idempotency,
		goroutine:     dep.Goroutine,
		ins:           dep.Instrument,
		requests:      requests,
		verifications: verifications,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otp.usecase").Start(ctx, name)
}

func (s *Usecase) count(ctx context.Context, c metric.Int64Counter, purpose entity.Purpose, out *entity.Outcome, err error) {
	if c == nil {
		return
	}

	kind := "INFRASTRUCTURE_ERROR"
	if err == nil && out != nil {
		kind = string(out.Kind)
	}

	c.Add(ctx, 1, metric.WithAttributes(
		attribute.String("purpose", purpose.String()),
		attribute.String("outcome", kind),
	))
}

func parsePurpose(raw string) (entity.Purpose, error) {
	p := entity.ParsePurpose(raw)
	if !p.IsValid() {
		return entity.PurposeUnknown, goerror.NewInvalidInput(nil, "purpose", "purpose must be one of registration, password-reset, email-verification")
	}

	return p, nil
}

// once runs fn under the idempotency key, when one is given, so repeated
// submissions replay the first outcome.
func (s *Usecase) once(ctx context.Context, scope, key string, fn func(context.Context) (*entity.Outcome, error)) (*entity.Outcome, error) {
	if key == "" || s.idemp == nil {
		return fn(ctx)
	}

	payload, err := s.idemp.Do(ctx, "otp:"+scope+":"+key, func(ctx context.Context) ([]byte, error) {
		out, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(out)
	})
	if errors.Is(err, idempotency.ErrInProgress) {
		return nil, goerror.NewBusiness("A request with this Idempotency-Key is still in progress", goerror.CodeConflict)
	}
	if err != nil {
		var gerr *goerror.Error
		if errors.As(err, &gerr) {
			return nil, err
		}
		slog.ErrorContext(ctx, "failed to run idempotent otp request", "scope", scope, "error", err)
		return nil, goerror.NewServer(err)
	}

	var out entity.Outcome
	if err := json.Unmarshal(payload, &out); err != nil {
		slog.ErrorContext(ctx, "failed to decode stored otp outcome", "scope", scope, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &out, nil
}
