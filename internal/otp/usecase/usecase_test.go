package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/clock"
	"github.com/shandysiswandi/stockmaster/internal/pkg/config"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goroutine"
	"github.com/shandysiswandi/stockmaster/internal/pkg/hash"
	"github.com/shandysiswandi/stockmaster/internal/pkg/idempotency"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"github.com/shandysiswandi/stockmaster/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	email = "user@x.com"
	reg   = "registration"
)

type harness struct {
	uc       *Usecase
	store    *memStore
	notifier *fakeNotifier
	codes    *seqCodes
	clock    *clock.Manual
	cfg      Config
}

func newHarness(t *testing.T, mutate ...func(*Config, *Dependency)) *harness {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	h := &harness{
		store:    newMemStore(),
		notifier: &fakeNotifier{},
		codes:    &seqCodes{},
		clock:    clock.NewManual(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)),
		cfg: Config{
			Expiry:      DefaultExpiry,
			MaxAttempts: DefaultMaxAttempts,
			Cooldown:    DefaultCooldown,
			Retention:   DefaultRetention,
		},
	}

	dep := Dependency{
		RepoStore:  h.store,
		Notifier:   h.notifier,
		Codes:      h.codes,
		HMAC:       hash.NewHMACSHA256("test-secret"),
		UUID:       &seqIDs{},
		Clock:      h.clock,
		Validator:  v,
		Goroutine:  goroutine.NewManager(4),
		Instrument: instrument.NewNoop(),
	}
	for _, m := range mutate {
		m(&h.cfg, &dep)
	}
	dep.Config = h.cfg

	h.uc = New(dep)
	return h
}

func (h *harness) request(t *testing.T) *entity.Outcome {
	t.Helper()
	out, err := h.uc.RequestCode(context.Background(), RequestCodeInput{Identifier: email, Purpose: reg})
	require.NoError(t, err)
	return out
}

func (h *harness) verify(t *testing.T, code string) *entity.Outcome {
	t.Helper()
	out, err := h.uc.VerifyCode(context.Background(), VerifyCodeInput{Identifier: email, Purpose: reg, Code: code})
	require.NoError(t, err)
	return out
}

func TestRequestCode_Success(t *testing.T) {
	h := newHarness(t)

	out, err := h.uc.RequestCode(context.Background(), RequestCodeInput{Identifier: "  User@X.com ", Purpose: reg})
	require.NoError(t, err)

	assert.True(t, out.Success())
	assert.Equal(t, "OTP sent successfully", out.Message)
	assert.Equal(t, 600, out.ExpiresInSeconds)

	c := h.store.get(email, entity.PurposeRegistration)
	require.NotNil(t, c)
	assert.Zero(t, c.Attempts)
	assert.False(t, c.Verified)
	assert.Equal(t, 5, c.MaxAttempts)
	assert.Equal(t, h.clock.Now().Add(10*time.Minute), c.ExpiresAt)
	assert.Equal(t, c.ExpiresAt.Add(time.Hour), c.PurgeAt)

	sent := h.notifier.last()
	assert.Equal(t, email, sent.identifier)
	assert.NotEqual(t, sent.code, c.CodeHash, "code must be stored hashed")
}

func TestRequestCode_Cooldown(t *testing.T) {
	h := newHarness(t)
	h.request(t)

	h.clock.Advance(30 * time.Second)
	out := h.request(t)
	assert.Equal(t, entity.KindRateLimited, out.Kind)
	assert.Equal(t, 90, out.RetryAfterSeconds)
	assert.Equal(t, "OTP already sent. Please try again after 90 seconds.", out.Message)

	h.clock.Advance(90 * time.Second)
	out = h.request(t)
	assert.True(t, out.Success())
	assert.Equal(t, 1, h.store.count(), "a new request replaces the old challenge")
}

func TestRequestCode_VerifiedRecordDoesNotBlock(t *testing.T) {
	h := newHarness(t)
	h.request(t)
	require.True(t, h.verify(t, h.notifier.last().code).Success())

	out := h.request(t)
	assert.True(t, out.Success())
	assert.False(t, h.store.get(email, entity.PurposeRegistration).Verified)
}

func TestRequestCode_DeliveryFailureLeavesNoRecord(t *testing.T) {
	h := newHarness(t)
	h.notifier.fail = "smtp: 421 try later"

	out := h.request(t)
	assert.Equal(t, entity.KindDeliveryFailed, out.Kind)
	assert.Equal(t, "Failed to send OTP", out.Message)
	assert.Zero(t, h.store.count())
}

func TestRequestCode_Errors(t *testing.T) {
	t.Run("invalid email", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.uc.RequestCode(context.Background(), RequestCodeInput{Identifier: "nope", Purpose: reg})
		var gerr *goerror.Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, goerror.CodeInvalidInput, gerr.Code())
	})

	t.Run("unknown purpose", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.uc.RequestCode(context.Background(), RequestCodeInput{Identifier: email, Purpose: "login"})
		var gerr *goerror.Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, "purpose must be one of registration, password-reset, email-verification", gerr.Fields()["purpose"])
	})

	t.Run("alias purpose", func(t *testing.T) {
		h := newHarness(t)
		out, err := h.uc.RequestCode(context.Background(), RequestCodeInput{Identifier: email, Purpose: "forgot-password"})
		require.NoError(t, err)
		assert.True(t, out.Success())
		assert.NotNil(t, h.store.get(email, entity.PurposePasswordReset))
	})

	t.Run("store down", func(t *testing.T) {
		h := newHarness(t)
		h.store.findErr = errBoom
		_, err := h.uc.RequestCode(context.Background(), RequestCodeInput{Identifier: email, Purpose: reg})
		var gerr *goerror.Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, goerror.TypeServer, gerr.Type())
		assert.ErrorIs(t, err, errBoom)
	})

	t.Run("generator down", func(t *testing.T) {
		h := newHarness(t)
		h.codes.err = errBoom
		_, err := h.uc.RequestCode(context.Background(), RequestCodeInput{Identifier: email, Purpose: reg})
		assert.ErrorIs(t, err, errBoom)
		assert.Zero(t, h.store.count())
	})

	t.Run("compensating delete fails", func(t *testing.T) {
		h := newHarness(t)
		h.notifier.fail = "down"
		h.store.deleteErr = errBoom
		_, err := h.uc.RequestCode(context.Background(), RequestCodeInput{Identifier: email, Purpose: reg})
		assert.ErrorIs(t, err, errBoom)
	})
}

func TestVerifyCode_Success(t *testing.T) {
	h := newHarness(t)
	h.request(t)

	out := h.verify(t, h.notifier.last().code)
	assert.True(t, out.Success())
	assert.Equal(t, "OTP verified successfully", out.Message)

	c := h.store.get(email, entity.PurposeRegistration)
	require.NotNil(t, c, "verified record is retained")
	assert.True(t, c.Verified)

	// verifying again has no pending challenge
	assert.Equal(t, entity.KindNotFound, h.verify(t, h.notifier.last().code).Kind)
}

func TestVerifyCode_WrongCodeThenExhausted(t *testing.T) {
	h := newHarness(t)
	h.request(t)
	correct := h.notifier.last().code

	out := h.verify(t, "000000")
	assert.Equal(t, entity.KindInvalidCode, out.Kind)
	assert.Equal(t, "Invalid OTP. 4 attempts remaining.", out.Message)
	assert.Equal(t, 4, out.AttemptsRemaining)
	assert.Equal(t, 1, h.store.get(email, entity.PurposeRegistration).Attempts)

	for want := 3; want >= 1; want-- {
		assert.Equal(t, want, h.verify(t, "000000").AttemptsRemaining)
	}

	out = h.verify(t, "000000")
	assert.Equal(t, entity.KindExhausted, out.Kind, "the fifth wrong attempt exhausts")
	assert.True(t, out.MaxAttemptsExceeded)
	assert.NotNil(t, h.store.get(email, entity.PurposeRegistration))

	out = h.verify(t, correct)
	assert.Equal(t, entity.KindExhausted, out.Kind, "never a late success")
	assert.True(t, out.MaxAttemptsExceeded)
	assert.Zero(t, h.store.count())

	assert.Equal(t, entity.KindNotFound, h.verify(t, correct).Kind)
}

func TestRequestCode_AfterExhaustion(t *testing.T) {
	for _, resend := range []bool{false, true} {
		h := newHarness(t)
		h.request(t)

		for range 5 {
			h.clock.Advance(5 * time.Second)
			h.verify(t, "000000")
		}
		require.True(t, h.store.get(email, entity.PurposeRegistration).IsExhausted())

		var out *entity.Outcome
		var err error
		if resend {
			out, err = h.uc.ResendCode(context.Background(), RequestCodeInput{Identifier: email, Purpose: reg})
		} else {
			out, err = h.uc.RequestCode(context.Background(), RequestCodeInput{Identifier: email, Purpose: reg})
		}
		require.NoError(t, err)
		assert.True(t, out.Success(), "resend=%v: a new code is issued inside the cooldown", resend)

		c := h.store.get(email, entity.PurposeRegistration)
		require.NotNil(t, c)
		assert.Zero(t, c.Attempts)
		assert.True(t, h.verify(t, h.notifier.last().code).Success())
	}
}

func TestVerifyCode_ExpiredAfterVerified(t *testing.T) {
	h := newHarness(t)
	h.request(t)
	code := h.notifier.last().code

	require.True(t, h.verify(t, code).Success())
	require.True(t, h.store.get(email, entity.PurposeRegistration).Verified)

	h.clock.Advance(10 * time.Minute)
	out := h.verify(t, code)
	assert.Equal(t, entity.KindExpired, out.Kind)
	assert.True(t, out.Expired)
	assert.Zero(t, h.store.count())
}

func TestVerifyCode_Expired(t *testing.T) {
	h := newHarness(t)
	h.request(t)
	code := h.notifier.last().code

	h.clock.Advance(10 * time.Minute)
	out := h.verify(t, code)
	assert.Equal(t, entity.KindExpired, out.Kind)
	assert.True(t, out.Expired)
	assert.Equal(t, "OTP has expired", out.Message)
	assert.Zero(t, h.store.count())
}

func TestVerifyCode_NotFoundAndValidation(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, entity.KindNotFound, h.verify(t, "123456").Kind)

	_, err := h.uc.VerifyCode(context.Background(), VerifyCodeInput{Identifier: email, Purpose: reg, Code: "12ab"})
	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, goerror.CodeInvalidInput, gerr.Code())
}

func TestVerifyCode_ReplacedDuringVerify(t *testing.T) {
	h := newHarness(t)
	h.request(t)
	c := h.store.get(email, entity.PurposeRegistration)

	// a concurrent request swapped the record after it was read
	require.NoError(t, h.store.DeleteByID(context.Background(), c.ID))
	out, err := h.uc.settle(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, entity.KindNotFound, out.Kind)
}

func TestIsVerifiedAndConsume(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ok, err := h.uc.IsVerified(ctx, email, entity.PurposeRegistration)
	require.NoError(t, err)
	assert.False(t, ok)

	h.request(t)
	ok, err = h.uc.IsVerified(ctx, email, entity.PurposeRegistration)
	require.NoError(t, err)
	assert.False(t, ok, "pending is not verified")

	h.verify(t, h.notifier.last().code)
	ok, err = h.uc.IsVerified(ctx, "USER@x.com", entity.PurposeRegistration)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.uc.IsVerified(ctx, email, entity.PurposePasswordReset)
	require.NoError(t, err)
	assert.False(t, ok, "purposes are isolated")

	h.clock.Advance(11 * time.Minute)
	ok, err = h.uc.IsVerified(ctx, email, entity.PurposeRegistration)
	require.NoError(t, err)
	assert.False(t, ok, "verified but expired")

	require.NoError(t, h.uc.Consume(ctx, email, entity.PurposeRegistration))
	assert.Zero(t, h.store.count())
	require.NoError(t, h.uc.Consume(ctx, email, entity.PurposeRegistration), "consuming twice is fine")

	h.store.findErr = errBoom
	_, err = h.uc.IsVerified(ctx, email, entity.PurposeRegistration)
	assert.ErrorIs(t, err, errBoom)
}

func TestResendCode(t *testing.T) {
	t.Run("inside cooldown", func(t *testing.T) {
		h := newHarness(t)
		h.request(t)
		first := h.notifier.last().code

		out, err := h.uc.ResendCode(context.Background(), RequestCodeInput{Identifier: email, Purpose: reg})
		require.NoError(t, err)
		assert.Equal(t, entity.KindRateLimited, out.Kind)
		assert.Equal(t, 120, out.RetryAfterSeconds)
		assert.True(t, h.verify(t, first).Success(), "the pending code still works")
	})

	t.Run("after cooldown", func(t *testing.T) {
		h := newHarness(t)
		h.request(t)
		first := h.notifier.last().code
		h.clock.Advance(2 * time.Minute)

		out, err := h.uc.ResendCode(context.Background(), RequestCodeInput{Identifier: email, Purpose: reg})
		require.NoError(t, err)
		assert.True(t, out.Success())
		assert.NotEqual(t, first, h.notifier.last().code)
		assert.Equal(t, 1, h.store.count())
	})

	t.Run("bypass cooldown", func(t *testing.T) {
		h := newHarness(t, func(c *Config, _ *Dependency) { c.ResendBypassCooldown = true })
		h.request(t)

		out, err := h.uc.ResendCode(context.Background(), RequestCodeInput{Identifier: email, Purpose: reg})
		require.NoError(t, err)
		assert.True(t, out.Success())
		assert.Len(t, h.notifier.sent, 2)
	})
}

func TestSweepExpired(t *testing.T) {
	h := newHarness(t)
	h.request(t)

	n, err := h.uc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	// expired records stay until the retention window passes
	h.clock.Advance(30 * time.Minute)
	n, err = h.uc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	h.clock.Advance(41 * time.Minute)
	n, err = h.uc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStartSweeper(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.uc.StartSweeper(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	assert.True(t, h.uc.StartSweeper(ctx, time.Millisecond))
	cancel()
	assert.NoError(t, h.uc.goroutine.Wait())
}

func TestRequestCode_Idempotency(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := newHarness(t, func(_ *Config, d *Dependency) { d.Idempotency = idempotency.New(rdb) })
	in := RequestCodeInput{Identifier: email, Purpose: reg, IdempotencyKey: "k-1"}

	first, err := h.uc.RequestCode(context.Background(), in)
	require.NoError(t, err)
	second, err := h.uc.RequestCode(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, first.Success())
	assert.Equal(t, first, second, "the replay shares the first outcome")
	assert.Len(t, h.notifier.sent, 1)
}

func TestNewConfig(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte(`
modules:
  otp:
    expiry_minutes: 15
    max_attempts: 0
    resend_bypass_cooldown: true
`))
	require.NoError(t, err)

	got := NewConfig(cfg)
	assert.Equal(t, 15*time.Minute, got.Expiry)
	assert.Equal(t, DefaultMaxAttempts, got.MaxAttempts)
	assert.Equal(t, DefaultCooldown, got.Cooldown)
	assert.Equal(t, DefaultRetention, got.Retention)
	assert.True(t, got.ResendBypassCooldown)
}

func TestInfraErrorsAreServerErrors(t *testing.T) {
	h := newHarness(t)
	h.request(t)
	h.store.findErr = errBoom

	_, err := h.uc.VerifyCode(context.Background(), VerifyCodeInput{Identifier: email, Purpose: reg, Code: "123456"})
	var gerr *goerror.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, goerror.CodeInternal, gerr.Code())
}
