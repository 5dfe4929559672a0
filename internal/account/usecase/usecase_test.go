package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/stockmaster/internal/account/entity"
	otpentity "github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/clock"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
	"github.com/shandysiswandi/stockmaster/internal/pkg/hash"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"github.com/shandysiswandi/stockmaster/internal/pkg/jwt"
	"github.com/shandysiswandi/stockmaster/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type fakeDB struct {
	byEmail   map[string]*entity.Account
	createErr error
	getErr    error
}

func (f *fakeDB) GetAccountByEmail(_ context.Context, email string) (*entity.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if a, ok := f.byEmail[email]; ok {
		return a, nil
	}
	return nil, goerror.ErrNotFound
}

func (f *fakeDB) GetAccountByID(_ context.Context, id int64) (*entity.Account, error) {
	for _, a := range f.byEmail {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (f *fakeDB) CreateAccount(_ context.Context, acc entity.Account) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byEmail[acc.Email]; ok {
		return goerror.ErrConflict
	}
	f.byEmail[acc.Email] = &acc
	return nil
}

func (f *fakeDB) UpdatePassword(_ context.Context, id int64, h string) error {
	for _, a := range f.byEmail {
		if a.ID == id {
			a.PasswordHash = h
			return nil
		}
	}
	return goerror.ErrNotFound
}

type fakeMQ struct {
	registered []AccountRegisteredEvent
	resets     []AccountPasswordResetEvent
	err        error
}

func (f *fakeMQ) PublishAccountRegistered(_ context.Context, msg AccountRegisteredEvent) error {
	f.registered = append(f.registered, msg)
	return f.err
}

func (f *fakeMQ) PublishAccountPasswordReset(_ context.Context, msg AccountPasswordResetEvent) error {
	f.resets = append(f.resets, msg)
	return f.err
}

type fakeOTP struct {
	verified map[string]bool
	consumed []string
	err      error
}

func key(email string, p otpentity.Purpose) string { return p.String() + ":" + email }

func (f *fakeOTP) IsVerified(_ context.Context, email string, p otpentity.Purpose) (bool, error) {
	return f.verified[key(email, p)], f.err
}

func (f *fakeOTP) Consume(_ context.Context, email string, p otpentity.Purpose) error {
	f.consumed = append(f.consumed, key(email, p))
	delete(f.verified, key(email, p))
	return nil
}

type seq struct{ n int64 }

func (s *seq) Generate() int64 { s.n++; return s.n }

type fixedID string

func (f fixedID) Generate() string { return string(f) }

type harness struct {
	uc  *Usecase
	db  *fakeDB
	mq  *fakeMQ
	otp *fakeOTP
	jwt jwt.JWT
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	clk := clock.NewManual(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	j, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(strings.Repeat("k", 64)),
		Issuer:    "stockmaster",
		Audiences: []string{"stockmaster"},
		TTL:       time.Hour,
		Clock:     clk,
		UUID:      fixedID("jti"),
	})
	require.NoError(t, err)

	h := &harness{
		db:  &fakeDB{byEmail: map[string]*entity.Account{}},
		mq:  &fakeMQ{},
		otp: &fakeOTP{verified: map[string]bool{}},
		jwt: j,
	}
	h.uc = New(Dependency{
		RepoDB:        h.db,
		RepoMessaging: h.mq,
		OTP:           h.otp,
		Password:      hash.NewArgon2id("pepper"),
		UID:           &seq{n: 100},
		Clock:         clk,
		Validator:     v,
		JWT:           j,
		Instrument:    instrument.NewNoop(),
	})
	return h
}

func code(t *testing.T, err error) goerror.Code {
	t.Helper()
	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	return gerr.Code()
}

func TestRegister(t *testing.T) {
	t.Run("requires verified email", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.uc.Register(context.Background(), RegisterInput{Email: "a@x.com", Name: "Ann", Password: "secret-pass"})
		assert.Equal(t, goerror.CodeForbidden, code(t, err))
		assert.Empty(t, h.db.byEmail)
	})

	t.Run("creates, consumes and publishes", func(t *testing.T) {
		h := newHarness(t)
		h.otp.verified[key("a@x.com", otpentity.PurposeRegistration)] = true

		acc, err := h.uc.Register(context.Background(), RegisterInput{Email: " A@X.com", Name: "Ann", Password: "secret-pass"})
		require.NoError(t, err)

		assert.Equal(t, int64(101), acc.ID)
		assert.Equal(t, "a@x.com", acc.Email)
		assert.Equal(t, entity.RoleUser, acc.Role)
		assert.NotEqual(t, "secret-pass", acc.PasswordHash)
		assert.Equal(t, []string{"registration:a@x.com"}, h.otp.consumed)
		assert.Equal(t, []AccountRegisteredEvent{{AccountID: 101, Email: "a@x.com", Name: "Ann"}}, h.mq.registered)

		// the challenge is spent
		_, err = h.uc.Register(context.Background(), RegisterInput{Email: "a@x.com", Name: "Ann", Password: "secret-pass"})
		assert.Equal(t, goerror.CodeForbidden, code(t, err))
	})

	t.Run("duplicate email", func(t *testing.T) {
		h := newHarness(t)
		h.db.byEmail["a@x.com"] = &entity.Account{ID: 1, Email: "a@x.com"}
		h.otp.verified[key("a@x.com", otpentity.PurposeRegistration)] = true

		_, err := h.uc.Register(context.Background(), RegisterInput{Email: "a@x.com", Name: "Ann", Password: "secret-pass"})
		assert.Equal(t, goerror.CodeConflict, code(t, err))
		assert.Empty(t, h.otp.consumed)
	})

	t.Run("publish failure does not fail", func(t *testing.T) {
		h := newHarness(t)
		h.mq.err = errBoom
		h.otp.verified[key("a@x.com", otpentity.PurposeRegistration)] = true

		_, err := h.uc.Register(context.Background(), RegisterInput{Email: "a@x.com", Name: "Ann", Password: "secret-pass"})
		require.NoError(t, err)
	})

	t.Run("errors", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.uc.Register(context.Background(), RegisterInput{Email: "a@x.com", Name: "Ann", Password: "short"})
		assert.Equal(t, goerror.CodeInvalidInput, code(t, err))

		h.otp.err = errBoom
		_, err = h.uc.Register(context.Background(), RegisterInput{Email: "a@x.com", Name: "Ann", Password: "secret-pass"})
		assert.ErrorIs(t, err, errBoom)

		h.otp.err = nil
		h.otp.verified[key("a@x.com", otpentity.PurposeRegistration)] = true
		h.db.createErr = errBoom
		_, err = h.uc.Register(context.Background(), RegisterInput{Email: "a@x.com", Name: "Ann", Password: "secret-pass"})
		assert.Equal(t, goerror.CodeInternal, code(t, err))
	})
}

func TestPasswordResetAndLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.otp.verified[key("a@x.com", otpentity.PurposeRegistration)] = true
	_, err := h.uc.Register(ctx, RegisterInput{Email: "a@x.com", Name: "Ann", Password: "first-pass"})
	require.NoError(t, err)

	out, err := h.uc.Login(ctx, LoginInput{Email: "a@x.com", Password: "first-pass"})
	require.NoError(t, err)
	clm, err := h.jwt.Verify(out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(101), clm.AccountID)
	assert.Equal(t, "user", clm.Role)

	err = h.uc.PasswordReset(ctx, PasswordResetInput{Email: "a@x.com", Password: "second-pass"})
	assert.Equal(t, goerror.CodeForbidden, code(t, err), "password-reset needs its own challenge")

	h.otp.verified[key("a@x.com", otpentity.PurposePasswordReset)] = true
	require.NoError(t, h.uc.PasswordReset(ctx, PasswordResetInput{Email: "a@x.com", Password: "second-pass"}))
	assert.Equal(t, []AccountPasswordResetEvent{{AccountID: 101, Email: "a@x.com"}}, h.mq.resets)
	assert.Contains(t, h.otp.consumed, "password-reset:a@x.com")

	_, err = h.uc.Login(ctx, LoginInput{Email: "a@x.com", Password: "first-pass"})
	assert.Equal(t, goerror.CodeUnauthorized, code(t, err))
	_, err = h.uc.Login(ctx, LoginInput{Email: "a@x.com", Password: "second-pass"})
	require.NoError(t, err)

	_, err = h.uc.Login(ctx, LoginInput{Email: "nobody@x.com", Password: "second-pass"})
	assert.Equal(t, goerror.CodeUnauthorized, code(t, err))

	h.otp.verified[key("ghost@x.com", otpentity.PurposePasswordReset)] = true
	err = h.uc.PasswordReset(ctx, PasswordResetInput{Email: "ghost@x.com", Password: "second-pass"})
	assert.Equal(t, goerror.CodeNotFound, code(t, err))
}

func TestProfile(t *testing.T) {
	h := newHarness(t)
	h.db.byEmail["a@x.com"] = &entity.Account{ID: 7, Email: "a@x.com", Name: "Ann", Role: entity.RoleAdmin}

	_, err := h.uc.Profile(context.Background())
	assert.Equal(t, goerror.CodeUnauthorized, code(t, err))

	ctx := jwt.SetAuth(context.Background(), jwt.Claims{AccountID: 7, Email: "a@x.com", Role: "admin"})
	acc, err := h.uc.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ann", acc.Name)

	ctx = jwt.SetAuth(context.Background(), jwt.Claims{AccountID: 8})
	_, err = h.uc.Profile(ctx)
	assert.Equal(t, goerror.CodeNotFound, code(t, err))
}
