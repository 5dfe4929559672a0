package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/stockmaster/internal/account/entity"
	otpentity "github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/clock"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
	"github.com/shandysiswandi/stockmaster/internal/pkg/hash"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"github.com/shandysiswandi/stockmaster/internal/pkg/jwt"
	"github.com/shandysiswandi/stockmaster/internal/pkg/uid"
	"github.com/shandysiswandi/stockmaster/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type AccountRegisteredEvent struct {
	AccountID int64
	Email     string
	Name      string
}

type AccountPasswordResetEvent struct {
	AccountID int64
	Email     string
}

type repoMessaging interface {
	PublishAccountRegistered(ctx context.Context, msg AccountRegisteredEvent) error
	PublishAccountPasswordReset(ctx context.Context, msg AccountPasswordResetEvent) error
}

type repoDB interface {
	GetAccountByEmail(ctx context.Context, email string) (*entity.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*entity.Account, error)
	CreateAccount(ctx context.Context, acc entity.Account) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// otpGate is the part of the OTP lifecycle the account flows depend on.
type otpGate interface {
	IsVerified(ctx context.Context, identifier string, purpose otpentity.Purpose) (bool, error)
	Consume(ctx context.Context, identifier string, purpose otpentity.Purpose) error
}

type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	otp           otpGate
	password      hash.Hash
	uid           uid.NumberID
	clock         clock.Clocker
	validator     validator.Validator
	jwt           jwt.JWT
	ins           instrument.Instrumentation
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	OTP           otpGate
	Password      hash.Hash
	UID           uid.NumberID
	Clock         clock.Clocker
	Validator     validator.Validator
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		otp:           dep.OTP,
		password:      dep.Password,
		uid:           dep.UID,
		clock:         dep.Clock,
		validator:     dep.Validator,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("account.usecase").Start(ctx, name)
}

// requireVerified fails unless the email holds a verified challenge for purpose.
func (s *Usecase) requireVerified(ctx context.Context, email string, purpose otpentity.Purpose) error {
	ok, err := s.otp.IsVerified(ctx, email, purpose)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check otp verification", "email", email, "purpose", purpose, "error", err)
		return goerror.NewServer(err)
	}
	if !ok {
		slog.WarnContext(ctx, "email not verified", "email", email, "purpose", purpose)
		return goerror.NewBusiness("email not verified", goerror.CodeForbidden)
	}

	return nil
}

// consume runs after the flow committed, so a failure is only logged: the
// challenge still expires on its own.
func (s *Usecase) consume(ctx context.Context, email string, purpose otpentity.Purpose) {
	if err := s.otp.Consume(ctx, email, purpose); err != nil {
		slog.WarnContext(ctx, "failed to consume otp challenge", "email", email, "purpose", purpose, "error", err)
	}
}
