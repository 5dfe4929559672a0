package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/stockmaster/internal/account/entity"
	otpentity "github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
)

type RegisterInput struct {
	Email    string `validate:"required,email,max=254"`
	Name     string `validate:"required,min=2,max=100"`
	Password string `validate:"required,password"`
}

func (s *Usecase) Register(ctx context.Context, in RegisterInput) (*entity.Account, error) {
	ctx, span := s.startSpan(ctx, "Register")
	defer span.End()

	in.Email = otpentity.NormalizeIdentifier(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if err := s.requireVerified(ctx, in.Email, otpentity.PurposeRegistration); err != nil {
		return nil, err
	}

	passHash, err := s.password.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	acc := entity.Account{
		ID:           s.uid.Generate(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(passHash),
		Role:         entity.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.repoDB.CreateAccount(ctx, acc)
	if errors.Is(err, goerror.ErrConflict) {
		return nil, goerror.NewBusiness("email already registered", goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create account", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.consume(ctx, in.Email, otpentity.PurposeRegistration)

	if err := s.repoMessaging.PublishAccountRegistered(ctx, AccountRegisteredEvent{
		AccountID: acc.ID,
		Email:     acc.Email,
		Name:      acc.Name,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish account registered", "account_id", acc.ID, "error", err)
	}

	return &acc, nil
}
