package usecase

import (
	"context"
	"errors"
	"log/slog"

	otpentity "github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
)

type PasswordResetInput struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,password"`
}

func (s *Usecase) PasswordReset(ctx context.Context, in PasswordResetInput) error {
	ctx, span := s.startSpan(ctx, "PasswordReset")
	defer span.End()

	in.Email = otpentity.NormalizeIdentifier(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if err := s.requireVerified(ctx, in.Email, otpentity.PurposePasswordReset); err != nil {
		return err
	}

	acc, err := s.repoDB.GetAccountByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		return goerror.NewBusiness("account not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account by email", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	passHash, err := s.password.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoDB.UpdatePassword(ctx, acc.ID, string(passHash)); err != nil {
		slog.ErrorContext(ctx, "failed to repo update password", "account_id", acc.ID, "error", err)
		return goerror.NewServer(err)
	}

	s.consume(ctx, in.Email, otpentity.PurposePasswordReset)

	if err := s.repoMessaging.PublishAccountPasswordReset(ctx, AccountPasswordResetEvent{
		AccountID: acc.ID,
		Email:     acc.Email,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish account password reset", "account_id", acc.ID, "error", err)
	}

	return nil
}
