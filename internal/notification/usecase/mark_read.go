package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
)

type MarkReadInput struct {
	ID int64 `validate:"required,gt=0"`
}

func (s *Usecase) MarkRead(ctx context.Context, in MarkReadInput) error {
	ctx, span := s.startSpan(ctx, "MarkRead")
	defer span.End()

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return err
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	updated, err := s.repoDB.MarkRead(ctx, clm.AccountID, in.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo mark notification read", "account_id", clm.AccountID, "notification_id", in.ID, "error", err)
		return goerror.NewServer(err)
	}
	if !updated {
		return goerror.NewBusiness("notification not found", goerror.CodeNotFound)
	}

	return nil
}
