package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/stockmaster/internal/account/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
	"github.com/shandysiswandi/stockmaster/internal/pkg/jwt"
)

// Profile returns the account of the authenticated caller.
func (s *Usecase) Profile(ctx context.Context) (*entity.Account, error) {
	ctx, span := s.startSpan(ctx, "Profile")
	defer span.End()

	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	acc, err := s.repoDB.GetAccountByID(ctx, clm.AccountID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("account not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account by id", "account_id", clm.AccountID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return acc, nil
}
