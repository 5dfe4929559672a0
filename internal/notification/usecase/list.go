package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/stockmaster/internal/notification/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
)

// List returns the caller's latest notifications together with broadcasts,
// newest first.
func (s *Usecase) List(ctx context.Context) ([]entity.Notification, error) {
	ctx, span := s.startSpan(ctx, "List")
	defer span.End()

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.repoDB.ListNotifications(ctx, clm.AccountID, ListLimit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list notifications", "account_id", clm.AccountID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return items, nil
}

// UnreadCount counts only notifications addressed to the caller.
func (s *Usecase) UnreadCount(ctx context.Context) (int64, error) {
	ctx, span := s.startSpan(ctx, "UnreadCount")
	defer span.End()

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return 0, err
	}

	n, err := s.repoDB.CountUnread(ctx, clm.AccountID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo count unread notifications", "account_id", clm.AccountID, "error", err)
		return 0, goerror.NewServer(err)
	}

	return n, nil
}
