package usecase

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shandysiswandi/stockmaster/internal/notification/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/valueobject"
)

type ConsumeAccountRegisteredInput struct {
	AccountID int64
	Email     string
	Name      string
}

func (s *Usecase) ConsumeAccountRegistered(ctx context.Context, in ConsumeAccountRegisteredInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeAccountRegistered")
	defer span.End()

	name := in.Name
	if name == "" {
		name = in.Email
	}

	_, err := s.create(ctx, entity.Notification{
		UserID:    in.AccountID,
		Type:      entity.TypeWelcome,
		Title:     "Welcome to StockMaster",
		Message:   fmt.Sprintf("Hi %s, your account is ready.", name),
		Level:     entity.LevelInfo,
		EntityRef: accountRef(in.AccountID),
	})
	return err
}

type ConsumeAccountPasswordResetInput struct {
	AccountID int64
	Email     string
}

func (s *Usecase) ConsumeAccountPasswordReset(ctx context.Context, in ConsumeAccountPasswordResetInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeAccountPasswordReset")
	defer span.End()

	_, err := s.create(ctx, entity.Notification{
		UserID:    in.AccountID,
		Type:      entity.TypeSecurity,
		Title:     "Password changed",
		Message:   "The password of " + in.Email + " was reset. If this was not you, contact support immediately.",
		Level:     entity.LevelWarning,
		EntityRef: accountRef(in.AccountID),
	})
	return err
}

func accountRef(id int64) valueobject.JSONMap {
	return valueobject.JSONMap{"kind": "account", "id": strconv.FormatInt(id, 10)}
}
