package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/stockmaster/internal/notification/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
	"github.com/shandysiswandi/stockmaster/internal/pkg/valueobject"
)

type CreateInput struct {
	UserID    int64  `validate:"gte=0"`
	Type      string `validate:"required,max=64"`
	Title     string `validate:"required,max=200"`
	Message   string `validate:"required,max=2000"`
	Level     string `validate:"omitempty,oneof=info warning critical"`
	EntityRef valueobject.JSONMap
}

func (s *Usecase) Create(ctx context.Context, in CreateInput) (*entity.Notification, error) {
	ctx, span := s.startSpan(ctx, "Create")
	defer span.End()

	in.Type = strings.TrimSpace(in.Type)
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	if in.Level == "" {
		in.Level = entity.LevelInfo.String()
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	return s.create(ctx, entity.Notification{
		UserID:    in.UserID,
		Type:      entity.Type(in.Type),
		Title:     in.Title,
		Message:   in.Message,
		EntityRef: in.EntityRef,
		Level:     entity.Level(in.Level),
	})
}

func (s *Usecase) create(ctx context.Context, n entity.Notification) (*entity.Notification, error) {
	now := s.clock.Now()
	n.ID = s.uid.Generate()
	n.CreatedAt = now
	n.UpdatedAt = now
	if n.EntityRef == nil {
		n.EntityRef = valueobject.JSONMap{}
	}

	if err := s.repoDB.CreateNotification(ctx, n); err != nil {
		slog.ErrorContext(ctx, "failed to repo create notification", "user_id", n.UserID, "type", n.Type, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &n, nil
}
