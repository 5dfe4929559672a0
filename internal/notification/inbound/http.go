package inbound

import (
	"context"

	"github.com/shandysiswandi/stockmaster/internal/notification/entity"
	"github.com/shandysiswandi/stockmaster/internal/notification/usecase"
	"github.com/shandysiswandi/stockmaster/internal/pkg/router"
)

type uc interface {
	List(ctx context.Context) ([]entity.Notification, error)
	UnreadCount(ctx context.Context) (int64, error)
	MarkRead(ctx context.Context, in usecase.MarkReadInput) error
	Create(ctx context.Context, in usecase.CreateInput) (*entity.Notification, error)

	ConsumeAccountRegistered(ctx context.Context, in usecase.ConsumeAccountRegisteredInput) error
	ConsumeAccountPasswordReset(ctx context.Context, in usecase.ConsumeAccountPasswordResetInput) error
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/api/v1/notifications", end.List)
	r.GET("/api/v1/notifications/unread-count", end.UnreadCount)
	r.PUT("/api/v1/notifications/:id/read", end.MarkRead)

	r.POST("/api/v1/notifications", end.Create, r.Authorize("notifications", "create"))
}
