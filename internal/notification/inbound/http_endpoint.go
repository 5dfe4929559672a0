package inbound

import (
	"github.com/samber/lo"
	"github.com/shandysiswandi/stockmaster/internal/notification/usecase"
	"github.com/shandysiswandi/stockmaster/internal/pkg/router"
)

type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) List(r *router.Request) (any, error) {
	items, err := h.uc.List(r.Context())
	if err != nil {
		return nil, err
	}

	return ListResponse(lo.Map(items, toNotificationResponse)), nil
}

func (h *HTTPEndpoint) UnreadCount(r *router.Request) (any, error) {
	n, err := h.uc.UnreadCount(r.Context())
	if err != nil {
		return nil, err
	}

	return UnreadCountResponse{Unread: n}, nil
}

func (h *HTTPEndpoint) MarkRead(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	if err := h.uc.MarkRead(r.Context(), usecase.MarkReadInput{ID: id}); err != nil {
		return nil, err
	}

	return MarkReadResponse{}, nil
}

// Create is for internal callers holding the admin role.
func (h *HTTPEndpoint) Create(r *router.Request) (any, error) {
	var req CreateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	n, err := h.uc.Create(r.Context(), usecase.CreateInput{
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Level:     req.Level,
		EntityRef: req.entityRef(),
	})
	if err != nil {
		return nil, err
	}

	return CreateResponse{Notification: toNotificationResponse(*n, 0)}, nil
}
