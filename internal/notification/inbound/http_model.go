package inbound

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shandysiswandi/stockmaster/internal/notification/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/valueobject"
)

type EntityRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

type NotificationResponse struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	EntityRef *EntityRef `json:"entity_ref,omitempty"`
	Level     string     `json:"level"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toNotificationResponse(n entity.Notification, _ int) NotificationResponse {
	resp := NotificationResponse{
		ID:        strconv.FormatInt(n.ID, 10),
		UserID:    strconv.FormatInt(n.UserID, 10),
		Type:      n.Type.String(),
		Title:     n.Title,
		Message:   n.Message,
		Level:     n.Level.String(),
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	if kind := n.EntityRef.String("kind"); kind != "" {
		resp.EntityRef = &EntityRef{Kind: kind, ID: n.EntityRef.String("id")}
	}

	return resp
}

type ListResponse []NotificationResponse

func (l ListResponse) Meta() map[string]any { return map[string]any{"count": len(l)} }

type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}

type MarkReadResponse struct{}

func (MarkReadResponse) Message() string { return "Notification marked as read" }

type CreateRequest struct {
	UserID    int64      `json:"user_id,string"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Level     string     `json:"level"`
	EntityRef *EntityRef `json:"entity_ref"`
}

func (c CreateRequest) entityRef() valueobject.JSONMap {
	if c.EntityRef == nil {
		return nil
	}
	return valueobject.JSONMap{"kind": c.EntityRef.Kind, "id": c.EntityRef.ID}
}

type CreateResponse struct {
	Notification NotificationResponse `json:"notification"`
}

func (CreateResponse) StatusCode() int { return http.StatusCreated }
func (CreateResponse) Message() string { return "Notification created" }
