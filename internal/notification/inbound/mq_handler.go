package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/stockmaster/internal/notification/usecase"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"github.com/shandysiswandi/stockmaster/internal/pkg/messaging"
	"github.com/shandysiswandi/stockmaster/internal/pkg/uid"
	"github.com/shandysiswandi/stockmaster/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message) context.Context {
	if cID := msg.Header(keyOfCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// AccountRegistered drops bodies it cannot parse; retrying would not help.
func (h *MQHandler) AccountRegistered(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "AccountRegistered")
	defer span.End()

	body := msg.Body()
	slog.InfoContext(ctx, "consume: account registered", "msg_body", string(body))

	var payload event.AccountRegisteredMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of account registered", "msg_body", string(body), "error", err)
		return nil
	}

	if err := h.uc.ConsumeAccountRegistered(ctx, usecase.ConsumeAccountRegisteredInput{
		AccountID: payload.AccountID,
		Email:     payload.Email,
		Name:      payload.Name,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume account registered", "msg_body", string(body), "error", err)
		return err
	}

	return nil
}

func (h *MQHandler) AccountPasswordReset(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "AccountPasswordReset")
	defer span.End()

	body := msg.Body()
	slog.InfoContext(ctx, "consume: account password reset", "msg_body", string(body))

	var payload event.AccountPasswordResetMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of account password reset", "msg_body", string(body), "error", err)
		return nil
	}

	if err := h.uc.ConsumeAccountPasswordReset(ctx, usecase.ConsumeAccountPasswordResetInput{
		AccountID: payload.AccountID,
		Email:     payload.Email,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume account password reset", "msg_body", string(body), "error", err)
		return err
	}

	return nil
}
