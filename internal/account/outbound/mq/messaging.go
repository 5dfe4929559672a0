package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/shandysiswandi/stockmaster/internal/account/usecase"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"github.com/shandysiswandi/stockmaster/internal/pkg/messaging"
	"github.com/shandysiswandi/stockmaster/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Messaging
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishAccountRegistered(ctx context.Context, msg usecase.AccountRegisteredEvent) error {
	ctx, span := m.ins.Tracer("account.outbound.mq").Start(ctx, "PublishAccountRegistered")
	defer span.End()

	return m.publish(ctx, span, event.AccountRegisteredTopic, msg.AccountID, event.AccountRegisteredMessage{
		AccountID: msg.AccountID,
		Email:     msg.Email,
		Name:      msg.Name,
	})
}

func (m *Messaging) PublishAccountPasswordReset(ctx context.Context, msg usecase.AccountPasswordResetEvent) error {
	ctx, span := m.ins.Tracer("account.outbound.mq").Start(ctx, "PublishAccountPasswordReset")
	defer span.End()

	return m.publish(ctx, span, event.AccountPasswordResetTopic, msg.AccountID, event.AccountPasswordResetMessage{
		AccountID: msg.AccountID,
		Email:     msg.Email,
	})
}

// publish keys by account id so one account's events stay ordered on Kafka.
func (m *Messaging) publish(ctx context.Context, span trace.Span, topic string, accountID int64, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := m.client.Publish(ctx, topic, messaging.OutgoingMessage{
		Key:     []byte(strconv.FormatInt(accountID, 10)),
		Body:    body,
		Headers: map[string]string{keyOfCorrelationID: instrument.GetCorrelationID(ctx)},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
