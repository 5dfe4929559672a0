package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/stockmaster/internal/pkg/config"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goroutine"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"github.com/shandysiswandi/stockmaster/internal/pkg/messaging"
	"github.com/shandysiswandi/stockmaster/internal/pkg/uid"
	"github.com/shandysiswandi/stockmaster/internal/shared/event"
)

// RegisterMQConsumer starts the consumers listed in
// modules.notification.consumer_names. An empty list starts all of them.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Messaging,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) {
	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enabled := cfg.GetArray("modules.notification.consumer_names")
	concurrency := config.IntOr(cfg, "modules.notification.consumer_concurrency", 4)

	consumers := []struct {
		name    string // also the consumer group
		topic   string
		handler messaging.Handler
	}{
		{
			name:    event.AccountRegisteredConsumerNotification,
			topic:   event.AccountRegisteredTopic,
			handler: mqHandler.AccountRegistered,
		},
		{
			name:    event.AccountPasswordResetConsumerNotification,
			topic:   event.AccountPasswordResetTopic,
			handler: mqHandler.AccountPasswordReset,
		},
	}

	for _, consumer := range consumers {
		if len(enabled) > 0 && !slices.Contains(enabled, consumer.name) {
			continue
		}

		routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "consumer", consumer.name)
			return messenger.Consume(pCtx,
				consumer.topic,
				consumer.handler,
				messaging.WithGroup(consumer.name),
				messaging.WithConcurrency(concurrency),
			)
		})
	}
}
