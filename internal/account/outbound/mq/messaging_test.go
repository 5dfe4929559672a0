package mq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shandysiswandi/stockmaster/internal/account/usecase"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"github.com/shandysiswandi/stockmaster/internal/pkg/messaging"
	"github.com/shandysiswandi/stockmaster/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAccountRegistered(t *testing.T) {
	bus := messaging.NewMemory()
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan messaging.Message, 1)
	go func() {
		_ = bus.Consume(ctx, event.AccountRegisteredTopic, func(_ context.Context, msg messaging.Message) error {
			got <- msg
			return nil
		}, messaging.WithGroup("test"))
	}()
	time.Sleep(20 * time.Millisecond)

	m := NewMessaging(bus, instrument.NewNoop())
	pubCtx := instrument.SetCorrelationID(context.Background(), "cid-9")
	require.NoError(t, m.PublishAccountRegistered(pubCtx, usecase.AccountRegisteredEvent{AccountID: 5, Email: "a@x.com", Name: "Ann"}))

	select {
	case msg := <-got:
		var body event.AccountRegisteredMessage
		require.NoError(t, json.Unmarshal(msg.Body(), &body))
		assert.Equal(t, event.AccountRegisteredMessage{AccountID: 5, Email: "a@x.com", Name: "Ann"}, body)
		assert.Equal(t, "cid-9", msg.Header(keyOfCorrelationID))
		assert.Equal(t, []byte("5"), msg.Key())
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}
