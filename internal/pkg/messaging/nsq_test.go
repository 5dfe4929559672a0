package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromNSQ(t *testing.T) {
	payload, err := json.Marshal(nsqEnvelope{Headers: map[string]string{"cID": "c-1"}, Body: []byte(`{"id":1}`)})
	require.NoError(t, err)

	msg := fromNSQ("account.registered", nsq.NewMessage(nsq.MessageID{}, payload))
	assert.Equal(t, "account.registered", msg.Topic())
	assert.JSONEq(t, `{"id":1}`, string(msg.Body()))
	assert.Equal(t, "c-1", msg.Header("cID"))

	raw := fromNSQ("t", nsq.NewMessage(nsq.MessageID{}, []byte("plain text")))
	assert.Equal(t, []byte("plain text"), raw.Body())
	assert.Empty(t, raw.Header("cID"))
}

func TestNSQ_Config(t *testing.T) {
	_, err := NewFromDriver(DriverNSQ, FactoryOptions{})
	assert.ErrorIs(t, err, ErrNSQProducerRequired)

	// the producer connects lazily, so no nsqd is needed here
	client, err := NewFromDriver(DriverNSQ, FactoryOptions{NSQ: NSQConfig{NSQDAddr: "127.0.0.1:4150"}})
	require.NoError(t, err)

	err = client.Consume(context.Background(), "t", func(context.Context, Message) error { return nil })
	assert.ErrorIs(t, err, ErrNSQConsumerAddrsNone)

	require.NoError(t, client.Close())
	assert.ErrorIs(t, client.Publish(context.Background(), "t", OutgoingMessage{Body: []byte("x")}), ErrClosed)
}
