// Package messaging publishes and consumes domain events over a broker.
// Kafka, NATS and NSQ are the networked drivers; Memory delivers in-process and
// backs local runs and tests.
package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrTopicRequired   = errors.New("messaging: topic is required")
	ErrHandlerRequired = errors.New("messaging: handler is required")
	ErrClosed          = errors.New("messaging: client is closed")
)

// Messaging is a broker client.
type Messaging interface {
	io.Closer
	Publisher
	Consumer
}

// Publisher sends messages to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg OutgoingMessage) error
}

// Consumer delivers messages of a topic to handler until ctx is done.
// Consume blocks; run it on its own goroutine.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes one message. A returned error makes the client retry the
// handler with backoff, then log and skip the message.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is what callers publish.
type OutgoingMessage struct {
	// Key selects the Kafka partition. Other drivers ignore it.
	Key     []byte
	Body    []byte
	Headers map[string]string
}

// Message is a received message.
type Message interface {
	Topic() string
	Key() []byte
	Body() []byte
	Header(key string) string
	Timestamp() time.Time
}

type message struct {
	topic   string
	key     []byte
	body    []byte
	headers map[string]string
	ts      time.Time
}

func (m *message) Topic() string            { return m.topic }
func (m *message) Key() []byte              { return m.key }
func (m *message) Body() []byte             { return m.body }
func (m *message) Header(key string) string { return m.headers[key] }
func (m *message) Timestamp() time.Time     { return m.ts }
