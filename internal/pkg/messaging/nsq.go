package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nsqio/go-nsq"
)

var (
	ErrNSQProducerRequired  = errors.New("messaging: nsq nsqd address is required")
	ErrNSQConsumerAddrsNone = errors.New("messaging: nsq nsqd or lookupd addresses are required")
)

// defaultNSQChannel is used when Consume gets no WithGroup.
const defaultNSQChannel = "default"

type NSQConfig struct {
	// NSQDAddr receives publishes.
	NSQDAddr string
	// LookupdAddrs take precedence over NSQDAddrs for consumers.
	LookupdAddrs []string
	NSQDAddrs    []string
	// MaxInFlight defaults to the consumer concurrency.
	MaxInFlight int
}

// NSQ maps groups onto NSQ channels. NSQ messages carry no headers, so
// headers travel inside a JSON envelope around the body.
type NSQ struct {
	cfg      NSQConfig
	producer *nsq.Producer

	mu        sync.Mutex
	consumers []*nsq.Consumer
	closed    bool
}

type nsqEnvelope struct {
	Headers map[string]string `json:"headers,omitempty"`
	Body    []byte            `json:"body"`
}

func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	if cfg.NSQDAddr == "" {
		return nil, ErrNSQProducerRequired
	}

	producer, err := nsq.NewProducer(cfg.NSQDAddr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("messaging: nsq producer: %w", err)
	}
	producer.SetLoggerLevel(nsq.LogLevelError)

	return &NSQ{cfg: cfg, producer: producer}, nil
}

func (n *NSQ) Publish(ctx context.Context, topic string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}
	if n.isClosed() {
		return ErrClosed
	}

	payload, err := json.Marshal(nsqEnvelope{Headers: msg.Headers, Body: msg.Body})
	if err != nil {
		return fmt.Errorf("messaging: nsq encode: %w", err)
	}

	if err := n.producer.Publish(topic, payload); err != nil {
		return fmt.Errorf("messaging: nsq publish: %w", err)
	}

	return nil
}

// Consume finishes every message once dispatch returns, so like NATS a
// message whose handler keeps failing is dropped after retries.
func (n *NSQ) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if topic == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	if len(n.cfg.LookupdAddrs) == 0 && len(n.cfg.NSQDAddrs) == 0 {
		return ErrNSQConsumerAddrsNone
	}

	co := newConsumeOptions(opts...)
	channel := co.group
	if channel == "" {
		channel = defaultNSQChannel
	}

	ccfg := nsq.NewConfig()
	ccfg.MaxInFlight = max(n.cfg.MaxInFlight, co.concurrency)

	consumer, err := nsq.NewConsumer(topic, channel, ccfg)
	if err != nil {
		return fmt.Errorf("messaging: nsq consumer: %w", err)
	}
	consumer.SetLoggerLevel(nsq.LogLevelError)
	consumer.AddConcurrentHandlers(nsq.HandlerFunc(func(m *nsq.Message) error {
		//nolint:errcheck // dispatch logs the failure
		dispatch(ctx, co, handler, fromNSQ(topic, m))
		return nil
	}), co.concurrency)

	if err := n.track(consumer); err != nil {
		return err
	}

	if len(n.cfg.LookupdAddrs) > 0 {
		err = consumer.ConnectToNSQLookupds(n.cfg.LookupdAddrs)
	} else {
		err = consumer.ConnectToNSQDs(n.cfg.NSQDAddrs)
	}
	if err != nil {
		consumer.Stop()
		<-consumer.StopChan
		return fmt.Errorf("messaging: nsq connect: %w", err)
	}

	select {
	case <-ctx.Done():
		consumer.Stop()
		<-consumer.StopChan
	case <-consumer.StopChan:
	}

	return nil
}

// fromNSQ unwraps the envelope. Bodies published by other producers are
// passed through as they are.
func fromNSQ(topic string, m *nsq.Message) *message {
	out := &message{topic: topic, body: m.Body, ts: time.Unix(0, m.Timestamp)}

	var env nsqEnvelope
	if err := json.Unmarshal(m.Body, &env); err == nil && env.Body != nil {
		out.body = env.Body
		out.headers = env.Headers
	}

	return out
}

func (n *NSQ) track(c *nsq.Consumer) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrClosed
	}
	n.consumers = append(n.consumers, c)
	return nil
}

func (n *NSQ) isClosed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.closed
}

// Close stops consumers before the producer.
func (n *NSQ) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	consumers := n.consumers
	n.mu.Unlock()

	for _, c := range consumers {
		c.Stop()
		<-c.StopChan
	}
	n.producer.Stop()

	return nil
}
