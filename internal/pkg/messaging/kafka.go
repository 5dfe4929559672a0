package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

var (
	ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")
	ErrKafkaGroupRequired   = errors.New("messaging: kafka consumer group is required")
)

type KafkaConfig struct {
	Brokers []string
	// BatchTimeout bounds how long a publish waits to fill a batch.
	BatchTimeout time.Duration
}

// Kafka publishes through one shared writer and consumes with one group
// reader per Consume call. Offsets are committed after the handler finishes,
// so delivery is at least once.
type Kafka struct {
	brokers []string
	writer  *kafka.Writer

	mu      sync.Mutex
	readers map[*kafka.Reader]struct{}
	closed  bool
}

func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	batch := cfg.BatchTimeout
	if batch <= 0 {
		batch = 10 * time.Millisecond
	}

	return &Kafka{
		brokers: append([]string(nil), cfg.Brokers...),
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			BatchTimeout:           batch,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		readers: map[*kafka.Reader]struct{}{},
	}, nil
}

func (k *Kafka) Publish(ctx context.Context, topic string, msg OutgoingMessage) error {
	if topic == "" {
		return ErrTopicRequired
	}
	if k.isClosed() {
		return ErrClosed
	}

	km := kafka.Message{Topic: topic, Key: msg.Key, Value: msg.Body, Time: time.Now()}
	for key, v := range msg.Headers {
		km.Headers = append(km.Headers, kafka.Header{Key: key, Value: []byte(v)})
	}

	if err := k.writer.WriteMessages(ctx, km); err != nil {
		return fmt.Errorf("messaging: kafka publish: %w", err)
	}

	return nil
}

func (k *Kafka) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if topic == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	if co.group == "" {
		return ErrKafkaGroupRequired
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		GroupID:  co.group,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	if err := k.track(reader); err != nil {
		return errors.Join(err, reader.Close())
	}
	defer k.untrack(reader)

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return reader.Close()
			}
			return errors.Join(fmt.Errorf("messaging: kafka fetch: %w", err), reader.Close())
		}

		//nolint:errcheck // dispatch logs the failure; the offset moves on either way
		dispatch(ctx, co, handler, fromKafka(m))

		if err := reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			return errors.Join(fmt.Errorf("messaging: kafka commit: %w", err), reader.Close())
		}
	}
}

func fromKafka(m kafka.Message) *message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}

	return &message{topic: m.Topic, key: m.Key, body: m.Value, headers: headers, ts: m.Time}
}

func (k *Kafka) track(r *kafka.Reader) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return ErrClosed
	}
	k.readers[r] = struct{}{}

	return nil
}

func (k *Kafka) untrack(r *kafka.Reader) {
	k.mu.Lock()
	delete(k.readers, r)
	k.mu.Unlock()
}

func (k *Kafka) isClosed() bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.closed
}

// Close flushes the writer. Readers close when their Consume context ends.
func (k *Kafka) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	k.mu.Unlock()

	return k.writer.Close()
}
