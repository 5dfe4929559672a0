package messaging

import (
	"context"
	"sync"
	"time"
)

// Memory delivers published messages to in-process consumers. Each group
// (empty group included) receives every message once; members of a group
// share its stream.
type Memory struct {
	mu     sync.Mutex
	topics map[string]map[string]chan *message
	closed bool
}

func NewMemory() *Memory {
	return &Memory{topics: map[string]map[string]chan *message{}}
}

func (m *Memory) Publish(ctx context.Context, topic string, msg OutgoingMessage) error {
	if topic == "" {
		return ErrTopicRequired
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	targets := make([]chan *message, 0, len(m.topics[topic]))
	for _, ch := range m.topics[topic] {
		targets = append(targets, ch)
	}
	m.mu.Unlock()

	headers := make(map[string]string, len(msg.Headers))
	for k, v := range msg.Headers {
		headers[k] = v
	}

	for _, ch := range targets {
		select {
		case ch <- &message{topic: topic, key: msg.Key, body: msg.Body, headers: headers, ts: time.Now()}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

func (m *Memory) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if topic == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	groups, ok := m.topics[topic]
	if !ok {
		groups = map[string]chan *message{}
		m.topics[topic] = groups
	}
	ch, ok := groups[co.group]
	if !ok {
		ch = make(chan *message, 256)
		groups[co.group] = ch
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-ch:
					//nolint:errcheck // dispatch logs the failure
					dispatch(ctx, co, handler, msg)
				}
			}
		}()
	}
	wg.Wait()

	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	return nil
}
