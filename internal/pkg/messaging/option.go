package messaging

import "time"

type consumeOptions struct {
	group       string
	concurrency int
	maxRetries  uint64
	backoff     time.Duration
}

// ConsumeOption tunes Consume.
type ConsumeOption func(*consumeOptions)

func newConsumeOptions(opts ...ConsumeOption) consumeOptions {
	co := consumeOptions{concurrency: 1, maxRetries: 3, backoff: 200 * time.Millisecond}
	for _, opt := range opts {
		if opt != nil {
			opt(&co)
		}
	}
	if co.concurrency < 1 {
		co.concurrency = 1
	}

	return co
}

// WithGroup names the consumer group (Kafka) or queue group (NATS), so that
// each message reaches one member of the group.
func WithGroup(group string) ConsumeOption {
	return func(o *consumeOptions) { o.group = group }
}

// WithConcurrency sets how many handlers run in parallel. Kafka ignores it to
// keep per-partition ordering.
func WithConcurrency(n int) ConsumeOption {
	return func(o *consumeOptions) { o.concurrency = n }
}

// WithRetry sets how many times a failing handler is retried and the initial
// backoff, which doubles on each attempt.
func WithRetry(maxRetries uint64, backoff time.Duration) ConsumeOption {
	return func(o *consumeOptions) {
		o.maxRetries = maxRetries
		if backoff > 0 {
			o.backoff = backoff
		}
	}
}
