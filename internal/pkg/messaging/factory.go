package messaging

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DriverNATS   = "nats"
	DriverKafka  = "kafka"
	DriverNSQ    = "nsq"
	DriverMemory = "memory"
)

var ErrUnknownDriver = errors.New("messaging: unknown driver")

// FactoryOptions carries the settings of every driver; only the selected one is read.
type FactoryOptions struct {
	NATS  NATSConfig
	Kafka KafkaConfig
	NSQ   NSQConfig
}

// NewFromDriver builds the client named by driver.
func NewFromDriver(driver string, opts FactoryOptions) (Messaging, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverNATS:
		return NewNATS(opts.NATS)
	case DriverKafka:
		return NewKafka(opts.Kafka)
	case DriverNSQ:
		return NewNSQ(opts.NSQ)
	case DriverMemory, "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
