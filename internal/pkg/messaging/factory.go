package messaging

import "fmt"

// Drivers supported by the factory.
const (
	DriverKafka = "kafka"
	DriverNATS  = "nats"
)

// FactoryConfig selects and configures a broker implementation.
type FactoryConfig struct {
	// Driver selects the broker: "kafka" or "nats".
	Driver string

	Kafka KafkaConfig
	NATS  NATSConfig
}

// New constructs the Messaging implementation selected by cfg.Driver.
func New(cfg FactoryConfig) (Messaging, error) {
	switch cfg.Driver {
	case DriverKafka:
		return NewKafka(cfg.Kafka)
	case DriverNATS:
		return NewNATS(cfg.NATS)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
