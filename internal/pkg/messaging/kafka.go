package messaging

import (
	"context"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"
)

// ErrKafkaBrokersRequired is returned when no Kafka brokers are configured.
var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

// KafkaConfig configures the Kafka implementation.
type KafkaConfig struct {
	// Brokers lists Kafka broker addresses.
	Brokers []string
	// BalancerLeastBytes switches partition balancing from hash to least-bytes.
	BalancerLeastBytes bool
}

// Kafka is a messaging implementation backed by kafka-go.
type Kafka struct {
	brokers  []string
	balancer kafka.Balancer

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	closed  bool
}

// NewKafka constructs a Kafka messaging client.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	var balancer kafka.Balancer = &kafka.Hash{}
	if cfg.BalancerLeastBytes {
		balancer = &kafka.LeastBytes{}
	}

	return &Kafka{
		brokers:  append([]string{}, cfg.Brokers...),
		balancer: balancer,
		writers:  map[string]*kafka.Writer{},
	}, nil
}

// Publish sends a message to the given topic.
func (k *Kafka) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	w, err := k.writer(destination)
	if err != nil {
		return err
	}

	headers := make([]kafka.Header, 0, len(msg.Headers))
	for _, h := range msg.Headers {
		headers = append(headers, kafka.Header{Key: h.Key, Value: h.Value})
	}

	return w.WriteMessages(ctx, kafka.Message{
		Key:     msg.Key,
		Value:   msg.Body,
		Headers: headers,
	})
}

func (k *Kafka) writer(topic string) (*kafka.Writer, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, errors.New("messaging: kafka client is closed")
	}

	if w, ok := k.writers[topic]; ok {
		return w, nil
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(k.brokers...),
		Topic:        topic,
		Balancer:     k.balancer,
		RequiredAcks: kafka.RequireOne,
	}
	k.writers[topic] = w

	return w, nil
}

// Close shuts down all Kafka writers.
func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	k.closed = true

	var errs []error
	for _, w := range k.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
