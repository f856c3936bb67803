package messaging

import (
	"context"
	"errors"
	"io"
)

// ErrUnknownDriver is returned by the factory for an unrecognized driver name.
var ErrUnknownDriver = errors.New("messaging: unknown driver")

// Messaging is a broker-agnostic client used to publish domain events.
//
// Implementations wrap Kafka, NATS or any other messaging system. This
// service only produces; consumption belongs to downstream collaborators.
type Messaging interface {
	io.Closer

	// Publish sends a message to the destination (topic/subject).
	Publish(ctx context.Context, destination string, msg OutgoingMessage) error
}

// OutgoingMessage represents a broker-agnostic message to be published.
type OutgoingMessage struct {
	// Body is the message payload.
	Body []byte

	// Key is commonly used by Kafka for partitioning.
	Key []byte

	// Headers support arbitrary binary values and duplicate keys.
	Headers []Header
}

// Header is a key/value pair used for message headers.
type Header struct {
	// Key is the header name.
	Key string
	// Value is the header value.
	Value []byte
}
