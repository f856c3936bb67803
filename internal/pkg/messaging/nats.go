package messaging

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"
)

// ErrNATSURLRequired is returned when the NATS URL is empty.
var ErrNATSURLRequired = errors.New("messaging: nats url is required")

// NATSConfig configures the NATS implementation.
type NATSConfig struct {
	// URL is the NATS server address.
	URL string
	// Name identifies the connection on the server.
	Name string
}

// NATS is a messaging implementation backed by core NATS.
type NATS struct {
	conn *nats.Conn
}

// NewNATS constructs a NATS messaging client.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	opts := []nats.Option{}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, err
	}

	return &NATS{conn: conn}, nil
}

// Publish sends a message to the given subject.
func (n *NATS) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := nats.NewMsg(destination)
	m.Data = msg.Body
	for _, h := range msg.Headers {
		m.Header.Add(h.Key, string(h.Value))
	}

	return n.conn.PublishMsg(m)
}

// Close drains and closes the connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
