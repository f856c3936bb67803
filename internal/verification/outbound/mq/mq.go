package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"go.opentelemetry.io/otel/codes"

	"github.com/dhakamart/verifyd/internal/pkg/instrument"
	"github.com/dhakamart/verifyd/internal/pkg/messaging"
	"github.com/dhakamart/verifyd/internal/shared/event"
)

type MQ struct {
	client messaging.Messaging
	ins    instrument.Instrumentation
}

func NewMQ(client messaging.Messaging, ins instrument.Instrumentation) *MQ {
	return &MQ{
		client: client,
		ins:    ins,
	}
}

// PublishOtpVerified announces a completed verification, keyed by user so
// per-user ordering is preserved on partitioned brokers.
func (m *MQ) PublishOtpVerified(ctx context.Context, ev event.OtpVerified) (err error) {
	ctx, span := m.ins.Tracer("verification.outbound.mq").Start(ctx, "PublishOtpVerified")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	msg := messaging.OutgoingMessage{
		Body: body,
		Key:  []byte(strconv.FormatInt(ev.UserID, 10)),
	}
	if cID := instrument.GetCorrelationID(ctx); cID != "" {
		msg.Headers = append(msg.Headers, messaging.Header{Key: "x-correlation-id", Value: []byte(cID)})
	}

	return m.client.Publish(ctx, event.OtpVerifiedDestination, msg)
}
