package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/codes"

	"github.com/dhakamart/verifyd/internal/pkg/instrument"
)

type Cache struct {
	client redis.UniversalClient
	ins    instrument.Instrumentation
}

func NewCache(client redis.UniversalClient, ins instrument.Instrumentation) *Cache {
	return &Cache{
		client: client,
		ins:    ins,
	}
}

// ClearResendCooldown removes the resend-cooldown keys the issuance service
// set for this identifier, so the client may request a fresh code right away.
// Both the purposed and the legacy unpurposed key shapes are cleared.
func (c *Cache) ClearResendCooldown(ctx context.Context, purpose string, identifiers []string) (err error) {
	ctx, span := c.ins.Tracer("verification.outbound.cache").Start(ctx, "ClearResendCooldown")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	keys := make([]string, 0, len(identifiers)*2)
	for _, id := range identifiers {
		if id == "" {
			continue
		}
		if purpose != "" {
			keys = append(keys, fmt.Sprintf("otp:resend:%s:%s", purpose, id))
		}
		keys = append(keys, fmt.Sprintf("otp:resend:%s", id))
	}
	if len(keys) == 0 {
		return nil
	}

	return c.client.Del(ctx, keys...).Err()
}
