package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/tienda-labs/storefront/internal/checkout"
	kafkax "github.com/tienda-labs/storefront/internal/kafka"
	"github.com/tienda-labs/storefront/internal/redisx"
)

// Service turns confirmed checkouts into buyer receipts. Receipts go to the
// log; a mail or SMS gateway would hang off the same handler.
type Service struct {
	Redis       *redis.Client
	ServiceName string
}

// HandleCheckoutConfirmed is installed as the consumer handler for the
// checkout.confirmed topic.
func (s *Service) HandleCheckoutConfirmed(ctx context.Context, m kafkago.Message) error {
	var env checkout.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != checkout.EventCheckoutConfirmed {
		return nil
	}

	// Dedup by event id: redelivery must not produce a second receipt.
	dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}

	p, err := kafkax.UnwrapPayload[checkout.ConfirmedPayload](env.Payload)
	if err != nil {
		return err
	}

	log.Printf("receipt: checkout=%s user=%d buyer=%q card=%s items=%d total=%s",
		p.CheckoutID, p.UserID, p.BuyerName, p.MaskedCard, len(p.Lines), p.Total)

	return s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
}
