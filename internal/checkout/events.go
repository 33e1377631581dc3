package checkout

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tienda-labs/storefront/internal/cart"
)

const (
	EventCheckoutConfirmed = "CheckoutConfirmed"
	EventCheckoutRejected  = "CheckoutRejected"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // checkout id
	Payload       json.RawMessage `json:"payload"`
}

// ConfirmedPayload is the wire form of a settled checkout. The card number
// here is already masked; the raw number never leaves the settlement path.
type ConfirmedPayload struct {
	CheckoutID string          `json:"checkout_id"`
	UserID     int64           `json:"user_id"`
	BuyerName  string          `json:"buyer_name"`
	MaskedCard string          `json:"masked_card"`
	Lines      []cart.Line     `json:"lines"`
	Total      decimal.Decimal `json:"total"`
}

type RejectedPayload struct {
	UserID   int64          `json:"user_id"`
	Reason   string         `json:"reason"` // OUT_OF_STOCK | PAYMENT_DECLINED
	Shortage *StockShortage `json:"shortage,omitempty"`
}

const (
	ReasonOutOfStock      = "OUT_OF_STOCK"
	ReasonPaymentDeclined = "PAYMENT_DECLINED"
)
