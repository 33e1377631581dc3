package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tienda-labs/storefront/internal/cart"
	"github.com/tienda-labs/storefront/internal/catalog"
	"github.com/tienda-labs/storefront/internal/users"
)

// Buyer carries the checkout form fields: personal data plus the shipping
// address the confirmation is rendered with.
type Buyer struct {
	FullName   string `json:"full_name"`
	Cedula     string `json:"cedula"`
	Label      string `json:"label,omitempty"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// Record is the confirmation handed to the presentation layer after a
// settled checkout. It is never persisted: the storefront keeps no order
// history.
type Record struct {
	ID              string          `json:"id"`
	Status          Status          `json:"status"`
	UserID          int64           `json:"user_id"`
	Buyer           Buyer           `json:"buyer"`
	PaymentMethodID int64           `json:"payment_method_id"`
	MaskedCard      string          `json:"masked_card"`
	Lines           []cart.Line     `json:"lines"`
	Total           decimal.Decimal `json:"total"`
}

func (r *Record) transition(to Status) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("checkout: illegal transition %s -> %s", r.Status, to)
	}
	r.Status = to
	return nil
}

// CatalogStore is the catalog contract the orchestrator re-validates against.
type CatalogStore interface {
	FindByID(ctx context.Context, id int64) (*catalog.Product, error)
}

// PaymentMethods resolves the card selected on the checkout form.
type PaymentMethods interface {
	PaymentMethodByID(ctx context.Context, id int64) (*users.PaymentMethod, error)
}

// Settler commits the ledger debit and every stock decrement as one
// all-or-nothing unit. It returns ErrPaymentDeclined or *StockShortage on
// user-recoverable failure, leaving no partial effect behind.
type Settler interface {
	Settle(ctx context.Context, pm *users.PaymentMethod, total decimal.Decimal, lines []cart.Line) error
}

// Orchestrator drives one checkout attempt from the presented form to a
// confirmed record.
type Orchestrator struct {
	Catalog CatalogStore
	Methods PaymentMethods
	Settler Settler
}

// Finalize runs the purchase sequence against the caller's cart. On success
// the cart is cleared and the confirmation record returned; on any failure
// the cart, the stock counters, and the ledger are untouched and the error
// names the failing resource.
func (o *Orchestrator) Finalize(ctx context.Context, userID int64, c *cart.Cart, paymentMethodID int64, buyer Buyer) (*Record, error) {
	if c == nil || c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	rec := &Record{
		ID:              uuid.NewString(),
		Status:          StatusFormPresented,
		UserID:          userID,
		Buyer:           buyer,
		PaymentMethodID: paymentMethodID,
	}

	// Re-validate stock per line before any write. A later race is still
	// caught by the settlement transaction; this pass exists to name the
	// short product with its available quantity.
	if err := rec.transition(StatusValidating); err != nil {
		return nil, err
	}
	for _, l := range c.Lines {
		p, err := o.Catalog.FindByID(ctx, l.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			rec.Status = StatusFormPresented
			return nil, &StockShortage{ProductID: l.ProductID, Name: l.Name, Requested: l.Quantity}
		}
		if err != nil {
			return nil, err
		}
		if !p.Active || p.StockQuantity < l.Quantity {
			available := 0
			if p.Active {
				available = p.StockQuantity
			}
			rec.Status = StatusFormPresented
			return nil, &StockShortage{ProductID: l.ProductID, Name: l.Name, Requested: l.Quantity, Available: available}
		}
	}

	pm, err := o.Methods.PaymentMethodByID(ctx, paymentMethodID)
	if errors.Is(err, users.ErrNotFound) {
		return nil, ErrPaymentMethodNotFound
	}
	if err != nil {
		return nil, err
	}
	total := c.Total()

	// Ledger debit and stock commit run as one storage transaction inside
	// the settler: either every mutation lands or none do.
	if err := rec.transition(StatusDebiting); err != nil {
		return nil, err
	}
	if err := o.Settler.Settle(ctx, pm, total, c.Lines); err != nil {
		rec.Status = StatusFormPresented
		return nil, err
	}
	if err := rec.transition(StatusCommittingStock); err != nil {
		return nil, err
	}
	if err := rec.transition(StatusConfirmed); err != nil {
		return nil, err
	}

	rec.MaskedCard = users.MaskCardNumber(pm.CardNumber)
	rec.Lines = append([]cart.Line(nil), c.Lines...)
	rec.Total = total
	c.Clear()
	return rec, nil
}
