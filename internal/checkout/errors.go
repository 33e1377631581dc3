package checkout

import (
	"errors"
	"fmt"
)

// User-recoverable failures: nothing has been written when these return.
var (
	ErrEmptyCart             = errors.New("cart is empty")
	ErrNotAuthenticated      = errors.New("login required")
	ErrProfileIncomplete     = errors.New("personal information and address required")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
	ErrPaymentDeclined       = errors.New("payment declined: card mismatch, unknown card, or insufficient funds")
)

// StockShortage names the first cart line the catalog can no longer cover,
// so the user can adjust the quantity without losing the cart.
type StockShortage struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func (e *StockShortage) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		e.Name, e.Requested, e.Available)
}
