package users

import (
	"strings"
	"time"
)

type Credential struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Hash      string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Information struct {
	UserID   int64  `json:"user_id"`
	FullName string `json:"full_name"`
	Cedula   string `json:"cedula"`
	Phone    string `json:"phone,omitempty"`
}

type Address struct {
	UserID     int64  `json:"user_id"`
	Label      string `json:"label,omitempty"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

type PaymentMethod struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	CardNumber string `json:"card_number"`
	Brand      string `json:"brand"`
	ExpMonth   int    `json:"exp_month,omitempty"`
	ExpYear    int    `json:"exp_year,omitempty"`
	NameOnCard string `json:"name_on_card,omitempty"`
}

// Masked returns the display variant: expiry cleared and the card number
// reduced to first 2 + last 4 digits. The masked variant must never be used
// for ledger matching.
func (m PaymentMethod) Masked() PaymentMethod {
	out := m
	out.ExpMonth = 0
	out.ExpYear = 0
	out.CardNumber = MaskCardNumber(m.CardNumber)
	return out
}

// MaskCardNumber keeps the first 2 and last 4 characters and replaces the
// middle with '*'. Inputs shorter than 6 characters come back unchanged.
//
//	411111111111 -> 41******1111
func MaskCardNumber(cardNumber string) string {
	if len(cardNumber) < 6 {
		return cardNumber
	}
	return cardNumber[:2] + strings.Repeat("*", len(cardNumber)-6) + cardNumber[len(cardNumber)-4:]
}
