package bank

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Account is one ledger entry in the simulated bank: a card and the balance
// behind it.
type Account struct {
	ID         int64
	BankName   string
	CardNumber string
	Brand      string
	ExpMonth   int
	ExpYear    int
	NameOnCard string
	Balance    decimal.Decimal
}

// Card carries the fields a debit is matched against. Callers must pass the
// raw card data, never a masked display variant.
type Card struct {
	Number   string
	Brand    string
	ExpMonth int
	ExpYear  int
}

type Ledger struct{ DB *pgxpool.Pool }

// Exists reports whether the bank knows the card number at all. Used when a
// user registers a payment method.
func (l *Ledger) Exists(ctx context.Context, cardNumber string) (bool, error) {
	var ok bool
	err := l.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM bank WHERE card_number=$1)`, cardNumber).Scan(&ok)
	return ok, err
}

// Debit runs DebitTx in its own transaction. It returns false, without an
// error, when the account is absent, the card fields do not match, or the
// balance cannot cover the amount.
func (l *Ledger) Debit(ctx context.Context, card Card, amount decimal.Decimal) (bool, error) {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	ok, err := DebitTx(ctx, tx, card, amount)
	if err != nil || !ok {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// DebitTx performs the compare-and-subtract inside an existing transaction.
// The FOR UPDATE read serializes concurrent debits on the same account, so
// two checkouts against one card cannot both pass the balance check.
func DebitTx(ctx context.Context, tx pgx.Tx, card Card, amount decimal.Decimal) (bool, error) {
	var (
		id               int64
		brand            string
		expMonth, expYear int
		balance          decimal.Decimal
	)
	err := tx.QueryRow(ctx,
		`SELECT id, brand, exp_month, exp_year, balance FROM bank WHERE card_number=$1 FOR UPDATE`,
		card.Number).Scan(&id, &brand, &expMonth, &expYear, &balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// A payment method whose bank record was altered, or never provisioned,
	// must not debit anything.
	if brand != card.Brand || expMonth != card.ExpMonth || expYear != card.ExpYear {
		return false, nil
	}
	if balance.LessThan(amount) {
		return false, nil
	}

	_, err = tx.Exec(ctx, `UPDATE bank SET balance = balance - $2 WHERE id=$1`, id, amount)
	if err != nil {
		return false, err
	}
	return true, nil
}
