package checkout

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tienda-labs/storefront/internal/bank"
	"github.com/tienda-labs/storefront/internal/cart"
	"github.com/tienda-labs/storefront/internal/catalog"
	"github.com/tienda-labs/storefront/internal/users"
)

// Settlement is the pgx-backed Settler. One transaction covers the balance
// subtraction and every stock decrement; the FOR UPDATE row locks inside
// bank.DebitTx and catalog.DebitStockTx serialize concurrent checkouts on
// the same card or product, so intermediate states are never visible and a
// late stock shortage rolls the ledger debit back too.
type Settlement struct{ DB *pgxpool.Pool }

func (s *Settlement) Settle(ctx context.Context, pm *users.PaymentMethod, total decimal.Decimal, lines []cart.Line) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	card := bank.Card{
		Number:   pm.CardNumber,
		Brand:    pm.Brand,
		ExpMonth: pm.ExpMonth,
		ExpYear:  pm.ExpYear,
	}
	ok, err := bank.DebitTx(ctx, tx, card, total)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPaymentDeclined
	}

	for _, l := range lines {
		if err := catalog.DebitStockTx(ctx, tx, l.ProductID, l.Quantity); err != nil {
			var stockErr *catalog.StockError
			if errors.As(err, &stockErr) {
				return &StockShortage{
					ProductID: l.ProductID,
					Name:      l.Name,
					Requested: stockErr.Requested,
					Available: stockErr.Available,
				}
			}
			if errors.Is(err, catalog.ErrNotFound) {
				return &StockShortage{ProductID: l.ProductID, Name: l.Name, Requested: l.Quantity}
			}
			return err
		}
	}

	return tx.Commit(ctx)
}
