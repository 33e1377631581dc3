package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("product not found")

// StockError reports a stock debit that would drive the counter negative.
type StockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

type Repo struct{ DB *pgxpool.Pool }

const productColumns = `id, sku, name, description, unit_price, stock_quantity, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.UnitPrice,
		&p.StockQuantity, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) FindByID(ctx context.Context, id int64) (*Product, error) {
	return scanProduct(r.DB.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id=$1`, id))
}

func (r *Repo) List(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE is_active ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.UnitPrice,
			&p.StockQuantity, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// HasStock reports whether the product exists, is active, and holds at least
// qty units.
func (r *Repo) HasStock(ctx context.Context, id int64, qty int) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE id=$1 AND is_active AND stock_quantity >= $2)`,
		id, qty).Scan(&ok)
	return ok, err
}

// DebitStock decrements stock by qty in its own transaction.
func (r *Repo) DebitStock(ctx context.Context, id int64, qty int) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := DebitStockTx(ctx, tx, id, qty); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DebitStockTx decrements stock by qty inside an existing transaction. The
// row lock taken here serializes concurrent checkouts on the same product;
// the caller owns commit and rollback, so a failure later in the same
// transaction undoes the decrement too.
func DebitStockTx(ctx context.Context, tx pgx.Tx, id int64, qty int) error {
	var stock int
	err := tx.QueryRow(ctx,
		`SELECT stock_quantity FROM products WHERE id=$1 FOR UPDATE`, id).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if stock < qty {
		return &StockError{ProductID: id, Requested: qty, Available: stock}
	}
	_, err = tx.Exec(ctx,
		`UPDATE products SET stock_quantity = stock_quantity - $2, updated_at = now() WHERE id=$1`,
		id, qty)
	return err
}
