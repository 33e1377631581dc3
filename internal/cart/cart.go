package cart

import "github.com/shopspring/decimal"

// Line is one product-and-quantity entry in a session's pending purchase.
// Name and unit price are snapshots taken when the product was first added;
// they are not re-fetched from the catalog for display.
type Line struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds at most one line per product id, in insertion order. It belongs
// to exactly one session and is never shared, so no locking happens here.
//
// Mutations are no-ops on missing product ids: repeated clicks on remove or
// update never error.
type Cart struct {
	Lines []Line `json:"lines"`
}

func New() *Cart { return &Cart{} }

func (c *Cart) find(productID int64) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddOrIncrement merges qty into an existing line for productID, or appends
// a new line. qty values below 1 count as 1.
func (c *Cart) AddOrIncrement(productID int64, name string, unitPrice decimal.Decimal, qty int) {
	if qty < 1 {
		qty = 1
	}
	if i := c.find(productID); i >= 0 {
		c.Lines[i].Quantity += qty
		return
	}
	c.Lines = append(c.Lines, Line{
		ProductID: productID,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  qty,
	})
}

// SetQuantity sets the line's quantity, or removes the line when qty <= 0.
func (c *Cart) SetQuantity(productID int64, qty int) {
	i := c.find(productID)
	if i < 0 {
		return
	}
	if qty <= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		return
	}
	c.Lines[i].Quantity = qty
}

func (c *Cart) Remove(productID int64) {
	if i := c.find(productID); i >= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}
}

func (c *Cart) Clear() { c.Lines = nil }

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// Quantity reports the quantity currently held for productID, 0 if absent.
func (c *Cart) Quantity(productID int64) int {
	if i := c.find(productID); i >= 0 {
		return c.Lines[i].Quantity
	}
	return 0
}

// Total sums the line subtotals with exact decimal arithmetic. An empty cart
// totals zero.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
