package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAddOrIncrement_MergesSameProduct(t *testing.T) {
	c := New()
	c.AddOrIncrement(1, "Widget", price("10.00"), 1)
	c.AddOrIncrement(1, "Widget", price("10.00"), 1)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 2, c.Lines[0].Quantity)
}

func TestAddOrIncrement_PreservesInsertionOrder(t *testing.T) {
	c := New()
	c.AddOrIncrement(3, "Gorra", price("5.50"), 1)
	c.AddOrIncrement(1, "Camisa", price("12.00"), 1)
	c.AddOrIncrement(3, "Gorra", price("5.50"), 2)

	require.Len(t, c.Lines, 2)
	assert.Equal(t, int64(3), c.Lines[0].ProductID)
	assert.Equal(t, 3, c.Lines[0].Quantity)
	assert.Equal(t, int64(1), c.Lines[1].ProductID)
}

func TestAddOrIncrement_ZeroQuantityCountsAsOne(t *testing.T) {
	c := New()
	c.AddOrIncrement(1, "Widget", price("10.00"), 0)
	assert.Equal(t, 1, c.Quantity(1))
}

func TestSetQuantity(t *testing.T) {
	c := New()
	c.AddOrIncrement(1, "Widget", price("10.00"), 2)

	c.SetQuantity(1, 5)
	assert.Equal(t, 5, c.Quantity(1))

	c.SetQuantity(1, 0)
	assert.True(t, c.IsEmpty(), "quantity 0 removes the line")

	c.AddOrIncrement(1, "Widget", price("10.00"), 2)
	c.SetQuantity(1, -1)
	assert.True(t, c.IsEmpty(), "negative quantity removes the line")
}

func TestSetQuantity_UnknownProductIsNoop(t *testing.T) {
	c := New()
	c.AddOrIncrement(1, "Widget", price("10.00"), 2)
	c.SetQuantity(99, 5)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 2, c.Quantity(1))
}

func TestRemove(t *testing.T) {
	c := New()
	c.AddOrIncrement(1, "Widget", price("10.00"), 2)
	c.AddOrIncrement(2, "Gadget", price("3.25"), 1)

	c.Remove(1)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, int64(2), c.Lines[0].ProductID)

	// repeated remove is a no-op
	c.Remove(1)
	assert.Len(t, c.Lines, 1)
}

func TestClear(t *testing.T) {
	c := New()
	c.AddOrIncrement(1, "Widget", price("10.00"), 2)
	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total().IsZero())
}

func TestTotal(t *testing.T) {
	c := New()
	assert.True(t, c.Total().IsZero(), "empty cart totals zero")

	c.AddOrIncrement(1, "Widget", price("10.00"), 2)
	assert.True(t, c.Total().Equal(price("20.00")))

	c.AddOrIncrement(2, "Gadget", price("0.10"), 3)
	c.AddOrIncrement(3, "Gizmo", price("19.99"), 1)
	assert.True(t, c.Total().Equal(price("40.29")), "got %s", c.Total())
}

func TestTotal_NoFloatRounding(t *testing.T) {
	// 0.1 * 3 is not representable in binary floating point; decimal
	// accumulation must yield exactly 0.3.
	c := New()
	c.AddOrIncrement(1, "Sticker", price("0.1"), 3)
	assert.Equal(t, "0.3", c.Total().String())
}

func TestSubtotal(t *testing.T) {
	l := Line{ProductID: 1, Name: "Widget", UnitPrice: price("2.50"), Quantity: 4}
	assert.True(t, l.Subtotal().Equal(price("10.00")))
}
