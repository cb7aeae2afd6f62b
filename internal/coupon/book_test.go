package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMapBook(t *testing.T) {
	b := newMapBook(4)
	b.Add(Coupon{Code: " lift10 ", Percent: decimal.NewFromInt(10)})

	c, ok := b.Lookup("LIFT10")
	assert.True(t, ok)
	assert.Equal(t, "LIFT10", c.Code)

	_, ok = b.Lookup("lift10")
	assert.True(t, ok, "lookups are case-insensitive")

	_, ok = b.Lookup("LIFT11")
	assert.False(t, ok)
	assert.Equal(t, 1, b.Size())

	other := newMapBook(1)
	other.Add(Coupon{Code: "LIFT10", Percent: decimal.NewFromInt(20)})
	other.Add(Coupon{Code: "DOOR", Percent: decimal.NewFromInt(5)})
	b.merge(other)

	assert.Equal(t, 2, b.Size())
	c, _ = b.Lookup("LIFT10")
	assert.True(t, c.Percent.Equal(decimal.NewFromInt(20)))
}

func TestCoupon_Discount(t *testing.T) {
	c := Coupon{Code: "X", Percent: decimal.RequireFromString("12.5")}
	assert.True(t, c.Discount(decimal.NewFromInt(800)).Equal(decimal.NewFromInt(100)))
}
