// Package pricing derives cart totals from line items and static business rules.
package pricing

import (
	"liftcart/internal/config"
	"liftcart/internal/model"

	"github.com/shopspring/decimal"
)

// minorUnits is the number of decimal places kept for every amount.
const minorUnits = 2

// Calculator computes subtotal, tax, shipping, discount and total.
// It is pure and safe for concurrent use.
type Calculator struct {
	taxRate               decimal.Decimal
	freeShippingThreshold decimal.Decimal
	flatShippingFee       decimal.Decimal
}

// NewCalculator creates a calculator from pricing configuration.
func NewCalculator(cfg config.PricingConfig) *Calculator {
	return &Calculator{
		taxRate:               cfg.TaxRate,
		freeShippingThreshold: cfg.FreeShippingThreshold,
		flatShippingFee:       cfg.FlatShippingFee,
	}
}

// Subtotal returns the unrounded sum of unit price times quantity.
func Subtotal(items []model.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// Calculate prices the items. Each component is rounded to minor units
// exactly once and the total is the sum of the rounded components.
// An empty item list is an error rather than a zero total.
func (c *Calculator) Calculate(items []model.CartItem, discount decimal.Decimal) (model.Totals, error) {
	if len(items) == 0 {
		return model.Totals{}, model.ErrCartEmpty
	}
	if discount.IsNegative() {
		return model.Totals{}, model.ErrInvalidDiscount
	}

	raw := Subtotal(items)

	shipping := c.flatShippingFee
	if raw.GreaterThan(c.freeShippingThreshold) {
		shipping = decimal.Zero
	}

	if discount.GreaterThan(raw) {
		discount = raw
	}

	subtotal := raw.Round(minorUnits)
	tax := raw.Mul(c.taxRate).Round(minorUnits)
	shipping = shipping.Round(minorUnits)
	discount = discount.Round(minorUnits)

	return model.Totals{
		Subtotal:     subtotal,
		Tax:          tax,
		ShippingCost: shipping,
		Discount:     discount,
		Total:        subtotal.Add(tax).Add(shipping).Sub(discount),
	}, nil
}

// Summarize prices a cart and builds the summary returned to callers.
func (c *Calculator) Summarize(cart *model.Cart, discount decimal.Decimal, currency string) (*model.CartSummary, error) {
	totals, err := c.Calculate(cart.Items, discount)
	if err != nil {
		return nil, err
	}

	items := make([]model.SummaryItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, model.SummaryItem{
			ItemID:    item.ID.String(),
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal().Round(minorUnits),
		})
	}

	return &model.CartSummary{
		Totals:    totals,
		CartID:    cart.ID.String(),
		Currency:  currency,
		ItemCount: cart.ItemCount(),
		Items:     items,
	}, nil
}

// ToMinorUnits converts an amount to an integer count of minor units (paise).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(minorUnits).Round(0).IntPart()
}
