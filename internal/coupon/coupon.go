// Package coupon resolves discount codes loaded from gzipped coupon files.
package coupon

import (
	"context"

	"github.com/shopspring/decimal"
)

// Coupon is a percentage discount with an optional minimum subtotal.
type Coupon struct {
	Code        string
	Percent     decimal.Decimal
	MinSubtotal decimal.Decimal
}

// Discount returns the unrounded discount this coupon grants on subtotal.
func (c Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(c.Percent).Div(decimal.NewFromInt(100))
}

// Resolver turns a coupon code into a discount amount.
type Resolver interface {
	// Resolve returns the discount the code grants on subtotal, or
	// model.ErrInvalidCoupon if the code is unknown or not applicable.
	Resolve(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, error)

	// Close releases resources held by the resolver.
	Close() error
}

// Book is a read-only collection of coupons for fast lookup.
type Book interface {
	// Lookup returns the coupon for a normalised code.
	Lookup(code string) (Coupon, bool)

	// Size returns the number of coupons in the book.
	Size() int

	// Coupons returns every coupon in the book, in no particular order.
	Coupons() []Coupon
}

// Loader defines the interface for loading coupon files.
type Loader interface {
	// Load reads a gzipped coupon file and returns a Book.
	Load(ctx context.Context, filePath string) (Book, error)
}
