package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is a pre-order basket owned by an account or a guest token.
type Cart struct {
	ID          uuid.UUID  `json:"id"`
	Owner       Owner      `json:"owner"`
	Items       []CartItem `json:"items"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// IsCompleted reports whether the cart has already been checked out or cleared.
func (c *Cart) IsCompleted() bool {
	return c.CompletedAt != nil
}

// ItemCount returns the total number of units across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// CartItem is a line in a cart. Names, SKU and UnitPrice are snapshots taken
// when the item was first added; Title is the display form of the names.
type CartItem struct {
	ID          uuid.UUID       `json:"id"`
	CartID      uuid.UUID       `json:"cartId"`
	ProductID   uuid.UUID       `json:"productId"`
	VariantID   *uuid.UUID      `json:"variantId,omitempty"`
	Title       string          `json:"title"`
	ProductName string          `json:"productName"`
	VariantName *string         `json:"variantName,omitempty"`
	SKU         string          `json:"sku,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// LineTotal returns unit price times quantity, unrounded.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// AddCartItemRequest represents the request payload for adding to a cart.
type AddCartItemRequest struct {
	ProductID uuid.UUID  `json:"productId" validate:"required"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,gt=0"`
}

// UpdateCartItemRequest represents the request payload for changing a line quantity.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// MigrateCartRequest represents the request payload for merging a guest cart.
type MigrateCartRequest struct {
	GuestCartID uuid.UUID `json:"guestCartId" validate:"required"`
}
