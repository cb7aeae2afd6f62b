package service

import (
	"context"

	"liftcart/internal/model"

	"github.com/google/uuid"
)

// ProductService defines read operations over the catalogue.
type ProductService interface {
	// GetAll retrieves products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product with its variants.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
}

// CartService defines operations over carts and their lines.
type CartService interface {
	// GetCart retrieves a cart with its items, or nil if it does not exist.
	GetCart(ctx context.Context, cartID uuid.UUID) (*model.Cart, error)

	// GetOpenCart retrieves the owner's open cart, or nil if there is none.
	GetOpenCart(ctx context.Context, owner model.Owner) (*model.Cart, error)

	// AddItem adds a product or variant to the owner's open cart, creating
	// the cart on first add. Adding an existing line increments its quantity.
	AddItem(ctx context.Context, owner model.Owner, req model.AddCartItemRequest) (*model.Cart, error)

	// UpdateItem sets the quantity of a line in the owner's open cart.
	UpdateItem(ctx context.Context, owner model.Owner, itemID uuid.UUID, quantity int) (*model.Cart, error)

	// RemoveItem deletes a line from the owner's open cart.
	RemoveItem(ctx context.Context, owner model.Owner, itemID uuid.UUID) (*model.Cart, error)

	// ClearCart empties the cart and stamps its completion. Clearing an
	// already empty cart succeeds.
	ClearCart(ctx context.Context, cartID uuid.UUID) error

	// MigrateGuestCart moves the guest's cart into the account's cart and
	// returns the account's resulting open cart.
	MigrateGuestCart(ctx context.Context, guestCartID uuid.UUID, guest, account model.Owner) (*model.Cart, error)
}

// InventoryService checks carts against current stock.
type InventoryService interface {
	// ValidateCartInventory reports every line whose quantity exceeds stock.
	ValidateCartInventory(ctx context.Context, cartID uuid.UUID) (*model.InventoryReport, error)
}

// SummaryService prices carts.
type SummaryService interface {
	// GetCartSummary returns the priced summary of a cart.
	GetCartSummary(ctx context.Context, cartID uuid.UUID) (*model.CartSummary, error)
}

// CheckoutService turns carts into orders.
type CheckoutService interface {
	// CreateOrderFromCart places an order for the cart's current contents.
	CreateOrderFromCart(ctx context.Context, input model.CreateOrderInput) (*model.CheckoutResult, error)
}

// OrderService defines read operations over placed orders.
type OrderService interface {
	// GetByID retrieves an order the owner placed.
	GetByID(ctx context.Context, id uuid.UUID, owner model.Owner) (*model.Order, error)

	// ListForAccount retrieves an account's orders, newest first.
	ListForAccount(ctx context.Context, accountID string, limit, offset int) ([]model.Order, error)
}
