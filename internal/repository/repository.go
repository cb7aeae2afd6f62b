package repository

import (
	"context"
	"time"

	"liftcart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository
// can run either standalone or inside a caller-owned transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Transactor starts database transactions.
type Transactor interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// ProductRepository defines the interface for catalog data access operations.
type ProductRepository interface {
	// GetAll retrieves products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product and its variants.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// GetVariant retrieves a single variant by its ID.
	GetVariant(ctx context.Context, id uuid.UUID) (*model.Variant, error)
}

// CartRepository defines the interface for cart data access operations.
type CartRepository interface {
	// WithTx returns a repository bound to the given transaction.
	WithTx(tx pgx.Tx) CartRepository

	// GetByID retrieves a cart with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Cart, error)

	// GetByIDForUpdate retrieves a cart with its items and row-locks the cart.
	// Only meaningful inside a transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Cart, error)

	// GetOpenByOwner retrieves the owner's cart that has not been completed.
	GetOpenByOwner(ctx context.Context, owner model.Owner) (*model.Cart, error)

	// Create inserts a new empty cart for the owner.
	Create(ctx context.Context, owner model.Owner) (*model.Cart, error)

	// UpsertItem inserts a line or adds its quantity to the existing line for
	// the same product and variant. The stored snapshot is kept on conflict.
	// Returns model.ErrCartCompleted if the cart has been checked out.
	UpsertItem(ctx context.Context, item *model.CartItem) (*model.CartItem, error)

	// UpdateItemQuantity sets a line's quantity. Returns false if the line
	// does not belong to the cart.
	UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (bool, error)

	// RemoveItem deletes a line. Returns false if the line does not belong to the cart.
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error)

	// ClearItems deletes every line in the cart.
	ClearItems(ctx context.Context, cartID uuid.UUID) error

	// MarkCompleted stamps the cart as completed so it is no longer the owner's open cart.
	MarkCompleted(ctx context.Context, cartID uuid.UUID) error

	// ReassignOwner moves an open cart to a new owner.
	ReassignOwner(ctx context.Context, cartID uuid.UUID, owner model.Owner) error

	// Delete removes the cart and, by cascade, its items.
	Delete(ctx context.Context, cartID uuid.UUID) error
}

// InventoryRepository defines the interface for stock data access operations.
type InventoryRepository interface {
	// WithTx returns a repository bound to the given transaction.
	WithTx(tx pgx.Tx) InventoryRepository

	// GetStockLevels returns current stock for the given records.
	GetStockLevels(ctx context.Context, keys []model.StockKey) (model.StockLevels, error)

	// DecrementStock subtracts quantity from the record only if enough stock
	// remains. Returns false when the record has insufficient stock.
	DecrementStock(ctx context.Context, key model.StockKey, quantity int) (bool, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// WithTx returns a repository bound to the given transaction.
	WithTx(tx pgx.Tx) OrderRepository

	// NextOrderNumber allocates the next value of the order number sequence.
	NextOrderNumber(ctx context.Context) (int64, error)

	// CreateOrder inserts a new order header.
	CreateOrder(ctx context.Context, order *model.Order) error

	// CreateOrderItems inserts multiple order items.
	CreateOrderItems(ctx context.Context, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ListByAccount retrieves an account's orders, newest first, without items.
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]model.Order, error)
}

// OutboxRepository defines the interface for outbox event storage.
type OutboxRepository interface {
	// WithTx returns a repository bound to the given transaction.
	WithTx(tx pgx.Tx) OutboxRepository

	// Enqueue records events for later delivery.
	Enqueue(ctx context.Context, events ...model.OutboxEvent) error

	// ClaimPending leases up to limit due events so no other dispatcher picks
	// them up until the lease expires.
	ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]model.OutboxEvent, error)

	// MarkProcessed records successful delivery.
	MarkProcessed(ctx context.Context, id uuid.UUID) error

	// MarkFailed records a failed attempt and schedules the next one.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, retryAt time.Time) error

	// MarkDead parks an event that exhausted its attempts.
	MarkDead(ctx context.Context, id uuid.UUID, reason string) error
}
