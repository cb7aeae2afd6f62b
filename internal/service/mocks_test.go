package service

import (
	"context"
	"time"

	"liftcart/internal/model"
	"liftcart/internal/payment"
	"liftcart/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetVariant(ctx context.Context, id uuid.UUID) (*model.Variant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Variant), args.Error(1)
}

// MockCartRepository is a mock implementation of CartRepository. WithTx
// returns the same mock so expectations cover both pool and transaction use.
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) WithTx(tx pgx.Tx) repository.CartRepository { return m }

func (m *MockCartRepository) cart(args mock.Arguments) (*model.Cart, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Cart, error) {
	return m.cart(m.Called(ctx, id))
}

func (m *MockCartRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Cart, error) {
	return m.cart(m.Called(ctx, id))
}

func (m *MockCartRepository) GetOpenByOwner(ctx context.Context, owner model.Owner) (*model.Cart, error) {
	return m.cart(m.Called(ctx, owner))
}

func (m *MockCartRepository) Create(ctx context.Context, owner model.Owner) (*model.Cart, error) {
	return m.cart(m.Called(ctx, owner))
}

func (m *MockCartRepository) UpsertItem(ctx context.Context, item *model.CartItem) (*model.CartItem, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartItem), args.Error(1)
}

func (m *MockCartRepository) UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (bool, error) {
	args := m.Called(ctx, cartID, itemID, quantity)
	return args.Bool(0), args.Error(1)
}

func (m *MockCartRepository) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error) {
	args := m.Called(ctx, cartID, itemID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCartRepository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return m.Called(ctx, cartID).Error(0)
}

func (m *MockCartRepository) MarkCompleted(ctx context.Context, cartID uuid.UUID) error {
	return m.Called(ctx, cartID).Error(0)
}

func (m *MockCartRepository) ReassignOwner(ctx context.Context, cartID uuid.UUID, owner model.Owner) error {
	return m.Called(ctx, cartID, owner).Error(0)
}

func (m *MockCartRepository) Delete(ctx context.Context, cartID uuid.UUID) error {
	return m.Called(ctx, cartID).Error(0)
}

// MockInventoryRepository is a mock implementation of InventoryRepository.
type MockInventoryRepository struct {
	mock.Mock
}

func (m *MockInventoryRepository) WithTx(tx pgx.Tx) repository.InventoryRepository { return m }

func (m *MockInventoryRepository) GetStockLevels(ctx context.Context, keys []model.StockKey) (model.StockLevels, error) {
	args := m.Called(ctx, keys)
	return args.Get(0).(model.StockLevels), args.Error(1)
}

func (m *MockInventoryRepository) DecrementStock(ctx context.Context, key model.StockKey, quantity int) (bool, error) {
	args := m.Called(ctx, key, quantity)
	return args.Bool(0), args.Error(1)
}

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) WithTx(tx pgx.Tx) repository.OrderRepository { return m }

func (m *MockOrderRepository) NextOrderNumber(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, order *model.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) CreateOrderItems(ctx context.Context, items []model.OrderItem) error {
	return m.Called(ctx, items).Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) repository.OutboxRepository { return m }

func (m *MockOutboxRepository) Enqueue(ctx context.Context, events ...model.OutboxEvent) error {
	return m.Called(ctx, events).Error(0)
}

func (m *MockOutboxRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]model.OutboxEvent, error) {
	args := m.Called(ctx, limit, lease)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OutboxEvent), args.Error(1)
}

func (m *MockOutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, retryAt time.Time) error {
	return m.Called(ctx, id, reason, retryAt).Error(0)
}

func (m *MockOutboxRepository) MarkDead(ctx context.Context, id uuid.UUID, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

// MockTransactor hands out the configured transaction.
type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	// Return a MockTx interface value, not a pointer
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockCouponResolver is a mock implementation of coupon.Resolver.
type MockCouponResolver struct {
	mock.Mock
}

func (m *MockCouponResolver) Resolve(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, code, subtotal)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockCouponResolver) Close() error {
	return m.Called().Error(0)
}

// MockGateway is a mock implementation of payment.Gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateOrder(ctx context.Context, req payment.OrderRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

// newTx returns a MockTx that accepts a commit and tolerates the deferred
// rollback the services issue on failure.
func newTx() *MockTx {
	tx := new(MockTx)
	tx.On("Commit", mock.Anything).Return(nil).Maybe()
	tx.On("Rollback", mock.Anything).Return(nil).Maybe()
	return tx
}

// cartItem builds a line of product "Door operator". A line with a variant
// uses title as the variant name.
func cartItem(cartID, productID uuid.UUID, variantID *uuid.UUID, title, price string, qty int) model.CartItem {
	item := model.CartItem{
		ID:          uuid.New(),
		CartID:      cartID,
		ProductID:   productID,
		VariantID:   variantID,
		Title:       title,
		ProductName: "Door operator",
		UnitPrice:   decimal.RequireFromString(price),
		Quantity:    qty,
	}
	if variantID != nil {
		variantName := title
		item.VariantName = &variantName
	}
	return item
}
