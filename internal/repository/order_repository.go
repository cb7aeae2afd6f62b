package repository

import (
	"context"
	"errors"
	"fmt"

	"liftcart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	db     DBTX
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(db DBTX, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		db:     db,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

func (r *orderRepository) WithTx(tx pgx.Tx) OrderRepository {
	return &orderRepository{db: tx, logger: r.logger}
}

// NextOrderNumber allocates the next value of the order number sequence.
// Sequence values are never reused, even when the surrounding transaction rolls back.
func (r *orderRepository) NextOrderNumber(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&n); err != nil {
		r.logger.Error().Err(err).Msg("failed to allocate order number")
		return 0, fmt.Errorf("failed to allocate order number: %w", err)
	}
	return n, nil
}

// CreateOrder inserts a new order header.
func (r *orderRepository) CreateOrder(ctx context.Context, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, order_number, cart_id, account_id, guest_token,
			contact_name, contact_email, contact_phone,
			subtotal, tax, shipping_cost, discount, total, currency, coupon_code,
			payment_method, order_status, payment_status, razorpay_order_id,
			shipping_address, billing_address, notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19,
			$20, $21, $22, $23, $24
		)
	`

	accountID, guestToken := order.Owner.Columns()

	_, err := r.db.Exec(ctx, query,
		order.ID, order.OrderNumber, order.CartID, accountID, guestToken,
		order.Contact.Name, order.Contact.Email, order.Contact.Phone,
		order.Subtotal, order.Tax, order.ShippingCost, order.Discount, order.Total, order.Currency, order.CouponCode,
		order.PaymentMethod, order.OrderStatus, order.PaymentStatus, order.RazorpayOrderID,
		order.ShippingAddress, order.BillingAddress, order.Notes, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("order_number", order.OrderNumber).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items in a single batch.
func (r *orderRepository) CreateOrderItems(ctx context.Context, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (
			id, order_id, product_id, variant_id, product_name, variant_name,
			sku, quantity, unit_price, total_price
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.ID, item.OrderID, item.ProductID, item.VariantID, item.ProductName, item.VariantName,
			item.SKU, item.Quantity, item.UnitPrice, item.TotalPrice,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID.String()).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

const orderColumns = `
	id, order_number, cart_id, account_id, guest_token,
	contact_name, contact_email, contact_phone,
	subtotal, tax, shipping_cost, discount, total, currency, coupon_code,
	payment_method, order_status, payment_status, razorpay_order_id,
	shipping_address, billing_address, notes, created_at, updated_at`

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, product_id, variant_id, product_name, variant_name,
		       sku, quantity, unit_price, total_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_name, id
	`

	rows, err := r.db.Query(ctx, itemsQuery, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	order.Items = []model.OrderItem{}
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.VariantID, &item.ProductName,
			&item.VariantName, &item.SKU, &item.Quantity, &item.UnitPrice, &item.TotalPrice)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return order, nil
}

// ListByAccount retrieves an account's orders, newest first, without items.
func (r *orderRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o          model.Order
		accountID  *string
		guestToken *string
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CartID, &accountID, &guestToken,
		&o.Contact.Name, &o.Contact.Email, &o.Contact.Phone,
		&o.Subtotal, &o.Tax, &o.ShippingCost, &o.Discount, &o.Total, &o.Currency, &o.CouponCode,
		&o.PaymentMethod, &o.OrderStatus, &o.PaymentStatus, &o.RazorpayOrderID,
		&o.ShippingAddress, &o.BillingAddress, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	owner, err := model.OwnerFromColumns(accountID, guestToken)
	if err != nil {
		return nil, err
	}
	o.Owner = owner

	return &o, nil
}
