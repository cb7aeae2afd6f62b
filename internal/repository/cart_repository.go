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

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	db     DBTX
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(db DBTX, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		db:     db,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

func (r *cartRepository) WithTx(tx pgx.Tx) CartRepository {
	return &cartRepository{db: tx, logger: r.logger}
}

const (
	cartColumns     = `id, account_id, guest_token, completed_at, created_at, updated_at`
	cartItemColumns = `id, cart_id, product_id, variant_id, title, product_name, variant_name, sku, unit_price, quantity, created_at`
)

func (r *cartRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Cart, error) {
	return r.getCart(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1`, id)
}

func (r *cartRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Cart, error) {
	return r.getCart(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1 FOR UPDATE`, id)
}

func (r *cartRepository) GetOpenByOwner(ctx context.Context, owner model.Owner) (*model.Cart, error) {
	if id, ok := owner.AccountID(); ok {
		return r.getCart(ctx, `SELECT `+cartColumns+` FROM carts WHERE account_id = $1 AND completed_at IS NULL`, id)
	}
	if token, ok := owner.GuestToken(); ok {
		return r.getCart(ctx, `SELECT `+cartColumns+` FROM carts WHERE guest_token = $1 AND completed_at IS NULL`, token)
	}
	return nil, fmt.Errorf("cart owner is empty")
}

func (r *cartRepository) Create(ctx context.Context, owner model.Owner) (*model.Cart, error) {
	accountID, guestToken := owner.Columns()

	query := `
		INSERT INTO carts (account_id, guest_token)
		VALUES ($1, $2)
		RETURNING ` + cartColumns

	cart, err := scanCart(r.db.QueryRow(ctx, query, accountID, guestToken))
	if err != nil {
		r.logger.Error().Err(err).Str("owner", owner.String()).Msg("failed to create cart")
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	cart.Items = []model.CartItem{}

	r.logger.Debug().Str("cart_id", cart.ID.String()).Str("owner", owner.String()).Msg("cart created")
	return cart, nil
}

// UpsertItem adds a line to an open cart, summing quantities when the
// (product, variant) pair is already present. The cart row is share-locked,
// so an upsert racing a checkout waits for it and then sees the cart closed.
func (r *cartRepository) UpsertItem(ctx context.Context, item *model.CartItem) (*model.CartItem, error) {
	query := `
		WITH open_cart AS (
			SELECT id FROM carts WHERE id = $1 AND completed_at IS NULL FOR SHARE
		)
		INSERT INTO cart_items (cart_id, product_id, variant_id, title, product_name, variant_name, sku, unit_price, quantity)
		SELECT open_cart.id, $2, $3, $4, $5, $6, $7, $8, $9 FROM open_cart
		ON CONFLICT (cart_id, product_id, variant_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING ` + cartItemColumns

	out, err := scanCartItem(r.db.QueryRow(ctx, query,
		item.CartID, item.ProductID, item.VariantID, item.Title, item.ProductName, item.VariantName,
		item.SKU, item.UnitPrice, item.Quantity,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		r.logger.Debug().Str("cart_id", item.CartID.String()).Msg("upsert into closed cart")
		return nil, model.ErrCartCompleted
	}
	if err != nil {
		r.logger.Error().Err(err).
			Str("cart_id", item.CartID.String()).
			Str("product_id", item.ProductID.String()).
			Msg("failed to upsert cart item")
		return nil, fmt.Errorf("failed to upsert cart item: %w", err)
	}

	if err := r.touch(ctx, item.CartID); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE cart_items SET quantity = $3 WHERE id = $2 AND cart_id = $1`,
		cartID, itemID, quantity,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("failed to update cart item")
		return false, fmt.Errorf("failed to update cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	return true, r.touch(ctx, cartID)
}

func (r *cartRepository) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE id = $2 AND cart_id = $1`, cartID, itemID)
	if err != nil {
		r.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("failed to remove cart item")
		return false, fmt.Errorf("failed to remove cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	return true, r.touch(ctx, cartID)
}

func (r *cartRepository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to clear cart items")
		return fmt.Errorf("failed to clear cart items: %w", err)
	}
	return r.touch(ctx, cartID)
}

func (r *cartRepository) MarkCompleted(ctx context.Context, cartID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE carts SET completed_at = NOW(), updated_at = NOW() WHERE id = $1 AND completed_at IS NULL`,
		cartID,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to complete cart")
		return fmt.Errorf("failed to complete cart: %w", err)
	}
	return nil
}

func (r *cartRepository) ReassignOwner(ctx context.Context, cartID uuid.UUID, owner model.Owner) error {
	accountID, guestToken := owner.Columns()

	tag, err := r.db.Exec(ctx,
		`UPDATE carts SET account_id = $2, guest_token = $3, updated_at = NOW() WHERE id = $1 AND completed_at IS NULL`,
		cartID, accountID, guestToken,
	)
	if err != nil {
		r.logger.Error().Err(err).
			Str("cart_id", cartID.String()).
			Str("owner", owner.String()).
			Msg("failed to reassign cart")
		return fmt.Errorf("failed to reassign cart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to reassign cart: cart %s is not open", cartID)
	}
	return nil
}

func (r *cartRepository) Delete(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to delete cart")
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (r *cartRepository) touch(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}
	return nil
}

func (r *cartRepository) getCart(ctx context.Context, query string, arg any) (*model.Cart, error) {
	cart, err := scanCart(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}

	items, err := r.itemsOf(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return cart, nil
}

func (r *cartRepository) itemsOf(ctx context.Context, cartID uuid.UUID) ([]model.CartItem, error) {
	query := `SELECT ` + cartItemColumns + ` FROM cart_items WHERE cart_id = $1 ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to query cart items")
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	items := []model.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart item row")
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

func scanCart(row pgx.Row) (*model.Cart, error) {
	var (
		cart       model.Cart
		accountID  *string
		guestToken *string
	)
	if err := row.Scan(&cart.ID, &accountID, &guestToken, &cart.CompletedAt, &cart.CreatedAt, &cart.UpdatedAt); err != nil {
		return nil, err
	}

	owner, err := model.OwnerFromColumns(accountID, guestToken)
	if err != nil {
		return nil, err
	}
	cart.Owner = owner

	return &cart, nil
}

func scanCartItem(row pgx.Row) (*model.CartItem, error) {
	var item model.CartItem
	err := row.Scan(&item.ID, &item.CartID, &item.ProductID, &item.VariantID, &item.Title,
		&item.ProductName, &item.VariantName, &item.SKU, &item.UnitPrice, &item.Quantity, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
