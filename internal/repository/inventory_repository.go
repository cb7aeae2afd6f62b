package repository

import (
	"context"
	"fmt"

	"liftcart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// inventoryRepository implements the InventoryRepository interface using PostgreSQL.
type inventoryRepository struct {
	db     DBTX
	logger zerolog.Logger
}

// NewInventoryRepository creates a new PostgreSQL-backed inventory repository.
func NewInventoryRepository(db DBTX, logger zerolog.Logger) InventoryRepository {
	return &inventoryRepository{
		db:     db,
		logger: logger.With().Str("repository", "inventory").Logger(),
	}
}

func (r *inventoryRepository) WithTx(tx pgx.Tx) InventoryRepository {
	return &inventoryRepository{db: tx, logger: r.logger}
}

// GetStockLevels returns current stock for the given records in at most two queries.
func (r *inventoryRepository) GetStockLevels(ctx context.Context, keys []model.StockKey) (model.StockLevels, error) {
	levels := model.StockLevels{
		Variants: make(map[uuid.UUID]int),
		Products: make(map[uuid.UUID]int),
	}

	var variantIDs, productIDs []string
	for _, k := range keys {
		if k.VariantID != nil {
			variantIDs = append(variantIDs, k.VariantID.String())
		} else {
			productIDs = append(productIDs, k.ProductID.String())
		}
	}

	if len(variantIDs) > 0 {
		if err := r.loadStock(ctx, `SELECT id, stock_quantity FROM product_variants WHERE id = ANY($1::uuid[])`, variantIDs, levels.Variants); err != nil {
			return levels, err
		}
	}
	if len(productIDs) > 0 {
		if err := r.loadStock(ctx, `SELECT id, stock_quantity FROM products WHERE id = ANY($1::uuid[])`, productIDs, levels.Products); err != nil {
			return levels, err
		}
	}

	return levels, nil
}

func (r *inventoryRepository) loadStock(ctx context.Context, query string, ids []string, into map[uuid.UUID]int) error {
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query stock levels")
		return fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    uuid.UUID
			stock int
		)
		if err := rows.Scan(&id, &stock); err != nil {
			return fmt.Errorf("failed to scan stock level: %w", err)
		}
		into[id] = stock
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating stock levels: %w", err)
	}
	return nil
}

// DecrementStock subtracts quantity only when enough stock remains, so two
// concurrent checkouts can never drive stock below zero.
func (r *inventoryRepository) DecrementStock(ctx context.Context, key model.StockKey, quantity int) (bool, error) {
	var (
		query string
		id    uuid.UUID
	)
	if key.VariantID != nil {
		query = `UPDATE product_variants SET stock_quantity = stock_quantity - $2 WHERE id = $1 AND stock_quantity >= $2`
		id = *key.VariantID
	} else {
		query = `UPDATE products SET stock_quantity = stock_quantity - $2 WHERE id = $1 AND stock_quantity >= $2`
		id = key.ProductID
	}

	tag, err := r.db.Exec(ctx, query, id, quantity)
	if err != nil {
		r.logger.Error().Err(err).Str("stock_id", id.String()).Int("quantity", quantity).Msg("failed to decrement stock")
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
