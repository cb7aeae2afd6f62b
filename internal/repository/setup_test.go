package repository

import (
	"context"
	"testing"
	"time"

	"liftcart/internal/database"
	"liftcart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a migrated PostgreSQL testcontainer and returns a connection pool.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, database.Migrate(pool, zerolog.Nop()))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// seedProduct inserts a product and returns it.
func seedProduct(t *testing.T, pool *pgxpool.Pool, name, sku string, price string, stock int) model.Product {
	t.Helper()

	p := model.Product{
		ID:            uuid.New(),
		Name:          name,
		SKU:           sku,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	}
	_, err := pool.Exec(context.Background(),
		`INSERT INTO products (id, name, sku, price, stock_quantity) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Name, p.SKU, p.Price, p.StockQuantity,
	)
	require.NoError(t, err)
	return p
}

// seedVariant inserts a variant of productID and returns it.
func seedVariant(t *testing.T, pool *pgxpool.Pool, productID uuid.UUID, name, sku string, price string, stock int) model.Variant {
	t.Helper()

	v := model.Variant{
		ID:            uuid.New(),
		ProductID:     productID,
		Name:          name,
		SKU:           sku,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	}
	_, err := pool.Exec(context.Background(),
		`INSERT INTO product_variants (id, product_id, name, sku, price, stock_quantity) VALUES ($1, $2, $3, $4, $5, $6)`,
		v.ID, v.ProductID, v.Name, v.SKU, v.Price, v.StockQuantity,
	)
	require.NoError(t, err)
	return v
}
