package integration

import (
	"context"
	"testing"
	"time"

	"liftcart/internal/config"
	"liftcart/internal/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container, a connection pool and
// the full schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	logger := zerolog.Nop()
	pool, err := database.NewPoolFromURL(ctx, connStr, config.DatabaseConfig{
		MaxConnections:  10,
		MinConnections:  2,
		MaxConnLifetime: 300,
	}, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(pool, logger); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// Catalog holds the seeded product and variant IDs.
type Catalog struct {
	DoorOperator  uuid.UUID // 150.00, 10 in stock
	LandingButton uuid.UUID // 50.00, 1 in stock
	Rope          uuid.UUID // product with variants
	Rope8mm       uuid.UUID // 120.00, 4 in stock
	Rope10mm      uuid.UUID // 180.00, 0 in stock
}

// SeedCatalog inserts the test catalogue.
func SeedCatalog(t *testing.T, pool *pgxpool.Pool) Catalog {
	t.Helper()

	ctx := context.Background()
	c := Catalog{
		DoorOperator:  uuid.New(),
		LandingButton: uuid.New(),
		Rope:          uuid.New(),
		Rope8mm:       uuid.New(),
		Rope10mm:      uuid.New(),
	}

	products := []struct {
		id    uuid.UUID
		name  string
		sku   string
		price string
		stock int
	}{
		{c.DoorOperator, "Door Operator", "DO-100", "150.00", 10},
		{c.LandingButton, "Landing Button", "LB-200", "50.00", 1},
		{c.Rope, "Hoist Rope", "HR-300", "100.00", 0},
	}
	for _, p := range products {
		_, err := pool.Exec(ctx,
			`INSERT INTO products (id, name, sku, price, stock_quantity) VALUES ($1, $2, $3, $4, $5)`,
			p.id, p.name, p.sku, decimal.RequireFromString(p.price), p.stock,
		)
		if err != nil {
			t.Fatalf("failed to seed product %s: %v", p.sku, err)
		}
	}

	variants := []struct {
		id    uuid.UUID
		name  string
		sku   string
		price string
		stock int
	}{
		{c.Rope8mm, "8mm", "HR-300-8", "120.00", 4},
		{c.Rope10mm, "10mm", "HR-300-10", "180.00", 0},
	}
	for _, v := range variants {
		_, err := pool.Exec(ctx,
			`INSERT INTO product_variants (id, product_id, name, sku, price, stock_quantity) VALUES ($1, $2, $3, $4, $5, $6)`,
			v.id, c.Rope, v.name, v.sku, decimal.RequireFromString(v.price), v.stock,
		)
		if err != nil {
			t.Fatalf("failed to seed variant %s: %v", v.sku, err)
		}
	}

	return c
}

// CleanupDB removes all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		TRUNCATE outbox_events, order_items, orders, cart_items, carts, product_variants, products;
		ALTER SEQUENCE order_number_seq RESTART WITH 1;
	`)
	if err != nil {
		t.Fatalf("failed to clean tables: %v", err)
	}
}

// StockOf returns the current stock of a product or, if variantID is set, a variant.
func StockOf(t *testing.T, pool *pgxpool.Pool, productID uuid.UUID, variantID *uuid.UUID) int {
	t.Helper()

	var stock int
	var err error
	if variantID != nil {
		err = pool.QueryRow(context.Background(), `SELECT stock_quantity FROM product_variants WHERE id = $1`, *variantID).Scan(&stock)
	} else {
		err = pool.QueryRow(context.Background(), `SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&stock)
	}
	if err != nil {
		t.Fatalf("failed to read stock: %v", err)
	}
	return stock
}
