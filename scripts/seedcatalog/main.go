// Command seedcatalog migrates the database and loads a sample elevator
// parts catalogue. Database settings come from the same DB_* variables as
// the API server.
package main

import (
	"context"
	"fmt"
	"os"

	"liftcart/internal/config"
	"liftcart/internal/database"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type variant struct {
	name  string
	sku   string
	price string
	stock int
}

type product struct {
	name     string
	sku      string
	price    string
	stock    int
	variants []variant
}

var catalogue = []product{
	{name: "Door Operator", sku: "DO-100", price: "12500.00", stock: 12},
	{name: "Landing Call Button", sku: "LB-200", price: "450.00", stock: 200},
	{name: "Car Operating Panel", sku: "COP-300", price: "18500.00", stock: 4},
	{name: "Overspeed Governor", sku: "OG-400", price: "32000.00", stock: 3},
	{
		name: "Hoist Rope", sku: "HR-500", price: "95.00", stock: 0,
		variants: []variant{
			{name: "8mm per metre", sku: "HR-500-8", price: "95.00", stock: 1500},
			{name: "10mm per metre", sku: "HR-500-10", price: "120.00", stock: 900},
			{name: "13mm per metre", sku: "HR-500-13", price: "165.00", stock: 0},
		},
	},
	{
		name: "Guide Shoe Insert", sku: "GS-600", price: "380.00", stock: 0,
		variants: []variant{
			{name: "Car side", sku: "GS-600-C", price: "380.00", stock: 60},
			{name: "Counterweight side", sku: "GS-600-W", price: "340.00", stock: 45},
		},
	},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger)

	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(pool, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	batch := &pgx.Batch{}
	rows := 0
	for _, p := range catalogue {
		batch.Queue(
			`INSERT INTO products (name, sku, price, stock_quantity) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (sku) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, stock_quantity = EXCLUDED.stock_quantity`,
			p.name, p.sku, decimal.RequireFromString(p.price), p.stock,
		)
		rows++
		for _, v := range p.variants {
			batch.Queue(
				`INSERT INTO product_variants (product_id, name, sku, price, stock_quantity)
				 SELECT id, $2, $3, $4, $5 FROM products WHERE sku = $1
				 ON CONFLICT (sku) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, stock_quantity = EXCLUDED.stock_quantity`,
				p.sku, v.name, v.sku, decimal.RequireFromString(v.price), v.stock,
			)
			rows++
		}
	}

	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed catalogue: %w", err)
	}

	logger.Info().Int("rows", rows).Msg("catalogue seeded")
	return nil
}
