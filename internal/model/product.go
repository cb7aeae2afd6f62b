package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents an elevator part in the catalogue.
type Product struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	SKU           string          `json:"sku" db:"sku"`
	Price         decimal.Decimal `json:"price" db:"price"`
	StockQuantity int             `json:"stockQuantity" db:"stock_quantity"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	Variants      []Variant       `json:"variants,omitempty"`
}

// Variant is a purchasable configuration of a product with its own price and stock.
type Variant struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	ProductID     uuid.UUID       `json:"productId" db:"product_id"`
	Name          string          `json:"name" db:"name"`
	SKU           string          `json:"sku" db:"sku"`
	Price         decimal.Decimal `json:"price" db:"price"`
	StockQuantity int             `json:"stockQuantity" db:"stock_quantity"`
}
