package model

import (
	"bytes"

	"github.com/google/uuid"
)

// InventoryIssue describes one cart line that requests more than is in stock.
type InventoryIssue struct {
	ItemID    uuid.UUID `json:"itemId"`
	Title     string    `json:"title"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// InventoryReport is the outcome of checking a cart against current stock.
type InventoryReport struct {
	Valid  bool             `json:"valid"`
	Issues []InventoryIssue `json:"issues"`
}

// StockKey identifies a stock-carrying record: a variant when set, else the product.
type StockKey struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
}

// Compare orders keys the way stock rows are locked during checkout:
// product rows before variant rows, then by id. It returns -1, 0 or +1.
func (k StockKey) Compare(other StockKey) int {
	switch {
	case k.VariantID == nil && other.VariantID != nil:
		return -1
	case k.VariantID != nil && other.VariantID == nil:
		return 1
	case k.VariantID != nil:
		return bytes.Compare(k.VariantID[:], other.VariantID[:])
	default:
		return bytes.Compare(k.ProductID[:], other.ProductID[:])
	}
}

// StockLevels holds available quantities for variants and products.
type StockLevels struct {
	Variants map[uuid.UUID]int
	Products map[uuid.UUID]int
}

// Available resolves stock for an item, variant first then product.
// Unknown records have zero availability.
func (s StockLevels) Available(key StockKey) int {
	if key.VariantID != nil {
		return s.Variants[*key.VariantID]
	}
	return s.Products[key.ProductID]
}
