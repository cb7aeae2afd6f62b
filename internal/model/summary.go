package model

import "github.com/shopspring/decimal"

// Totals is the monetary breakdown of a cart or order, rounded to two places.
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
}

// CartSummary is the priced view of a cart returned to the storefront.
type CartSummary struct {
	Totals
	CartID    string        `json:"cartId"`
	Currency  string        `json:"currency"`
	ItemCount int           `json:"itemCount"`
	Items     []SummaryItem `json:"items"`
}

// SummaryItem is a priced cart line.
type SummaryItem struct {
	ItemID    string          `json:"itemId"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}
