package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outbox event types emitted by checkout.
const (
	EventOrderConfirmationEmail = "order.confirmation_email"
	EventOrderNotification      = "order.notification"
)

// OutboxEvent is a side effect recorded in the same transaction as the order
// and delivered later by the outbox dispatcher.
type OutboxEvent struct {
	ID          uuid.UUID
	AggregateID uuid.UUID
	EventType   string
	Payload     []byte
	Attempts    int
	LastError   *string
	AvailableAt time.Time
	CreatedAt   time.Time
}

// OrderConfirmation is the payload of a confirmation email.
type OrderConfirmation struct {
	Email           string                  `json:"email"`
	CustomerName    string                  `json:"customerName"`
	OrderNumber     string                  `json:"orderNumber"`
	Items           []OrderConfirmationItem `json:"items"`
	Total           decimal.Decimal         `json:"total"`
	Currency        string                  `json:"currency"`
	ShippingAddress Address                 `json:"shippingAddress"`
}

// OrderConfirmationItem is a line in a confirmation email.
type OrderConfirmationItem struct {
	Name      string          `json:"name"`
	Variant   string          `json:"variant,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
}

// OrderNotification is the payload of an in-app order notification.
type OrderNotification struct {
	AccountID   string      `json:"accountId"`
	OrderID     uuid.UUID   `json:"orderId"`
	OrderNumber string      `json:"orderNumber"`
	Status      OrderStatus `json:"status"`
}
