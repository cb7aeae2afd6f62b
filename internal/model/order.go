package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus is tracked independently of OrderStatus.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// PaymentMethod is how the customer intends to pay.
type PaymentMethod string

const (
	PaymentMethodCOD      PaymentMethod = "cod"
	PaymentMethodRazorpay PaymentMethod = "razorpay"
)

// Valid reports whether the payment method is supported.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodRazorpay
}

// RequiresGateway reports whether checkout must open a payment gateway order.
func (m PaymentMethod) RequiresGateway() bool {
	return m == PaymentMethodRazorpay
}

// Address is copied onto the order at checkout time.
type Address struct {
	Name       string `json:"name" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

// Complete reports whether every mandatory address field is filled in.
func (a *Address) Complete() bool {
	if a == nil {
		return false
	}
	for _, f := range []string{a.Name, a.Phone, a.Line1, a.City, a.State, a.PostalCode, a.Country} {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}

// Contact is the customer's reachable identity for confirmations.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty"`
}

// Order is the immutable, priced record of a completed checkout.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	CartID          uuid.UUID       `json:"cartId"`
	Owner           Owner           `json:"owner"`
	Contact         Contact         `json:"contact"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	ShippingCost    decimal.Decimal `json:"shippingCost"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	CouponCode      *string         `json:"couponCode,omitempty"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	OrderStatus     OrderStatus     `json:"orderStatus"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	RazorpayOrderID *string         `json:"razorpayOrderId,omitempty"`
	ShippingAddress Address         `json:"shippingAddress"`
	BillingAddress  Address         `json:"billingAddress"`
	Notes           *string         `json:"notes,omitempty"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// OrderItem is a snapshot of a purchased cart line.
type OrderItem struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"orderId"`
	ProductID   uuid.UUID       `json:"productId"`
	VariantID   *uuid.UUID      `json:"variantId,omitempty"`
	ProductName string          `json:"productName"`
	VariantName *string         `json:"variantName,omitempty"`
	SKU         string          `json:"sku,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// CreateOrderInput is the checkout request after identity has been resolved.
type CreateOrderInput struct {
	CartID          uuid.UUID
	Owner           Owner
	Contact         Contact
	ShippingAddress *Address
	BillingAddress  *Address
	PaymentMethod   PaymentMethod
	Notes           *string
	CouponCode      *string
}

// CheckoutResult is returned by a successful checkout.
type CheckoutResult struct {
	Order           *Order  `json:"order"`
	RazorpayOrderID *string `json:"razorpayOrderId,omitempty"`
}

// CheckoutRequest represents the request payload for creating an order from a cart.
type CheckoutRequest struct {
	CartID          uuid.UUID     `json:"cartId" validate:"required"`
	ShippingAddress *Address      `json:"shippingAddress" validate:"required"`
	BillingAddress  *Address      `json:"billingAddress,omitempty" validate:"omitempty"`
	PaymentMethod   PaymentMethod `json:"paymentMethod" validate:"required,oneof=cod razorpay"`
	Notes           *string       `json:"notes,omitempty" validate:"omitempty,max=1000"`
	CouponCode      *string       `json:"couponCode,omitempty"`
	Contact         *Contact      `json:"contact,omitempty"`
}
