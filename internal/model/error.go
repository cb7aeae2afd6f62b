package model

import (
	"fmt"
	"strings"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON           = "INVALID_JSON"
	ErrCodeMissingField          = "MISSING_FIELD"
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeCartEmpty             = "CART_EMPTY"
	ErrCodeCartNotFound          = "CART_NOT_FOUND"
	ErrCodeCartItemNotFound      = "CART_ITEM_NOT_FOUND"
	ErrCodeProductNotFound       = "PRODUCT_NOT_FOUND"
	ErrCodeInvalidQuantity       = "INVALID_QUANTITY"
	ErrCodeInsufficientInventory = "INSUFFICIENT_INVENTORY"
	ErrCodeInvalidAddress        = "INVALID_ADDRESS"
	ErrCodeInvalidContact        = "INVALID_CONTACT"
	ErrCodeInvalidPaymentMethod  = "INVALID_PAYMENT_METHOD"
	ErrCodeInvalidCoupon         = "INVALID_COUPON"
	ErrCodeInvalidDiscount       = "INVALID_DISCOUNT"
	ErrCodeOrderNotFound         = "ORDER_NOT_FOUND"
	ErrCodeNotGuestCart          = "NOT_GUEST_CART"
	ErrCodeCartChanged           = "CART_CHANGED"
	ErrCodeCartCompleted         = "CART_COMPLETED"
	ErrCodePaymentUnavailable    = "PAYMENT_UNAVAILABLE"
	ErrCodeUnauthorised          = "UNAUTHORIZED"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeInternalError         = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrCartEmpty            = NewDomainError(ErrCodeCartEmpty, "cart is empty")
	ErrCartNotFound         = NewDomainError(ErrCodeCartNotFound, "cart not found")
	ErrCartItemNotFound     = NewDomainError(ErrCodeCartItemNotFound, "cart item not found")
	ErrProductNotFound      = NewDomainError(ErrCodeProductNotFound, "product not found")
	ErrInvalidQuantity      = NewDomainError(ErrCodeInvalidQuantity, "quantity must be greater than zero")
	ErrInvalidAddress       = NewDomainError(ErrCodeInvalidAddress, "shipping address is incomplete")
	ErrInvalidContact       = NewDomainError(ErrCodeInvalidContact, "contact name and email are required for guest checkout")
	ErrInvalidPaymentMethod = NewDomainError(ErrCodeInvalidPaymentMethod, "unsupported payment method")
	ErrInvalidCoupon        = NewDomainError(ErrCodeInvalidCoupon, "coupon code is not valid")
	ErrInvalidDiscount      = NewDomainError(ErrCodeInvalidDiscount, "discount cannot be negative")
	ErrOrderNotFound        = NewDomainError(ErrCodeOrderNotFound, "order not found")
	ErrNotGuestCart         = NewDomainError(ErrCodeNotGuestCart, "cart does not belong to a guest")
	ErrCartChanged          = NewDomainError(ErrCodeCartChanged, "cart changed during checkout, please review it and try again")
	ErrCartCompleted        = NewDomainError(ErrCodeCartCompleted, "cart has already been checked out")
	ErrPaymentUnavailable   = NewDomainError(ErrCodePaymentUnavailable, "payment could not be initiated, please try again")
	ErrUnauthorised         = NewDomainError(ErrCodeUnauthorised, "authentication required")
	ErrForbidden            = NewDomainError(ErrCodeForbidden, "cart does not belong to the caller")
)

// InventoryError reports every cart line whose requested quantity exceeds stock.
type InventoryError struct {
	Issues []InventoryIssue
}

func (e *InventoryError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = fmt.Sprintf("%s: requested %d, available %d", issue.Title, issue.Requested, issue.Available)
	}
	return strings.Join(parts, "; ")
}

// Code returns the API error code for inventory failures.
func (e *InventoryError) Code() string {
	return ErrCodeInsufficientInventory
}
