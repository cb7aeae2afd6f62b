package handler

import (
	"net/http"

	"liftcart/internal/middleware"
	"liftcart/internal/model"
	"liftcart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles checkout and order-related HTTP requests.
type OrderHandler struct {
	checkout service.CheckoutService
	orders   service.OrderService
	logger   zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(checkout service.CheckoutService, orders service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		checkout: checkout,
		orders:   orders,
		logger:   logger.With().Str("handler", "order").Logger(),
	}
}

// Checkout handles POST /api/checkout requests.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req model.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err, "invalid request", h.logger)
		return
	}

	id := middleware.IdentityFromContext(r.Context())
	result, err := h.checkout.CreateOrderFromCart(r.Context(), checkoutInput(id, &req))
	if err != nil {
		writeServiceError(w, err, "failed to create order", h.logger)
		return
	}

	writeSuccess(w, http.StatusCreated, result)
}

// List handles GET /api/orders requests for the signed-in account.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), model.ErrCodeValidation, h.logger)
		return
	}

	id := middleware.IdentityFromContext(r.Context())
	orders, err := h.orders.ListForAccount(r.Context(), id.AccountID, limit, offset)
	if err != nil {
		writeServiceError(w, err, "failed to retrieve orders", h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, orders)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID format", model.ErrCodeValidation, h.logger)
		return
	}

	owner := middleware.IdentityFromContext(r.Context()).Owner()
	order, err := h.orders.GetByID(r.Context(), orderID, owner)
	if err != nil {
		writeServiceError(w, err, "failed to retrieve order", h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, order)
}

// checkoutInput resolves the request against the caller's identity. Signed-in
// callers fall back to the email on their token.
func checkoutInput(id middleware.Identity, req *model.CheckoutRequest) model.CreateOrderInput {
	var contact model.Contact
	if req.Contact != nil {
		contact = *req.Contact
	}
	if contact.Email == "" && id.Authenticated() {
		contact.Email = id.Email
	}

	return model.CreateOrderInput{
		CartID:          req.CartID,
		Owner:           id.Owner(),
		Contact:         contact,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		CouponCode:      req.CouponCode,
	}
}
