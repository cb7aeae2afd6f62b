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

// CartHandler handles cart, summary, inventory and migration requests for
// the calling identity's open cart.
type CartHandler struct {
	carts     service.CartService
	summaries service.SummaryService
	inventory service.InventoryService
	logger    zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(
	carts service.CartService,
	summaries service.SummaryService,
	inventory service.InventoryService,
	logger zerolog.Logger,
) *CartHandler {
	return &CartHandler{
		carts:     carts,
		summaries: summaries,
		inventory: inventory,
		logger:    logger.With().Str("handler", "cart").Logger(),
	}
}

// Get handles GET /api/cart. Callers without an open cart get an empty one.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner := middleware.IdentityFromContext(r.Context()).Owner()

	cart, err := h.carts.GetOpenCart(r.Context(), owner)
	if err != nil {
		writeServiceError(w, err, "failed to retrieve cart", h.logger)
		return
	}
	if cart == nil {
		cart = emptyCart(owner)
	}

	writeSuccess(w, http.StatusOK, cart)
}

// AddItem handles POST /api/cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req model.AddCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err, "invalid request", h.logger)
		return
	}

	owner := middleware.IdentityFromContext(r.Context()).Owner()
	cart, err := h.carts.AddItem(r.Context(), owner, req)
	if err != nil {
		writeServiceError(w, err, "failed to add item to cart", h.logger)
		return
	}

	writeSuccess(w, http.StatusCreated, cart)
}

// UpdateItem handles PATCH /api/cart/items/{itemID}.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.itemID(w, r)
	if !ok {
		return
	}

	var req model.UpdateCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err, "invalid request", h.logger)
		return
	}

	owner := middleware.IdentityFromContext(r.Context()).Owner()
	cart, err := h.carts.UpdateItem(r.Context(), owner, itemID, req.Quantity)
	if err != nil {
		writeServiceError(w, err, "failed to update cart item", h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, cart)
}

// RemoveItem handles DELETE /api/cart/items/{itemID}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.itemID(w, r)
	if !ok {
		return
	}

	owner := middleware.IdentityFromContext(r.Context()).Owner()
	cart, err := h.carts.RemoveItem(r.Context(), owner, itemID)
	if err != nil {
		writeServiceError(w, err, "failed to remove cart item", h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, cart)
}

// Clear handles DELETE /api/cart. Clearing when there is no open cart succeeds.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	owner := middleware.IdentityFromContext(r.Context()).Owner()

	cart, err := h.carts.GetOpenCart(r.Context(), owner)
	if err != nil {
		writeServiceError(w, err, "failed to clear cart", h.logger)
		return
	}
	if cart != nil {
		if err := h.carts.ClearCart(r.Context(), cart.ID); err != nil {
			writeServiceError(w, err, "failed to clear cart", h.logger)
			return
		}
	}

	writeSuccess(w, http.StatusOK, emptyCart(owner))
}

// Summary handles GET /api/cart/summary.
func (h *CartHandler) Summary(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.openCart(w, r)
	if !ok {
		return
	}

	summary, err := h.summaries.GetCartSummary(r.Context(), cart.ID)
	if err != nil {
		writeServiceError(w, err, "failed to calculate cart summary", h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, summary)
}

// Inventory handles GET /api/cart/inventory.
func (h *CartHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.openCart(w, r)
	if !ok {
		return
	}

	report, err := h.inventory.ValidateCartInventory(r.Context(), cart.ID)
	if err != nil {
		writeServiceError(w, err, "failed to validate cart inventory", h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, report)
}

// Migrate handles POST /api/cart/migrate. The caller must be signed in and
// still present the guest token that owns the guest cart.
func (h *CartHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	if !id.Authenticated() {
		writeServiceError(w, model.ErrUnauthorised, "", h.logger)
		return
	}
	if id.GuestToken == "" {
		writeError(w, http.StatusBadRequest, middleware.GuestTokenHeader+" header is required", model.ErrCodeMissingField, h.logger)
		return
	}

	var req model.MigrateCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err, "invalid request", h.logger)
		return
	}

	cart, err := h.carts.MigrateGuestCart(r.Context(), req.GuestCartID, id.Guest(), id.Owner())
	if err != nil {
		writeServiceError(w, err, "failed to migrate cart", h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, cart)
}

func (h *CartHandler) openCart(w http.ResponseWriter, r *http.Request) (*model.Cart, bool) {
	owner := middleware.IdentityFromContext(r.Context()).Owner()

	cart, err := h.carts.GetOpenCart(r.Context(), owner)
	if err != nil {
		writeServiceError(w, err, "failed to retrieve cart", h.logger)
		return nil, false
	}
	if cart == nil {
		writeServiceError(w, model.ErrCartNotFound, "", h.logger)
		return nil, false
	}
	return cart, true
}

func (h *CartHandler) itemID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cart item ID format", model.ErrCodeValidation, h.logger)
		return uuid.Nil, false
	}
	return itemID, true
}

func emptyCart(owner model.Owner) *model.Cart {
	return &model.Cart{Owner: owner, Items: []model.CartItem{}}
}
