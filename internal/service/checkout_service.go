package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"liftcart/internal/cache"
	"liftcart/internal/coupon"
	"liftcart/internal/metrics"
	"liftcart/internal/model"
	"liftcart/internal/payment"
	"liftcart/internal/pricing"
	"liftcart/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Checkout failure reasons recorded in metrics.
const (
	reasonValidation = "validation"
	reasonCartEmpty  = "cart_empty"
	reasonInventory  = "inventory"
	reasonCoupon     = "coupon"
	reasonPayment    = "payment"
	reasonConflict   = "conflict"
	reasonInternal   = "internal"
)

// CheckoutDeps are the collaborators of the checkout service.
type CheckoutDeps struct {
	Carts       repository.CartRepository
	Inventory   repository.InventoryRepository
	Orders      repository.OrderRepository
	Outbox      repository.OutboxRepository
	Transactor  repository.Transactor
	Calculator  *pricing.Calculator
	Coupons     coupon.Resolver
	Gateway     payment.Gateway
	Cache       cache.SummaryCache
	Metrics     *metrics.Metrics
	Currency    string
	OrderPrefix string
	// Now defaults to time.Now.
	Now func() time.Time
}

// checkoutService implements CheckoutService.
type checkoutService struct {
	deps   CheckoutDeps
	logger zerolog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(deps CheckoutDeps, logger zerolog.Logger) CheckoutService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &checkoutService{
		deps:   deps,
		logger: logger.With().Str("service", "checkout").Logger(),
	}
}

// CreateOrderFromCart validates the cart, prices it and then, in a single
// transaction, records the order and its items, takes the stock, completes
// the cart and queues the confirmation side effects. Nothing is persisted
// unless every step succeeds.
func (s *checkoutService) CreateOrderFromCart(ctx context.Context, input model.CreateOrderInput) (result *model.CheckoutResult, err error) {
	log := s.logger.With().
		Str("cart_id", input.CartID.String()).
		Str("owner", input.Owner.String()).
		Logger()

	defer func() {
		if err != nil {
			reason := failureReason(err)
			s.deps.Metrics.CheckoutFailed(reason)
			if reason == reasonInternal {
				log.Error().Err(err).Msg("checkout failed")
			} else {
				log.Info().Err(err).Str("reason", reason).Msg("checkout rejected")
			}
		}
	}()

	shipping, billing, contact, err := s.validateInput(input)
	if err != nil {
		return nil, err
	}

	// Load cart
	cart, err := s.deps.Carts.GetByID(ctx, input.CartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart == nil || cart.IsCompleted() || len(cart.Items) == 0 {
		return nil, model.ErrCartEmpty
	}
	if cart.Owner != input.Owner {
		return nil, model.ErrForbidden
	}

	// Advisory inventory check for an itemised message before any writes
	issues, err := findStockIssues(ctx, s.deps.Inventory, cart.Items)
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		return nil, &model.InventoryError{Issues: issues}
	}

	// Totals
	discount, couponCode, err := s.resolveCoupon(ctx, input.CouponCode, cart.Items)
	if err != nil {
		return nil, err
	}
	totals, err := s.deps.Calculator.Calculate(cart.Items, discount)
	if err != nil {
		return nil, err
	}

	// Order number
	seq, err := s.deps.Orders.NextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to assign order number: %w", err)
	}
	orderNumber := FormatOrderNumber(s.deps.OrderPrefix, seq)

	var razorpayOrderID *string
	if input.PaymentMethod.RequiresGateway() {
		id, gwErr := s.deps.Gateway.CreateOrder(ctx, payment.OrderRequest{
			AmountMinor: pricing.ToMinorUnits(totals.Total),
			Currency:    s.deps.Currency,
			Receipt:     orderNumber,
			Notes:       map[string]string{"cart_id": cart.ID.String()},
		})
		if gwErr != nil {
			log.Error().Err(gwErr).Str("order_number", orderNumber).Msg("payment gateway order failed")
			return nil, model.ErrPaymentUnavailable
		}
		razorpayOrderID = &id
	}

	now := s.deps.Now().UTC()
	order := &model.Order{
		ID:              uuid.New(),
		OrderNumber:     orderNumber,
		CartID:          cart.ID,
		Owner:           input.Owner,
		Contact:         contact,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		ShippingCost:    totals.ShippingCost,
		Discount:        totals.Discount,
		Total:           totals.Total,
		Currency:        s.deps.Currency,
		CouponCode:      couponCode,
		PaymentMethod:   input.PaymentMethod,
		OrderStatus:     model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		RazorpayOrderID: razorpayOrderID,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		Notes:           input.Notes,
		Items:           buildOrderItems(cart.Items),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}

	if err = s.persist(ctx, cart, order); err != nil {
		if razorpayOrderID != nil {
			log.Warn().
				Err(err).
				Str("razorpay_order_id", *razorpayOrderID).
				Str("order_number", orderNumber).
				Msg("payment gateway order left without a local order")
		}
		return nil, err
	}

	s.deps.Metrics.OrdersCreated.Inc()
	if cacheErr := s.deps.Cache.Invalidate(ctx, cart.ID); cacheErr != nil {
		log.Warn().Err(cacheErr).Msg("failed to invalidate cart summary cache")
	}

	log.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Str("total", order.Total.StringFixed(2)).
		Str("payment_method", string(order.PaymentMethod)).
		Msg("order created")

	// Fetch the stored order; the order exists either way
	stored, fetchErr := s.deps.Orders.GetByID(ctx, order.ID)
	if fetchErr != nil || stored == nil {
		log.Warn().Err(fetchErr).Str("order_id", order.ID.String()).Msg("failed to reload created order")
		stored = order
	}

	return &model.CheckoutResult{Order: stored, RazorpayOrderID: razorpayOrderID}, nil
}

// persist writes the order, its items, the stock decrements, the cart
// completion and the outbox events in one transaction.
func (s *checkoutService) persist(ctx context.Context, priced *model.Cart, order *model.Order) (err error) {
	tx, err := s.deps.Transactor.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.logger.Error().Err(rbErr).Str("order_id", order.ID.String()).Msg("failed to rollback transaction")
			}
		}
	}()

	carts := s.deps.Carts.WithTx(tx)
	orders := s.deps.Orders.WithTx(tx)
	inventory := s.deps.Inventory.WithTx(tx)
	outbox := s.deps.Outbox.WithTx(tx)

	// The row lock serialises concurrent checkouts of the same cart
	locked, err := carts.GetByIDForUpdate(ctx, priced.ID)
	if err != nil {
		return fmt.Errorf("failed to lock cart: %w", err)
	}
	if locked == nil || locked.IsCompleted() || len(locked.Items) == 0 {
		return model.ErrCartEmpty
	}
	if !sameLines(priced.Items, locked.Items) {
		return model.ErrCartChanged
	}

	if err = orders.CreateOrder(ctx, order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	if err = orders.CreateOrderItems(ctx, order.Items); err != nil {
		return fmt.Errorf("failed to create order items: %w", err)
	}

	// Lock stock rows in a fixed order so concurrent checkouts cannot deadlock
	var short []model.CartItem
	for _, item := range lockOrder(locked.Items) {
		ok, decErr := inventory.DecrementStock(ctx, stockKey(item), item.Quantity)
		if decErr != nil {
			err = fmt.Errorf("failed to reserve stock: %w", decErr)
			return err
		}
		if !ok {
			short = append(short, item)
		}
	}
	if len(short) > 0 {
		err = s.shortageError(ctx, inventory, short)
		return err
	}

	if err = carts.ClearItems(ctx, locked.ID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	if err = carts.MarkCompleted(ctx, locked.ID); err != nil {
		return fmt.Errorf("failed to complete cart: %w", err)
	}

	events, err := sideEffects(order)
	if err != nil {
		return err
	}
	if err = outbox.Enqueue(ctx, events...); err != nil {
		return fmt.Errorf("failed to queue order side effects: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	return nil
}

// shortageError reports lines that lost a stock race after the advisory check.
func (s *checkoutService) shortageError(ctx context.Context, inventory repository.InventoryRepository, short []model.CartItem) error {
	levels, err := inventory.GetStockLevels(ctx, stockKeys(short))
	if err != nil {
		return fmt.Errorf("failed to load stock levels: %w", err)
	}

	issues := make([]model.InventoryIssue, len(short))
	for i, item := range short {
		issues[i] = model.InventoryIssue{
			ItemID:    item.ID,
			Title:     item.Title,
			Requested: item.Quantity,
			Available: levels.Available(stockKey(item)),
		}
	}
	return &model.InventoryError{Issues: issues}
}

func (s *checkoutService) validateInput(input model.CreateOrderInput) (shipping, billing model.Address, contact model.Contact, err error) {
	if input.Owner.IsZero() {
		return shipping, billing, contact, model.ErrUnauthorised
	}
	if !input.PaymentMethod.Valid() {
		return shipping, billing, contact, model.ErrInvalidPaymentMethod
	}
	if !input.ShippingAddress.Complete() {
		return shipping, billing, contact, model.ErrInvalidAddress
	}
	shipping = *input.ShippingAddress

	billing = shipping
	if input.BillingAddress != nil {
		if !input.BillingAddress.Complete() {
			return shipping, billing, contact, model.NewDomainError(model.ErrCodeInvalidAddress, "billing address is incomplete")
		}
		billing = *input.BillingAddress
	}

	contact = model.Contact{
		Name:  strings.TrimSpace(input.Contact.Name),
		Email: strings.TrimSpace(input.Contact.Email),
		Phone: strings.TrimSpace(input.Contact.Phone),
	}
	if input.Owner.IsGuest() && (contact.Name == "" || contact.Email == "") {
		return shipping, billing, contact, model.ErrInvalidContact
	}
	if contact.Name == "" {
		contact.Name = shipping.Name
	}
	if contact.Phone == "" {
		contact.Phone = shipping.Phone
	}

	return shipping, billing, contact, nil
}

func (s *checkoutService) resolveCoupon(ctx context.Context, code *string, items []model.CartItem) (decimal.Decimal, *string, error) {
	if code == nil || strings.TrimSpace(*code) == "" {
		return decimal.Zero, nil, nil
	}

	normalised := coupon.NormaliseCode(*code)
	discount, err := s.deps.Coupons.Resolve(ctx, normalised, pricing.Subtotal(items))
	if err != nil {
		return decimal.Zero, nil, err
	}
	return discount, &normalised, nil
}

// FormatOrderNumber renders a sequence value as a customer-facing order
// number, zero-padded to at least six digits.
func FormatOrderNumber(prefix string, seq int64) string {
	return fmt.Sprintf("%s%06d", prefix, seq)
}

func buildOrderItems(lines []model.CartItem) []model.OrderItem {
	items := make([]model.OrderItem, len(lines))
	for i, line := range lines {
		name := line.ProductName
		if name == "" {
			name = line.Title
		}
		items[i] = model.OrderItem{
			ID:          uuid.New(),
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			ProductName: name,
			VariantName: line.VariantName,
			SKU:         line.SKU,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  line.LineTotal().Round(2),
		}
	}
	return items
}

// lockOrder returns the lines sorted by stock key.
func lockOrder(lines []model.CartItem) []model.CartItem {
	sorted := slices.Clone(lines)
	slices.SortFunc(sorted, func(a, b model.CartItem) int {
		return stockKey(a).Compare(stockKey(b))
	})
	return sorted
}

// sameLines reports whether the locked cart still holds exactly the lines
// that were priced.
func sameLines(priced, locked []model.CartItem) bool {
	if len(priced) != len(locked) {
		return false
	}
	byID := make(map[uuid.UUID]model.CartItem, len(priced))
	for _, item := range priced {
		byID[item.ID] = item
	}
	for _, item := range locked {
		p, ok := byID[item.ID]
		if !ok || p.Quantity != item.Quantity || !p.UnitPrice.Equal(item.UnitPrice) {
			return false
		}
	}
	return true
}

// sideEffects builds the outbox events for a new order: a confirmation
// email when the customer left an address, and an in-app notification for
// account holders.
func sideEffects(order *model.Order) ([]model.OutboxEvent, error) {
	var events []model.OutboxEvent

	if order.Contact.Email != "" {
		lines := make([]model.OrderConfirmationItem, len(order.Items))
		for i, item := range order.Items {
			lines[i] = model.OrderConfirmationItem{
				Name:      item.ProductName,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
				Total:     item.TotalPrice,
			}
			if item.VariantName != nil {
				lines[i].Variant = *item.VariantName
			}
		}
		payload, err := json.Marshal(model.OrderConfirmation{
			Email:           order.Contact.Email,
			CustomerName:    order.Contact.Name,
			OrderNumber:     order.OrderNumber,
			Items:           lines,
			Total:           order.Total,
			Currency:        order.Currency,
			ShippingAddress: order.ShippingAddress,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode order confirmation: %w", err)
		}
		events = append(events, model.OutboxEvent{
			ID:          uuid.New(),
			AggregateID: order.ID,
			EventType:   model.EventOrderConfirmationEmail,
			Payload:     payload,
		})
	}

	if accountID, ok := order.Owner.AccountID(); ok {
		payload, err := json.Marshal(model.OrderNotification{
			AccountID:   accountID,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Status:      order.OrderStatus,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode order notification: %w", err)
		}
		events = append(events, model.OutboxEvent{
			ID:          uuid.New(),
			AggregateID: order.ID,
			EventType:   model.EventOrderNotification,
			Payload:     payload,
		})
	}

	return events, nil
}

func failureReason(err error) string {
	var invErr *model.InventoryError
	if errors.As(err, &invErr) {
		return reasonInventory
	}

	var domErr *model.DomainError
	if !errors.As(err, &domErr) {
		return reasonInternal
	}

	switch domErr.Code {
	case model.ErrCodeCartEmpty:
		return reasonCartEmpty
	case model.ErrCodeInvalidCoupon:
		return reasonCoupon
	case model.ErrCodePaymentUnavailable:
		return reasonPayment
	case model.ErrCodeCartChanged:
		return reasonConflict
	default:
		return reasonValidation
	}
}
