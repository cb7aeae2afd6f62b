package service

import (
	"context"
	"errors"
	"fmt"

	"liftcart/internal/cache"
	"liftcart/internal/model"
	"liftcart/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// pgUniqueViolation is the SQLSTATE for a unique constraint failure.
const pgUniqueViolation = "23505"

// cartService implements CartService.
type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	transactor  repository.Transactor
	cache       cache.SummaryCache
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	transactor repository.Transactor,
	summaryCache cache.SummaryCache,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		transactor:  transactor,
		cache:       summaryCache,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

func (s *cartService) GetCart(ctx context.Context, cartID uuid.UUID) (*model.Cart, error) {
	cart, err := s.cartRepo.GetByID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return cart, nil
}

func (s *cartService) GetOpenCart(ctx context.Context, owner model.Owner) (*model.Cart, error) {
	if owner.IsZero() {
		return nil, model.ErrUnauthorised
	}

	cart, err := s.cartRepo.GetOpenByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get open cart: %w", err)
	}
	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, owner model.Owner, req model.AddCartItemRequest) (*model.Cart, error) {
	if owner.IsZero() {
		return nil, model.ErrUnauthorised
	}
	if req.Quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	line, err := s.snapshotLine(ctx, req)
	if err != nil {
		return nil, err
	}

	// A checkout can complete the open cart between lookup and insert; the
	// item then goes into a fresh cart.
	var (
		cart *model.Cart
		item *model.CartItem
	)
	for attempt := 0; attempt < 2; attempt++ {
		cart, err = s.openOrCreate(ctx, owner)
		if err != nil {
			return nil, err
		}
		line.CartID = cart.ID

		item, err = s.cartRepo.UpsertItem(ctx, line)
		if !errors.Is(err, model.ErrCartCompleted) {
			break
		}
		s.logger.Debug().Str("cart_id", cart.ID.String()).Msg("open cart completed during add, retrying")
	}
	if errors.Is(err, model.ErrCartCompleted) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add item to cart: %w", err)
	}

	s.invalidate(ctx, cart.ID)

	s.logger.Info().
		Str("cart_id", cart.ID.String()).
		Str("item_id", item.ID.String()).
		Str("product_id", req.ProductID.String()).
		Int("quantity", item.Quantity).
		Msg("item added to cart")

	return s.reload(ctx, cart.ID)
}

func (s *cartService) UpdateItem(ctx context.Context, owner model.Owner, itemID uuid.UUID, quantity int) (*model.Cart, error) {
	if quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	cart, err := s.requireOpenCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	ok, err := s.cartRepo.UpdateItemQuantity(ctx, cart.ID, itemID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	if !ok {
		return nil, model.ErrCartItemNotFound
	}

	s.invalidate(ctx, cart.ID)
	return s.reload(ctx, cart.ID)
}

func (s *cartService) RemoveItem(ctx context.Context, owner model.Owner, itemID uuid.UUID) (*model.Cart, error) {
	cart, err := s.requireOpenCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	ok, err := s.cartRepo.RemoveItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}
	if !ok {
		return nil, model.ErrCartItemNotFound
	}

	s.invalidate(ctx, cart.ID)
	return s.reload(ctx, cart.ID)
}

func (s *cartService) ClearCart(ctx context.Context, cartID uuid.UUID) (err error) {
	cart, err := s.cartRepo.GetByID(ctx, cartID)
	if err != nil {
		return fmt.Errorf("failed to get cart: %w", err)
	}
	if cart == nil {
		return model.ErrCartNotFound
	}

	tx, err := s.transactor.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	defer s.rollbackOnError(ctx, tx, &err)

	carts := s.cartRepo.WithTx(tx)
	if err = carts.ClearItems(ctx, cartID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	if err = carts.MarkCompleted(ctx, cartID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	s.invalidate(ctx, cartID)
	s.logger.Info().Str("cart_id", cartID.String()).Msg("cart cleared")

	return nil
}

// MigrateGuestCart runs in one transaction: the guest cart is either handed
// to the account or merged into the account's open cart and deleted.
func (s *cartService) MigrateGuestCart(ctx context.Context, guestCartID uuid.UUID, guest, account model.Owner) (result *model.Cart, err error) {
	if !account.IsAccount() {
		return nil, model.ErrUnauthorised
	}

	log := s.logger.With().
		Str("guest_cart_id", guestCartID.String()).
		Str("account", account.String()).
		Logger()

	tx, err := s.transactor.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate cart: %w", err)
	}
	defer s.rollbackOnError(ctx, tx, &err)

	carts := s.cartRepo.WithTx(tx)

	guestCart, err := carts.GetByIDForUpdate(ctx, guestCartID)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate cart: %w", err)
	}
	if guestCart == nil || guestCart.IsCompleted() {
		return nil, model.ErrCartNotFound
	}
	if !guestCart.Owner.IsGuest() {
		return nil, model.ErrNotGuestCart
	}
	if guestCart.Owner != guest {
		log.Warn().Str("caller", guest.String()).Msg("guest cart presented by another guest")
		return nil, model.ErrForbidden
	}

	accountCart, err := s.lockOpenCart(ctx, carts, account)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate cart: %w", err)
	}

	targetID := guestCartID
	if accountCart == nil {
		if err = carts.ReassignOwner(ctx, guestCartID, account); err != nil {
			return nil, fmt.Errorf("failed to migrate cart: %w", err)
		}
		log.Info().Msg("guest cart reassigned to account")
	} else {
		targetID = accountCart.ID
		for _, item := range guestCart.Items {
			line := item
			line.CartID = accountCart.ID
			if _, err = carts.UpsertItem(ctx, &line); err != nil {
				return nil, fmt.Errorf("failed to merge guest cart item: %w", err)
			}
		}
		if err = carts.Delete(ctx, guestCartID); err != nil {
			return nil, fmt.Errorf("failed to migrate cart: %w", err)
		}
		log.Info().
			Str("account_cart_id", accountCart.ID.String()).
			Int("merged_items", len(guestCart.Items)).
			Msg("guest cart merged into account cart")
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate cart: %w", err)
	}

	s.invalidate(ctx, guestCartID, targetID)
	return s.reload(ctx, targetID)
}

// lockOpenCart locks the owner's open cart for the rest of the transaction.
// A cart that a concurrent checkout completed before the lock was granted
// counts as no open cart.
func (s *cartService) lockOpenCart(ctx context.Context, carts repository.CartRepository, owner model.Owner) (*model.Cart, error) {
	open, err := carts.GetOpenByOwner(ctx, owner)
	if err != nil || open == nil {
		return nil, err
	}

	locked, err := carts.GetByIDForUpdate(ctx, open.ID)
	if err != nil {
		return nil, err
	}
	if locked == nil || locked.IsCompleted() {
		return nil, nil
	}
	return locked, nil
}

// snapshotLine resolves the product or variant being added and captures
// its current title, SKU and price.
func (s *cartService) snapshotLine(ctx context.Context, req model.AddCartItemRequest) (*model.CartItem, error) {
	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}

	line := &model.CartItem{
		ProductID:   product.ID,
		Title:       product.Name,
		ProductName: product.Name,
		SKU:         product.SKU,
		UnitPrice:   product.Price,
		Quantity:    req.Quantity,
	}

	if req.VariantID == nil {
		return line, nil
	}

	variant, err := s.productRepo.GetVariant(ctx, *req.VariantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get variant: %w", err)
	}
	if variant == nil || variant.ProductID != product.ID {
		s.logger.Debug().
			Str("product_id", req.ProductID.String()).
			Str("variant_id", req.VariantID.String()).
			Msg("variant does not belong to product")
		return nil, model.ErrProductNotFound
	}

	variantID, variantName := variant.ID, variant.Name
	line.VariantID = &variantID
	line.VariantName = &variantName
	line.Title = product.Name + " - " + variant.Name
	line.SKU = variant.SKU
	line.UnitPrice = variant.Price
	return line, nil
}

// openOrCreate returns the owner's open cart, creating one if needed. A
// concurrent first add for the same owner loses the insert race and
// reads the winner's cart instead.
func (s *cartService) openOrCreate(ctx context.Context, owner model.Owner) (*model.Cart, error) {
	cart, err := s.cartRepo.GetOpenByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get open cart: %w", err)
	}
	if cart != nil {
		return cart, nil
	}

	cart, err = s.cartRepo.Create(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !isUniqueViolation(err) {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	cart, err = s.cartRepo.GetOpenByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get open cart: %w", err)
	}
	if cart == nil {
		return nil, fmt.Errorf("failed to create cart: open cart vanished for %s", owner)
	}
	return cart, nil
}

func (s *cartService) requireOpenCart(ctx context.Context, owner model.Owner) (*model.Cart, error) {
	cart, err := s.GetOpenCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, model.ErrCartNotFound
	}
	return cart, nil
}

func (s *cartService) reload(ctx context.Context, cartID uuid.UUID) (*model.Cart, error) {
	cart, err := s.cartRepo.GetByID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart == nil {
		return nil, model.ErrCartNotFound
	}
	return cart, nil
}

func (s *cartService) invalidate(ctx context.Context, cartIDs ...uuid.UUID) {
	if err := s.cache.Invalidate(ctx, cartIDs...); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate cart summary cache")
	}
}

func (s *cartService) rollbackOnError(ctx context.Context, tx pgx.Tx, err *error) {
	if *err == nil {
		return
	}
	if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
		s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
