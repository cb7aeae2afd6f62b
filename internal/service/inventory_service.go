package service

import (
	"context"
	"fmt"

	"liftcart/internal/model"
	"liftcart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// inventoryService implements InventoryService.
type inventoryService struct {
	cartRepo      repository.CartRepository
	inventoryRepo repository.InventoryRepository
	logger        zerolog.Logger
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(
	cartRepo repository.CartRepository,
	inventoryRepo repository.InventoryRepository,
	logger zerolog.Logger,
) InventoryService {
	return &inventoryService{
		cartRepo:      cartRepo,
		inventoryRepo: inventoryRepo,
		logger:        logger.With().Str("service", "inventory").Logger(),
	}
}

// ValidateCartInventory compares each line with current stock, variant
// first and product otherwise. An empty cart is valid.
func (s *inventoryService) ValidateCartInventory(ctx context.Context, cartID uuid.UUID) (*model.InventoryReport, error) {
	cart, err := s.cartRepo.GetByID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart == nil {
		return nil, model.ErrCartNotFound
	}

	issues, err := findStockIssues(ctx, s.inventoryRepo, cart.Items)
	if err != nil {
		s.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to validate cart inventory")
		return nil, err
	}

	if len(issues) > 0 {
		s.logger.Debug().
			Str("cart_id", cartID.String()).
			Int("issues", len(issues)).
			Msg("cart requests more than available stock")
	}

	return &model.InventoryReport{Valid: len(issues) == 0, Issues: issues}, nil
}

// findStockIssues returns one issue per line whose quantity exceeds the
// stock of its variant, or of its product when it has no variant.
func findStockIssues(ctx context.Context, repo repository.InventoryRepository, items []model.CartItem) ([]model.InventoryIssue, error) {
	issues := []model.InventoryIssue{}
	if len(items) == 0 {
		return issues, nil
	}

	levels, err := repo.GetStockLevels(ctx, stockKeys(items))
	if err != nil {
		return nil, fmt.Errorf("failed to load stock levels: %w", err)
	}

	for _, item := range items {
		available := levels.Available(stockKey(item))
		if item.Quantity > available {
			issues = append(issues, model.InventoryIssue{
				ItemID:    item.ID,
				Title:     item.Title,
				Requested: item.Quantity,
				Available: available,
			})
		}
	}

	return issues, nil
}

func stockKey(item model.CartItem) model.StockKey {
	return model.StockKey{ProductID: item.ProductID, VariantID: item.VariantID}
}

func stockKeys(items []model.CartItem) []model.StockKey {
	keys := make([]model.StockKey, len(items))
	for i, item := range items {
		keys[i] = stockKey(item)
	}
	return keys
}
