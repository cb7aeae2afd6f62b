package service

import (
	"context"
	"fmt"

	"liftcart/internal/model"
	"liftcart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo repository.OrderRepository
	logger    zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(orderRepo repository.OrderRepository, logger zerolog.Logger) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// GetByID retrieves an order with its items. Orders owned by someone else
// are reported as not found.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID, owner model.Owner) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	if owner.IsZero() || order.Owner != owner {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("caller", owner.String()).
			Msg("order requested by non-owner")
		return nil, model.ErrOrderNotFound
	}

	return order, nil
}

// ListForAccount retrieves an account's orders, newest first.
func (s *orderService) ListForAccount(ctx context.Context, accountID string, limit, offset int) ([]model.Order, error) {
	if accountID == "" {
		return nil, model.ErrUnauthorised
	}
	limit, offset = clampPage(limit, offset)

	orders, err := s.orderRepo.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return orders, nil
}
