package service

import (
	"context"
	"errors"
	"fmt"

	"liftcart/internal/cache"
	"liftcart/internal/model"
	"liftcart/internal/pricing"
	"liftcart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// summaryService implements SummaryService.
type summaryService struct {
	cartRepo   repository.CartRepository
	calculator *pricing.Calculator
	cache      cache.SummaryCache
	currency   string
	group      singleflight.Group
	logger     zerolog.Logger
}

// NewSummaryService creates a new cart summary service.
func NewSummaryService(
	cartRepo repository.CartRepository,
	calculator *pricing.Calculator,
	summaryCache cache.SummaryCache,
	currency string,
	logger zerolog.Logger,
) SummaryService {
	return &summaryService{
		cartRepo:   cartRepo,
		calculator: calculator,
		cache:      summaryCache,
		currency:   currency,
		logger:     logger.With().Str("service", "summary").Logger(),
	}
}

// GetCartSummary serves from cache when possible. Concurrent misses for
// the same cart share one load.
func (s *summaryService) GetCartSummary(ctx context.Context, cartID uuid.UUID) (*model.CartSummary, error) {
	summary, err := s.cache.Get(ctx, cartID)
	if err == nil {
		return summary, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn().Err(err).Str("cart_id", cartID.String()).Msg("summary cache read failed")
	}

	v, err, shared := s.group.Do(cartID.String(), func() (any, error) {
		return s.compute(ctx, cartID)
	})
	if err != nil {
		return nil, err
	}

	if shared {
		s.logger.Debug().Str("cart_id", cartID.String()).Msg("summary load shared")
	}

	return v.(*model.CartSummary), nil
}

func (s *summaryService) compute(ctx context.Context, cartID uuid.UUID) (*model.CartSummary, error) {
	cart, err := s.cartRepo.GetByID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart == nil {
		return nil, model.ErrCartNotFound
	}

	summary, err := s.calculator.Summarize(cart, decimal.Zero, s.currency)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cartID, summary); err != nil {
		s.logger.Warn().Err(err).Str("cart_id", cartID.String()).Msg("summary cache write failed")
	}

	return summary, nil
}
