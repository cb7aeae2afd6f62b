// Package cache stores priced cart summaries between cart mutations.
package cache

import (
	"context"
	"errors"

	"liftcart/internal/model"

	"github.com/google/uuid"
)

// ErrCacheMiss is returned by Get when no summary is stored for the cart.
var ErrCacheMiss = errors.New("cache miss")

// SummaryCache stores cart summaries keyed by cart ID.
type SummaryCache interface {
	Get(ctx context.Context, cartID uuid.UUID) (*model.CartSummary, error)
	Set(ctx context.Context, cartID uuid.UUID, summary *model.CartSummary) error
	Invalidate(ctx context.Context, cartIDs ...uuid.UUID) error
}

// NopSummaryCache never stores anything. Used when Redis is disabled.
type NopSummaryCache struct{}

func (NopSummaryCache) Get(context.Context, uuid.UUID) (*model.CartSummary, error) {
	return nil, ErrCacheMiss
}

func (NopSummaryCache) Set(context.Context, uuid.UUID, *model.CartSummary) error { return nil }

func (NopSummaryCache) Invalidate(context.Context, ...uuid.UUID) error { return nil }
