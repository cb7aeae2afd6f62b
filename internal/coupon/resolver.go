package coupon

import (
	"context"
	"fmt"
	"sync"

	"liftcart/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// resolver implements Resolver over coupon books loaded at startup.
type resolver struct {
	book   *mapBook // read-only once NewResolver returns
	logger zerolog.Logger
}

// ResolverConfig holds configuration for the coupon resolver.
type ResolverConfig struct {
	// FilePaths is the list of coupon file paths to load. Later files
	// override earlier ones for the same code.
	FilePaths []string
}

// NewResolver creates a coupon resolver, loading all files concurrently.
func NewResolver(ctx context.Context, cfg ResolverConfig, loader Loader, logger zerolog.Logger) (Resolver, error) {
	logger = logger.With().Str("component", "coupon-resolver").Logger()

	logger.Info().
		Int("file_count", len(cfg.FilePaths)).
		Msg("initialising coupon resolver")

	type loadResult struct {
		index int
		book  Book
		err   error
	}

	resultChan := make(chan loadResult, len(cfg.FilePaths))
	var wg sync.WaitGroup

	for i, filePath := range cfg.FilePaths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()

			book, err := loader.Load(ctx, path)
			resultChan <- loadResult{index: index, book: book, err: err}
		}(i, filePath)
	}

	wg.Wait()
	close(resultChan)

	// Collect results in file order so overrides are deterministic
	results := make([]loadResult, len(cfg.FilePaths))
	for result := range resultChan {
		results[result.index] = result
	}

	merged := newMapBook(1024)
	for i, result := range results {
		if result.err != nil {
			logger.Error().
				Err(result.err).
				Str("file", cfg.FilePaths[i]).
				Msg("failed to load coupon file")
			return nil, fmt.Errorf("failed to load coupon file %s: %w", cfg.FilePaths[i], result.err)
		}
		merged.merge(result.book)
	}

	logger.Info().
		Int("total_coupons", merged.Size()).
		Msg("coupon resolver initialised successfully")

	return &resolver{book: merged, logger: logger}, nil
}

// Resolve returns the discount the code grants on subtotal.
func (r *resolver) Resolve(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	c, ok := r.book.Lookup(code)
	if !ok {
		r.logger.Debug().Str("coupon_code", code).Msg("coupon code not found")
		return decimal.Zero, model.ErrInvalidCoupon
	}

	if subtotal.LessThan(c.MinSubtotal) {
		r.logger.Debug().
			Str("coupon_code", c.Code).
			Str("subtotal", subtotal.String()).
			Str("min_subtotal", c.MinSubtotal.String()).
			Msg("subtotal below coupon minimum")
		return decimal.Zero, model.NewDomainError(model.ErrCodeInvalidCoupon,
			fmt.Sprintf("coupon %s requires a minimum subtotal of %s", c.Code, c.MinSubtotal.StringFixed(2)))
	}

	return c.Discount(subtotal), nil
}

// Close releases resources held by the resolver. The loaded book stays
// readable so requests still in flight can finish.
func (r *resolver) Close() error {
	r.logger.Info().Msg("coupon resolver closed")
	return nil
}
