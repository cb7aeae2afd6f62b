package coupon

import (
	"context"
	"errors"
	"testing"

	"liftcart/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResolver_LaterFilesOverride(t *testing.T) {
	first := createTestCouponFile(t, "a.gz", []string{"LIFT10,10", "DOOR5,5"})
	second := createTestCouponFile(t, "b.gz", []string{"LIFT10,12"})

	r, err := NewResolver(context.Background(), ResolverConfig{FilePaths: []string{first, second}}, NewFileLoader(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()

	discount, err := r.Resolve(context.Background(), "lift10", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, discount.Equal(decimal.NewFromInt(120)))

	discount, err = r.Resolve(context.Background(), "DOOR5", decimal.NewFromInt(450))
	require.NoError(t, err)
	assert.True(t, discount.Equal(decimal.RequireFromString("22.5")))
}

func TestNewResolver_FileLoadError(t *testing.T) {
	loader := &mockLoader{
		loadFunc: func(ctx context.Context, filePath string) (Book, error) {
			return nil, errors.New("disk gone")
		},
	}

	_, err := NewResolver(context.Background(), ResolverConfig{FilePaths: []string{"x.gz"}}, loader, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x.gz")
}

func TestResolver_Resolve(t *testing.T) {
	path := createTestCouponFile(t, "c.gz", []string{"BULK20,20,5000"})
	r, err := NewResolver(context.Background(), ResolverConfig{FilePaths: []string{path}}, NewFileLoader(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)

	t.Run("unknown code", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), "NOPE", decimal.NewFromInt(9999))
		assert.ErrorIs(t, err, model.ErrInvalidCoupon)
	})

	t.Run("below minimum subtotal", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), "BULK20", decimal.NewFromInt(4999))
		require.Error(t, err)
		var de *model.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, model.ErrCodeInvalidCoupon, de.Code)
		assert.Contains(t, de.Message, "5000.00")
	})

	t.Run("at minimum subtotal", func(t *testing.T) {
		discount, err := r.Resolve(context.Background(), " bulk20 ", decimal.NewFromInt(5000))
		require.NoError(t, err)
		assert.True(t, discount.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("no files configured", func(t *testing.T) {
		empty, err := NewResolver(context.Background(), ResolverConfig{}, NewFileLoader(zerolog.Nop()), zerolog.Nop())
		require.NoError(t, err)
		_, err = empty.Resolve(context.Background(), "BULK20", decimal.NewFromInt(5000))
		assert.ErrorIs(t, err, model.ErrInvalidCoupon)
	})

	require.NoError(t, r.Close())
	discount, err := r.Resolve(context.Background(), "BULK20", decimal.NewFromInt(5000))
	require.NoError(t, err, "lookups racing shutdown still see the loaded book")
	assert.True(t, discount.Equal(decimal.NewFromInt(1000)))
}

// sliceBook is a Book that is not backed by a map.
type sliceBook []Coupon

func (b sliceBook) Lookup(code string) (Coupon, bool) {
	for _, c := range b {
		if c.Code == NormaliseCode(code) {
			return c, true
		}
	}
	return Coupon{}, false
}

func (b sliceBook) Size() int { return len(b) }
func (b sliceBook) Coupons() []Coupon { return b }

func TestNewResolver_MergesAnyBook(t *testing.T) {
	mapped := createTestCouponFile(t, "a.gz", []string{"LIFT10,10", "DOOR5,5"})
	fileLoader := NewFileLoader(zerolog.Nop())
	loader := &mockLoader{
		loadFunc: func(ctx context.Context, filePath string) (Book, error) {
			if filePath == "custom" {
				return sliceBook{
					{Code: "cabin15", Percent: decimal.NewFromInt(15)},
					{Code: "LIFT10", Percent: decimal.NewFromInt(12)},
				}, nil
			}
			return fileLoader.Load(ctx, filePath)
		},
	}

	r, err := NewResolver(context.Background(), ResolverConfig{FilePaths: []string{mapped, "custom"}}, loader, zerolog.Nop())
	require.NoError(t, err)

	discount, err := r.Resolve(context.Background(), "CABIN15", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, discount.Equal(decimal.NewFromInt(150)))

	discount, err = r.Resolve(context.Background(), "lift10", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, discount.Equal(decimal.NewFromInt(120)), "later book overrides")

	discount, err = r.Resolve(context.Background(), "DOOR5", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, discount.Equal(decimal.NewFromInt(50)))
}
