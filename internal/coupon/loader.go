package coupon

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// fileLoader reads gzipped coupon books from the local filesystem.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a file-based coupon loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "coupon-file").Logger(),
	}
}

func (l *fileLoader) Load(ctx context.Context, path string) (Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open coupon file %s: %w", path, err)
	}
	defer f.Close()

	book, err := readGzipBook(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read coupon file %s: %w", path, err)
	}

	l.logger.Info().Str("file", path).Int("coupons", book.Size()).Msg("coupon book loaded")
	return book, nil
}
