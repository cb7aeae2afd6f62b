package coupon

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// readGzipBook decompresses r and parses the coupon lines it holds.
func readGzipBook(ctx context.Context, r io.Reader) (*mapBook, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer zr.Close()

	return parseBook(ctx, zr)
}

// parseBook reads coupon lines of the form CODE,PERCENT[,MIN_SUBTOTAL].
// Blank lines and lines starting with # are ignored.
func parseBook(ctx context.Context, r io.Reader) (*mapBook, error) {
	book := newMapBook(1024)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%100_000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		c, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		book.Add(c)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return book, nil
}

func parseLine(line string) (Coupon, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 2 || len(fields) > 3 {
		return Coupon{}, fmt.Errorf("expected CODE,PERCENT[,MIN_SUBTOTAL], got %q", line)
	}

	code := NormaliseCode(fields[0])
	if code == "" {
		return Coupon{}, fmt.Errorf("empty coupon code")
	}

	percent, err := decimal.NewFromString(strings.TrimSpace(fields[1]))
	if err != nil {
		return Coupon{}, fmt.Errorf("invalid percent for %s: %w", code, err)
	}
	if !percent.IsPositive() || percent.GreaterThan(hundred) {
		return Coupon{}, fmt.Errorf("percent for %s must be in (0, 100]", code)
	}

	minSubtotal := decimal.Zero
	if len(fields) == 3 && strings.TrimSpace(fields[2]) != "" {
		minSubtotal, err = decimal.NewFromString(strings.TrimSpace(fields[2]))
		if err != nil {
			return Coupon{}, fmt.Errorf("invalid minimum subtotal for %s: %w", code, err)
		}
		if minSubtotal.IsNegative() {
			return Coupon{}, fmt.Errorf("minimum subtotal for %s cannot be negative", code)
		}
	}

	return Coupon{Code: code, Percent: percent, MinSubtotal: minSubtotal}, nil
}
