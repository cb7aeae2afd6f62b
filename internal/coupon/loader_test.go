package coupon

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestCouponFile writes lines to a gzipped file in a temp dir.
func createTestCouponFile(t *testing.T, filename string, lines []string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), filename)
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	gz := gzip.NewWriter(file)
	_, err = gz.Write([]byte(strings.Join(lines, "\n")))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	return path
}

func TestFileLoader_Load_Success(t *testing.T) {
	path := createTestCouponFile(t, "coupons.gz", []string{
		"# elevator parts promotions",
		"LIFT10,10",
		"",
		"  bulk25 , 25 , 10000 ",
	})

	book, err := NewFileLoader(zerolog.Nop()).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, book.Size())

	c, ok := book.Lookup("lift10")
	require.True(t, ok)
	assert.True(t, c.Percent.Equal(decimal.NewFromInt(10)))
	assert.True(t, c.MinSubtotal.IsZero())

	c, ok = book.Lookup("BULK25")
	require.True(t, ok)
	assert.True(t, c.MinSubtotal.Equal(decimal.NewFromInt(10000)))
}

func TestFileLoader_Load_DuplicateCodesLastWins(t *testing.T) {
	path := createTestCouponFile(t, "dupes.gz", []string{"SAVE,5", "save,15"})

	book, err := NewFileLoader(zerolog.Nop()).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, book.Size())

	c, _ := book.Lookup("SAVE")
	assert.True(t, c.Percent.Equal(decimal.NewFromInt(15)))
}

func TestFileLoader_Load_MalformedLines(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"missing percent", "ONLYCODE"},
		{"non numeric percent", "CODE,ten"},
		{"zero percent", "CODE,0"},
		{"over one hundred", "CODE,101"},
		{"negative minimum", "CODE,10,-1"},
		{"too many fields", "CODE,10,100,extra"},
		{"empty code", " ,10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := createTestCouponFile(t, "bad.gz", []string{"GOOD,10", tt.line})
			_, err := NewFileLoader(zerolog.Nop()).Load(context.Background(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "line 2")
		})
	}
}

func TestFileLoader_Load_FileNotFound(t *testing.T) {
	_, err := NewFileLoader(zerolog.Nop()).Load(context.Background(), "/nonexistent/coupons.gz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open coupon file")
}

func TestFileLoader_Load_InvalidGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.gz")
	require.NoError(t, os.WriteFile(path, []byte("LIFT10,10"), 0o644))

	_, err := NewFileLoader(zerolog.Nop()).Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create gzip reader")
}

func TestFileLoader_Load_ContextCancellation(t *testing.T) {
	lines := make([]string, 250_000)
	for i := range lines {
		lines[i] = "C" + strings.Repeat("X", i%7) + "," + "5"
	}
	path := createTestCouponFile(t, "large.gz", lines)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileLoader(zerolog.Nop()).Load(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileLoader_Load_EmptyFile(t *testing.T) {
	path := createTestCouponFile(t, "empty.gz", nil)

	book, err := NewFileLoader(zerolog.Nop()).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, book.Size())
}
