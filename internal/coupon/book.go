package coupon

import "strings"

// mapBook implements Book using a map for O(1) lookups.
type mapBook struct {
	coupons map[string]Coupon
}

// newMapBook creates an empty map-based coupon book.
func newMapBook(capacity int) *mapBook {
	return &mapBook{
		coupons: make(map[string]Coupon, capacity),
	}
}

// Lookup returns the coupon for code.
func (b *mapBook) Lookup(code string) (Coupon, bool) {
	c, ok := b.coupons[NormaliseCode(code)]
	return c, ok
}

// Size returns the number of coupons in the book.
func (b *mapBook) Size() int {
	return len(b.coupons)
}

// Add adds or replaces a coupon.
func (b *mapBook) Add(c Coupon) {
	c.Code = NormaliseCode(c.Code)
	b.coupons[c.Code] = c
}

// Coupons returns a copy of every coupon in the book.
func (b *mapBook) Coupons() []Coupon {
	out := make([]Coupon, 0, len(b.coupons))
	for _, c := range b.coupons {
		out = append(out, c)
	}
	return out
}

// merge copies every coupon from other, replacing existing codes.
func (b *mapBook) merge(other Book) {
	if other == nil {
		return
	}
	for _, c := range other.Coupons() {
		b.Add(c)
	}
}

// NormaliseCode trims and upper-cases a coupon code.
func NormaliseCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
