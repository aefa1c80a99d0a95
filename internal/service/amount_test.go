package service

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/merchantkit/voucher-service/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPercentageAmount(t *testing.T) {
	cases := []struct {
		value, total, want string
	}{
		{"0", "100", "0"},
		{"10", "100", "10"},
		{"25", "80", "20"},
		{"33.5", "200", "67"},
		{"100", "49.99", "49.99"},
	}
	for _, tc := range cases {
		got := DiscountAmount(models.TypePercentage, dec(tc.value), dec(tc.total))
		if !got.Equal(dec(tc.want)) {
			t.Errorf("percentage %s of %s: got %s, want %s", tc.value, tc.total, got, tc.want)
		}
	}
}

func TestFixedAmountNeverExceedsTotal(t *testing.T) {
	cases := []struct {
		value, total, want string
	}{
		{"20", "100", "20"},
		{"150", "100", "100"},
		{"20", "10", "10"},
		{"0", "100", "0"},
	}
	for _, tc := range cases {
		got := DiscountAmount(models.TypeFixed, dec(tc.value), dec(tc.total))
		if !got.Equal(dec(tc.want)) {
			t.Errorf("fixed %s on %s: got %s, want %s", tc.value, tc.total, got, tc.want)
		}
		if got.IsNegative() {
			t.Errorf("fixed %s on %s: negative amount %s", tc.value, tc.total, got)
		}
	}
}

func TestFreeShippingAmountIsZero(t *testing.T) {
	got := DiscountAmount(models.TypeFreeShipping, dec("15"), dec("200"))
	if !got.IsZero() {
		t.Errorf("free_shipping: got %s, want 0", got)
	}
}

func TestBuyXGetYAmountIsZero(t *testing.T) {
	got := DiscountAmount(models.TypeBuyXGetY, dec("15"), dec("200"))
	if !got.IsZero() {
		t.Errorf("buy_x_get_y: got %s, want 0", got)
	}
}
