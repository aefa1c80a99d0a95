package service

import (
	"github.com/shopspring/decimal"

	"github.com/merchantkit/voucher-service/internal/models"
)

var hundred = decimal.NewFromInt(100)

// DiscountAmount computes the money value of a discount against an order
// total. Pure; no rounding is applied here, callers round where the amount is
// persisted or displayed.
func DiscountAmount(t models.DiscountType, value, orderTotal decimal.Decimal) decimal.Decimal {
	switch t {
	case models.TypePercentage:
		return orderTotal.Mul(value).Div(hundred)
	case models.TypeFixed:
		// Never discount more than the order is worth.
		if value.GreaterThan(orderTotal) {
			return orderTotal
		}
		return value
	case models.TypeFreeShipping:
		// Shipping cost adjustment lives in the shipping subsystem.
		return decimal.Zero
	case models.TypeBuyXGetY:
		// Needs per-line-item eligibility data that is not modeled yet;
		// always zero until that lands.
		return decimal.Zero
	}
	return decimal.Zero
}
