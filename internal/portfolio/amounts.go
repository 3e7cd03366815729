package portfolio

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// chainDecimals is the fixed-point scale the registry contract stores
// amounts in.
const chainDecimals = 18

// ClampAmount coerces user-entered amounts into the valid range:
// NaN, infinities and negatives all become zero.
func ClampAmount(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// ToScaled converts a display amount to the contract's 18-decimal
// fixed-point integer, truncating precision beyond 18 places.
func ToScaled(amount decimal.Decimal) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative: %s", amount)
	}
	scaled := amount.Shift(chainDecimals).Truncate(0).BigInt()
	if scaled.BitLen() > 128 {
		return nil, fmt.Errorf("amount does not fit uint128: %s", amount)
	}
	return scaled, nil
}

// FromScaled converts a stored fixed-point integer back to a display
// amount. A nil value reads as zero, matching the contract's default.
func FromScaled(raw *big.Int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -chainDecimals)
}
