package spl

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)

// ParseAmount converts a human amount such as "1.5" into base units of a mint with
// the given decimals. The result must be positive and exactly representable.
func ParseAmount(s string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	units := d.Shift(int32(decimals))
	switch {
	case units.Sign() <= 0:
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidAmount, s)
	case !units.IsInteger():
		return 0, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, s, decimals)
	case units.GreaterThan(maxUint64):
		return 0, fmt.Errorf("%w: %q overflows u64", ErrInvalidAmount, s)
	}
	return units.BigInt().Uint64(), nil
}

// FormatAmount renders base units as a human amount.
func FormatAmount(units uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -int32(decimals)).String()
}
