// Package units converts between human decimal amounts and integer base units.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const ratioScale = 18

var (
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrTooManyDecimals = errors.New("amount has more fractional digits than the asset supports")
	ErrAmountTooLarge  = errors.New("amount exceeds 256 bits")
)

// ParseBaseUnits parses a base-10 integer string into a u256. Empty input is zero.
func ParseBaseUnits(value string) (*uint256.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return new(uint256.Int), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return FromBig(parsed)
}

// FromBig converts a non-negative big.Int into a u256.
func FromBig(value *big.Int) (*uint256.Int, error) {
	if value.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	out, overflow := uint256.FromBig(value)
	if overflow {
		return nil, ErrAmountTooLarge
	}
	return out, nil
}

// Dec renders a u256 as a base-10 string; nil renders as "0".
func Dec(value *uint256.Int) string {
	if value == nil {
		return "0"
	}
	return value.ToBig().String()
}

// ParseAmount converts a decimal string such as "12.5" into base units for an asset
// with the given decimals, rejecting values that would need rounding.
func ParseAmount(value string, decimals uint8) (*uint256.Int, error) {
	parsed, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", value, err)
	}
	if parsed.IsNegative() {
		return nil, ErrNegativeAmount
	}
	scaled := parsed.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %s (decimals %d)", ErrTooManyDecimals, value, decimals)
	}
	return FromBig(scaled.BigInt())
}

// FormatAmount renders base units as a decimal string with the asset's full precision.
func FormatAmount(value *uint256.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return FormatBig(value.ToBig(), decimals)
}

// FormatBig is FormatAmount for values that may exceed 256 bits, such as window totals.
func FormatBig(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).StringFixed(int32(decimals))
}

// FormatRatio renders numerator/denominator with 18 fractional digits, or "" when the
// denominator is zero.
func FormatRatio(numerator, denominator *uint256.Int) string {
	if numerator == nil || denominator == nil || denominator.IsZero() {
		return ""
	}
	rat := new(big.Rat).SetFrac(numerator.ToBig(), denominator.ToBig())
	return rat.FloatString(ratioScale)
}
