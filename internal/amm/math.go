// Package amm holds the integer pricing math for a two-asset constant-product pool.
package amm

import (
	"errors"
	"math/big"
)

// FeeDenominator is the per-mille scale the fee multiplier is expressed in.
const FeeDenominator = 1000

var (
	ErrInvalidFee    = errors.New("fee must be a multiple of 10 bps below 10000")
	ErrEmptyReserves = errors.New("empty reserves")
	ErrNonPositiveIn = errors.New("amount must be greater than zero")
	feeDen           = big.NewInt(FeeDenominator)
)

// ValidateFee reports whether feeBps can be expressed exactly as a per-mille multiplier.
func ValidateFee(feeBps uint32) error {
	if feeBps >= 10_000 || feeBps%10 != 0 {
		return ErrInvalidFee
	}
	return nil
}

// FeeMultiplier returns 1000 - feeBps/10, the share of amountIn that moves the curve.
func FeeMultiplier(feeBps uint32) *big.Int {
	return big.NewInt(int64(FeeDenominator - feeBps/10))
}

// GetAmountOut returns floor(amountIn*m*reserveOut / (reserveIn*1000 + amountIn*m)).
// dst, t1 and t2 are scratch values owned by the caller; the result aliases dst.
func GetAmountOut(dst, t1, t2 *big.Int, amountIn, reserveIn, reserveOut *big.Int, feeBps uint32) *big.Int {
	// t1 = amountIn * m
	t1.Mul(amountIn, FeeMultiplier(feeBps))
	// t2 = reserveIn * 1000 + t1
	t2.Mul(reserveIn, feeDen)
	t2.Add(t2, t1)
	// dst = t1 * reserveOut / t2
	dst.Mul(t1, reserveOut)
	return dst.Div(dst, t2)
}

// AmountOut is the allocating form of GetAmountOut with input validation.
func AmountOut(amountIn, reserveIn, reserveOut *big.Int, feeBps uint32) (*big.Int, error) {
	if amountIn.Sign() <= 0 {
		return nil, ErrNonPositiveIn
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrEmptyReserves
	}
	var dst, t1, t2 big.Int
	return new(big.Int).Set(GetAmountOut(&dst, &t1, &t2, amountIn, reserveIn, reserveOut, feeBps)), nil
}

// FeeAmount is the part of amountIn retained by the pool, floor(amountIn*feeBps/10000)
// at per-mille resolution.
func FeeAmount(amountIn *big.Int, feeBps uint32) *big.Int {
	fee := new(big.Int).Mul(amountIn, big.NewInt(int64(feeBps/10)))
	return fee.Div(fee, feeDen)
}

// InitialShares is the geometric mean isqrt(amount0*amount1) used to seed share supply.
func InitialShares(amount0, amount1 *big.Int) *big.Int {
	product := new(big.Int).Mul(amount0, amount1)
	return product.Sqrt(product)
}

// ProportionalShares returns min(amount0*supply/reserve0, amount1*supply/reserve1).
func ProportionalShares(amount0, amount1, reserve0, reserve1, supply *big.Int) *big.Int {
	shares0 := new(big.Int).Mul(amount0, supply)
	shares0.Div(shares0, reserve0)
	shares1 := new(big.Int).Mul(amount1, supply)
	shares1.Div(shares1, reserve1)
	if shares0.Cmp(shares1) < 0 {
		return shares0
	}
	return shares1
}

// MatchAmount returns floor(amountA*reserveB/reserveA), the amount of B that keeps the
// pool ratio when amountA of A is supplied.
func MatchAmount(amountA, reserveA, reserveB *big.Int) *big.Int {
	out := new(big.Int).Mul(amountA, reserveB)
	return out.Div(out, reserveA)
}

// RedeemAmounts returns the floor share of both reserves owed for shares out of supply.
func RedeemAmounts(shares, reserve0, reserve1, supply *big.Int) (*big.Int, *big.Int) {
	amount0 := new(big.Int).Mul(shares, reserve0)
	amount0.Div(amount0, supply)
	amount1 := new(big.Int).Mul(shares, reserve1)
	amount1.Div(amount1, supply)
	return amount0, amount1
}

// Product returns reserve0*reserve1.
func Product(reserve0, reserve1 *big.Int) *big.Int {
	return new(big.Int).Mul(reserve0, reserve1)
}
