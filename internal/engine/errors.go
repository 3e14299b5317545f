package engine

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"dexcore/internal/units"
)

var (
	ErrInsufficientInternalBalance = errors.New("insufficient internal balance")
	ErrInsufficientExternalBalance = errors.New("insufficient external balance")
	ErrInsufficientAllowance       = errors.New("insufficient allowance")
	ErrInvalidAsset                = errors.New("invalid asset")
	ErrZeroAmount                  = errors.New("amount must be greater than zero")
	ErrSlippageExceeded            = errors.New("slippage exceeded")
	ErrPoolUninitialized           = errors.New("pool uninitialized")
	ErrRatioMismatch               = errors.New("liquidity ratio mismatch")
	ErrInsufficientShares          = errors.New("insufficient shares")
	ErrInsufficientOutputAmount    = errors.New("insufficient output amount")
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	ErrInsufficientLiquidityBurned = errors.New("insufficient liquidity burned")
	ErrAmountOverflow              = errors.New("amount overflows 256 bits")
	ErrInvariantViolation          = errors.New("constant product invariant violated")
	ErrReservedAccount             = errors.New("engine custody account cannot act as a user")
)

// AmountError reports a failed operation together with the amounts that caused it.
// It unwraps to one of the sentinel errors above.
type AmountError struct {
	Op    string
	Asset common.Address
	Have  *uint256.Int
	Want  *uint256.Int
	Err   error
}

func (e *AmountError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.Asset != (common.Address{}) {
		b.WriteString(" asset=")
		b.WriteString(e.Asset.Hex())
	}
	if e.Have != nil {
		b.WriteString(" have=")
		b.WriteString(units.Dec(e.Have))
	}
	if e.Want != nil {
		b.WriteString(" want=")
		b.WriteString(units.Dec(e.Want))
	}
	return b.String()
}

func (e *AmountError) Unwrap() error {
	return e.Err
}

func amountError(op string, err error, asset common.Address, have, want *uint256.Int) error {
	out := &AmountError{Op: op, Asset: asset, Err: err}
	if have != nil {
		out.Have = have.Clone()
	}
	if want != nil {
		out.Want = want.Clone()
	}
	return out
}
