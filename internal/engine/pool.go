package engine

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"dexcore/internal/amm"
)

type reservePool struct {
	reserves [2]*uint256.Int
	feeBps   uint32
}

func newReservePool(feeBps uint32) reservePool {
	return reservePool{reserves: [2]*uint256.Int{new(uint256.Int), new(uint256.Int)}, feeBps: feeBps}
}

func (p *reservePool) initialized() bool {
	return !p.reserves[0].IsZero() && !p.reserves[1].IsZero()
}

// amountOut quotes amountIn of the token at index in against the current reserves. The
// result is always below reserves[out], so it fits in 256 bits.
func (p *reservePool) amountOut(op string, in int, tokenIn common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	out, err := amm.AmountOut(amountIn.ToBig(), p.reserves[in].ToBig(), p.reserves[other(in)].ToBig(), p.feeBps)
	switch {
	case errors.Is(err, amm.ErrEmptyReserves):
		return nil, amountError(op, ErrPoolUninitialized, tokenIn, nil, nil)
	case errors.Is(err, amm.ErrNonPositiveIn):
		return nil, amountError(op, ErrZeroAmount, tokenIn, nil, nil)
	case err != nil:
		return nil, err
	}
	result, _ := uint256.FromBig(out)
	return result, nil
}

func (p *reservePool) product() *big.Int {
	return amm.Product(p.reserves[0].ToBig(), p.reserves[1].ToBig())
}
