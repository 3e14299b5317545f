package engine

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// Registry identifies the two pooled tokens and the LP share token.
type Registry struct {
	tokens  [2]common.Address
	lpToken common.Address
}

func NewRegistry(token0, token1, lpToken common.Address) (Registry, error) {
	zero := common.Address{}
	if token0 == zero || token1 == zero || lpToken == zero {
		return Registry{}, errors.New("registry addresses must be set")
	}
	if token0 == token1 || token0 == lpToken || token1 == lpToken {
		return Registry{}, errors.New("registry addresses must be distinct")
	}
	return Registry{tokens: [2]common.Address{token0, token1}, lpToken: lpToken}, nil
}

func (r Registry) Token0() common.Address  { return r.tokens[0] }
func (r Registry) Token1() common.Address  { return r.tokens[1] }
func (r Registry) LPToken() common.Address { return r.lpToken }

// Token returns the pooled token at index 0 or 1.
func (r Registry) Token(index int) common.Address {
	return r.tokens[index]
}

// Index returns 0 or 1 for a pooled token and ErrInvalidAsset for anything else,
// including the LP share token.
func (r Registry) Index(op string, asset common.Address) (int, error) {
	switch asset {
	case r.tokens[0]:
		return 0, nil
	case r.tokens[1]:
		return 1, nil
	default:
		return 0, amountError(op, ErrInvalidAsset, asset, nil, nil)
	}
}

// Known reports whether asset is one of the three registered ids.
func (r Registry) Known(asset common.Address) bool {
	return asset == r.tokens[0] || asset == r.tokens[1] || asset == r.lpToken
}

func other(index int) int {
	return 1 - index
}
