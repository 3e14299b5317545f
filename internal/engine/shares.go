package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type lpShares struct {
	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
}

func newLPShares() lpShares {
	return lpShares{totalSupply: new(uint256.Int), balances: make(map[common.Address]*uint256.Int)}
}

func (s *lpShares) balanceOf(holder common.Address) *uint256.Int {
	if bal, ok := s.balances[holder]; ok {
		return bal.Clone()
	}
	return new(uint256.Int)
}

func (s *lpShares) set(holder common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		delete(s.balances, holder)
		return
	}
	s.balances[holder] = amount.Clone()
}
