package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type custodyKey struct {
	account common.Address
	asset   common.Address
}

// custodyLedger keeps zero entries once created; a zero balance is a terminal state,
// not a deletion.
type custodyLedger struct {
	balances map[custodyKey]*uint256.Int
}

func newCustodyLedger() custodyLedger {
	return custodyLedger{balances: make(map[custodyKey]*uint256.Int)}
}

func (c custodyLedger) balance(account, asset common.Address) *uint256.Int {
	if bal, ok := c.balances[custodyKey{account: account, asset: asset}]; ok {
		return bal.Clone()
	}
	return new(uint256.Int)
}

func (c custodyLedger) set(account, asset common.Address, amount *uint256.Int) {
	c.balances[custodyKey{account: account, asset: asset}] = amount.Clone()
}

func (c custodyLedger) total(asset common.Address) *uint256.Int {
	sum := new(uint256.Int)
	for key, bal := range c.balances {
		if key.asset == asset {
			sum.Add(sum, bal)
		}
	}
	return sum
}
