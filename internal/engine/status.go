package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// AssetStatus is one pooled token as seen by an account.
type AssetStatus struct {
	Asset      common.Address
	Custody    *uint256.Int
	Wallet     *uint256.Int
	Allowance  *uint256.Int
	Underlying *uint256.Int
}

type AccountStatus struct {
	Account     common.Address
	Assets      [2]AssetStatus
	Shares      *uint256.Int
	TotalSupply *uint256.Int
	Reserve0    *uint256.Int
	Reserve1    *uint256.Int
}

// Status reports an account's custody and external balances, its allowance toward the
// engine and the pool value behind its LP shares.
func (e *Engine) Status(account common.Address) AccountStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	status := AccountStatus{
		Account:     account,
		Shares:      e.shares.balanceOf(account),
		TotalSupply: e.shares.totalSupply.Clone(),
		Reserve0:    e.pool.reserves[0].Clone(),
		Reserve1:    e.pool.reserves[1].Clone(),
	}
	for i := range status.Assets {
		asset := e.registry.Token(i)
		underlying := new(uint256.Int)
		if !status.TotalSupply.IsZero() {
			value := new(big.Int).Mul(status.Shares.ToBig(), e.pool.reserves[i].ToBig())
			value.Div(value, status.TotalSupply.ToBig())
			underlying, _ = uint256.FromBig(value)
		}
		status.Assets[i] = AssetStatus{
			Asset:      asset,
			Custody:    e.custody.balance(account, asset),
			Wallet:     e.holdings[i].BalanceOf(account),
			Allowance:  e.holdings[i].Allowance(account, e.address),
			Underlying: underlying,
		}
	}
	return status
}

// AssetAudit compares what the engine holds externally with what it owes for one token.
type AssetAudit struct {
	Asset    common.Address
	Holdings *uint256.Int
	Reserve  *uint256.Int
	Custody  *uint256.Int
	Surplus  *uint256.Int
	Deficit  *uint256.Int
	Solvent  bool
}

// Audit checks holdings >= reserve + custody for both pooled tokens.
func (e *Engine) Audit() [2]AssetAudit {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out [2]AssetAudit
	for i := range out {
		asset := e.registry.Token(i)
		custody := e.custody.total(asset)
		holdings := e.holdings[i].BalanceOf(e.address)
		owed := new(big.Int).Add(e.pool.reserves[i].ToBig(), custody.ToBig())
		audit := AssetAudit{
			Asset:    asset,
			Holdings: holdings,
			Reserve:  e.pool.reserves[i].Clone(),
			Custody:  custody,
			Surplus:  new(uint256.Int),
			Deficit:  new(uint256.Int),
		}
		diff := new(big.Int).Sub(holdings.ToBig(), owed)
		if diff.Sign() >= 0 {
			audit.Solvent = true
			audit.Surplus, _ = uint256.FromBig(diff)
		} else {
			audit.Deficit, _ = uint256.FromBig(diff.Neg(diff))
		}
		out[i] = audit
	}
	return out
}
