package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"dexcore/internal/model"
	"dexcore/internal/units"
)

// Deposit pulls amount of asset from the account's external holdings and credits its
// custody balance. It returns the new custody balance.
func (e *Engine) Deposit(account, asset common.Address, amount *uint256.Int) (*uint256.Int, error) {
	const op = "deposit"
	index, err := e.registry.Index(op, asset)
	if err != nil {
		return nil, err
	}
	if err := validAmount(op, asset, amount); err != nil {
		return nil, err
	}
	if err := e.checkAccounts(op, asset, account); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.custody.balance(account, asset)
	next, overflow := new(uint256.Int).AddOverflow(current, amount)
	if overflow {
		return nil, amountError(op, ErrAmountOverflow, asset, current, amount)
	}
	if err := e.pull(op, account, index, amount); err != nil {
		return nil, err
	}
	e.custody.set(account, asset, next)
	e.emit(model.Event{
		Kind:     model.EventDeposit,
		Account:  account.Hex(),
		AssetIn:  asset.Hex(),
		AmountIn: units.Dec(amount),
		Funding:  model.FundingExternal,
	})
	return next, nil
}

// Withdraw debits the account's custody balance and pushes amount back to its external
// holdings. It returns the new custody balance.
func (e *Engine) Withdraw(account, asset common.Address, amount *uint256.Int) (*uint256.Int, error) {
	const op = "withdraw"
	index, err := e.registry.Index(op, asset)
	if err != nil {
		return nil, err
	}
	if err := validAmount(op, asset, amount); err != nil {
		return nil, err
	}
	if err := e.checkAccounts(op, asset, account); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.custody.balance(account, asset)
	if current.Lt(amount) {
		return nil, amountError(op, ErrInsufficientInternalBalance, asset, current, amount)
	}
	next := new(uint256.Int).Sub(current, amount)
	if err := e.push(op, account, index, amount); err != nil {
		return nil, err
	}
	e.custody.set(account, asset, next)
	e.emit(model.Event{
		Kind:      model.EventWithdraw,
		Account:   account.Hex(),
		AssetOut:  asset.Hex(),
		AmountOut: units.Dec(amount),
	})
	return next, nil
}

// BalanceOf returns the custody balance of account for a pooled token.
func (e *Engine) BalanceOf(account, asset common.Address) (*uint256.Int, error) {
	if _, err := e.registry.Index("balanceOf", asset); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.custody.balance(account, asset), nil
}
