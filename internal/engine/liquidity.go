package engine

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"dexcore/internal/amm"
	"dexcore/internal/model"
	"dexcore/internal/units"
)

type LiquidityResult struct {
	Amount0     *uint256.Int
	Amount1     *uint256.Int
	Shares      *uint256.Int
	Funding     string
	Reserve0    *uint256.Int
	Reserve1    *uint256.Int
	TotalSupply *uint256.Int
}

var bpsDen = big.NewInt(10_000)

// AddLiquidity deposits both tokens into the pool and mints LP shares to provider. Into an
// empty pool both amounts are consumed as given and set the price. Into an active pool the
// side that exceeds the current ratio is trimmed to the matching amount; the trimmed excess
// must stay within the configured ratio tolerance.
func (e *Engine) AddLiquidity(provider common.Address, amount0, amount1 *uint256.Int) (*LiquidityResult, error) {
	const op = "addLiquidity"
	if err := validAmount(op, e.registry.Token0(), amount0); err != nil {
		return nil, err
	}
	if err := validAmount(op, e.registry.Token1(), amount1); err != nil {
		return nil, err
	}
	if err := e.checkAccounts(op, e.registry.LPToken(), provider); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	used, minted, err := e.matchLocked(op, amount0, amount1)
	if err != nil {
		return nil, err
	}

	var next [2]*uint256.Int
	for i := range next {
		sum, overflow := new(uint256.Int).AddOverflow(e.pool.reserves[i], used[i])
		if overflow {
			return nil, amountError(op, ErrAmountOverflow, e.registry.Token(i), e.pool.reserves[i], used[i])
		}
		next[i] = sum
	}
	supply, overflow := new(uint256.Int).AddOverflow(e.shares.totalSupply, minted)
	if overflow {
		return nil, amountError(op, ErrAmountOverflow, e.registry.LPToken(), e.shares.totalSupply, minted)
	}
	holding := new(uint256.Int).Add(e.shares.balanceOf(provider), minted)

	plans := [2]fundingPlan{
		e.planFunding(provider, 0, used[0]),
		e.planFunding(provider, 1, used[1]),
	}
	if plans[0].external {
		if err := e.pull(op, provider, 0, used[0]); err != nil {
			return nil, err
		}
	}
	if plans[1].external {
		if err := e.pull(op, provider, 1, used[1]); err != nil {
			if plans[0].external {
				if refundErr := e.push(op, provider, 0, used[0]); refundErr != nil {
					e.logger.Error("refund after failed pull",
						zap.String("provider", provider.Hex()),
						zap.String("amount0", units.Dec(used[0])),
						zap.Error(refundErr),
					)
					return nil, fmt.Errorf("%w (refund failed: %v)", err, refundErr)
				}
			}
			return nil, err
		}
	}

	e.settle(provider, plans[0])
	e.settle(provider, plans[1])
	e.pool.reserves = next
	e.shares.totalSupply = supply
	e.shares.set(provider, holding)

	source := combinedSource(plans[0], plans[1])
	e.emit(model.Event{
		Kind:    model.EventAddLiquidity,
		Account: provider.Hex(),
		Amount0: units.Dec(used[0]),
		Amount1: units.Dec(used[1]),
		Shares:  units.Dec(minted),
		Funding: source,
	})
	return &LiquidityResult{
		Amount0:     used[0],
		Amount1:     used[1],
		Shares:      minted,
		Funding:     source,
		Reserve0:    next[0].Clone(),
		Reserve1:    next[1].Clone(),
		TotalSupply: supply.Clone(),
	}, nil
}

// matchLocked returns the amounts consumed from each side and the shares they mint.
func (e *Engine) matchLocked(op string, amount0, amount1 *uint256.Int) ([2]*uint256.Int, *uint256.Int, error) {
	a0, a1 := amount0.ToBig(), amount1.ToBig()
	if e.shares.totalSupply.IsZero() {
		minted, err := units.FromBig(amm.InitialShares(a0, a1))
		if err != nil {
			return [2]*uint256.Int{}, nil, amountError(op, ErrAmountOverflow, e.registry.LPToken(), nil, nil)
		}
		if minted.IsZero() {
			return [2]*uint256.Int{}, nil, amountError(op, ErrInsufficientLiquidityMinted, e.registry.LPToken(), minted, nil)
		}
		return [2]*uint256.Int{amount0.Clone(), amount1.Clone()}, minted, nil
	}

	r0, r1 := e.pool.reserves[0].ToBig(), e.pool.reserves[1].ToBig()
	used := [2]*big.Int{a0, a1}
	trimmed := 1
	if opt1 := amm.MatchAmount(a0, r0, r1); opt1.Cmp(a1) <= 0 {
		used[1] = opt1
	} else {
		used[0] = amm.MatchAmount(a1, r1, r0)
		trimmed = 0
	}
	supplied := []*big.Int{a0, a1}[trimmed]
	excess := new(big.Int).Sub(supplied, used[trimmed])
	// excess/supplied > tolerance/10000
	lhs := new(big.Int).Mul(excess, bpsDen)
	rhs := new(big.Int).Mul(supplied, big.NewInt(int64(e.tolerance)))
	if lhs.Cmp(rhs) > 0 {
		want, _ := units.FromBig(used[trimmed])
		have, _ := units.FromBig(supplied)
		return [2]*uint256.Int{}, nil, amountError(op, ErrRatioMismatch, e.registry.Token(trimmed), have, want)
	}

	supply := e.shares.totalSupply.ToBig()
	minted, err := units.FromBig(amm.ProportionalShares(used[0], used[1], r0, r1, supply))
	if err != nil {
		return [2]*uint256.Int{}, nil, amountError(op, ErrAmountOverflow, e.registry.LPToken(), nil, nil)
	}
	if minted.IsZero() {
		return [2]*uint256.Int{}, nil, amountError(op, ErrInsufficientLiquidityMinted, e.registry.LPToken(), minted, nil)
	}
	var out [2]*uint256.Int
	for i := range out {
		// used[i] <= supplied amount, always in range
		out[i], _ = uint256.FromBig(used[i])
	}
	return out, minted, nil
}

// RemoveLiquidity burns shares from provider and credits the proportional reserves to the
// provider's custody balance. Redeeming the whole supply empties the pool.
func (e *Engine) RemoveLiquidity(provider common.Address, shares *uint256.Int) (*LiquidityResult, error) {
	const op = "removeLiquidity"
	lp := e.registry.LPToken()
	if err := validAmount(op, lp, shares); err != nil {
		return nil, err
	}
	if err := e.checkAccounts(op, lp, provider); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	balance := e.shares.balanceOf(provider)
	if balance.Lt(shares) {
		return nil, amountError(op, ErrInsufficientShares, lp, balance, shares)
	}
	b0, b1 := amm.RedeemAmounts(shares.ToBig(), e.pool.reserves[0].ToBig(), e.pool.reserves[1].ToBig(), e.shares.totalSupply.ToBig())
	// shares <= totalSupply, so each amount is bounded by its reserve
	amount0, _ := uint256.FromBig(b0)
	amount1, _ := uint256.FromBig(b1)
	if amount0.IsZero() && amount1.IsZero() {
		return nil, amountError(op, ErrInsufficientLiquidityBurned, lp, shares, nil)
	}

	amounts := [2]*uint256.Int{amount0, amount1}
	var credits, next [2]*uint256.Int
	for i := range amounts {
		asset := e.registry.Token(i)
		current := e.custody.balance(provider, asset)
		sum, overflow := new(uint256.Int).AddOverflow(current, amounts[i])
		if overflow {
			return nil, amountError(op, ErrAmountOverflow, asset, current, amounts[i])
		}
		credits[i] = sum
		next[i] = new(uint256.Int).Sub(e.pool.reserves[i], amounts[i])
	}

	supply := new(uint256.Int).Sub(e.shares.totalSupply, shares)
	e.pool.reserves = next
	e.shares.totalSupply = supply
	e.shares.set(provider, new(uint256.Int).Sub(balance, shares))
	for i := range credits {
		e.custody.set(provider, e.registry.Token(i), credits[i])
	}

	e.emit(model.Event{
		Kind:    model.EventRemoveLiquidity,
		Account: provider.Hex(),
		Amount0: units.Dec(amount0),
		Amount1: units.Dec(amount1),
		Shares:  units.Dec(shares),
		Funding: model.FundingCustody,
	})
	return &LiquidityResult{
		Amount0:     amount0,
		Amount1:     amount1,
		Shares:      shares.Clone(),
		Funding:     model.FundingCustody,
		Reserve0:    next[0].Clone(),
		Reserve1:    next[1].Clone(),
		TotalSupply: supply.Clone(),
	}, nil
}

// ShareBalance returns the LP shares held by account.
func (e *Engine) ShareBalance(account common.Address) *uint256.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.shares.balanceOf(account)
}

func (e *Engine) TotalSupply() *uint256.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.shares.totalSupply.Clone()
}
