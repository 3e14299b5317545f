package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"dexcore/internal/amm"
	"dexcore/internal/model"
	"dexcore/internal/units"
)

type SwapResult struct {
	TokenIn   common.Address
	TokenOut  common.Address
	AmountIn  *uint256.Int
	AmountOut *uint256.Int
	Fee       *uint256.Int
	Funding   string
	Reserve0  *uint256.Int
	Reserve1  *uint256.Int
}

// Quote returns the output amount a swap of amountIn of tokenIn would produce now.
func (e *Engine) Quote(tokenIn common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	const op = "quote"
	in, err := e.registry.Index(op, tokenIn)
	if err != nil {
		return nil, err
	}
	if err := validAmount(op, tokenIn, amountIn); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pool.amountOut(op, in, tokenIn, amountIn)
}

// Swap trades amountIn of tokenIn for the other pooled token and credits the output to
// recipient's custody balance. The input comes from the caller's custody balance when it
// covers amountIn, otherwise from the caller's external holdings. A zero recipient means
// the caller.
func (e *Engine) Swap(caller, tokenIn common.Address, amountIn, minAmountOut *uint256.Int, recipient common.Address) (*SwapResult, error) {
	const op = "swap"
	in, err := e.registry.Index(op, tokenIn)
	if err != nil {
		return nil, err
	}
	if err := validAmount(op, tokenIn, amountIn); err != nil {
		return nil, err
	}
	if minAmountOut == nil {
		minAmountOut = new(uint256.Int)
	}
	if recipient == (common.Address{}) {
		recipient = caller
	}
	if err := e.checkAccounts(op, tokenIn, caller, recipient); err != nil {
		return nil, err
	}
	out := other(in)
	tokenOut := e.registry.Token(out)

	e.mu.Lock()
	defer e.mu.Unlock()

	amountOut, err := e.pool.amountOut(op, in, tokenIn, amountIn)
	if err != nil {
		return nil, err
	}
	if amountOut.IsZero() {
		return nil, amountError(op, ErrInsufficientOutputAmount, tokenOut, amountOut, nil)
	}
	if amountOut.Lt(minAmountOut) {
		return nil, amountError(op, ErrSlippageExceeded, tokenOut, amountOut, minAmountOut)
	}

	var next [2]*uint256.Int
	var overflow bool
	next[in], overflow = new(uint256.Int).AddOverflow(e.pool.reserves[in], amountIn)
	if overflow {
		return nil, amountError(op, ErrAmountOverflow, tokenIn, e.pool.reserves[in], amountIn)
	}
	next[out] = new(uint256.Int).Sub(e.pool.reserves[out], amountOut)
	before := e.pool.product()
	after := amm.Product(next[0].ToBig(), next[1].ToBig())
	if after.Cmp(before) < 0 {
		return nil, amountError(op, ErrInvariantViolation, tokenIn, nil, nil)
	}

	credit, overflow := new(uint256.Int).AddOverflow(e.custody.balance(recipient, tokenOut), amountOut)
	if overflow {
		return nil, amountError(op, ErrAmountOverflow, tokenOut, e.custody.balance(recipient, tokenOut), amountOut)
	}

	plan := e.planFunding(caller, in, amountIn)
	if plan.external {
		if err := e.pull(op, caller, in, amountIn); err != nil {
			return nil, err
		}
	}

	e.settle(caller, plan)
	e.pool.reserves = next
	e.custody.set(recipient, tokenOut, credit)

	fee, _ := units.FromBig(amm.FeeAmount(amountIn.ToBig(), e.pool.feeBps))
	e.emit(model.Event{
		Kind:      model.EventSwap,
		Account:   caller.Hex(),
		Recipient: recipient.Hex(),
		AssetIn:   tokenIn.Hex(),
		AmountIn:  units.Dec(amountIn),
		AssetOut:  tokenOut.Hex(),
		AmountOut: units.Dec(amountOut),
		Fee:       units.Dec(fee),
		Funding:   plan.source(),
	})
	return &SwapResult{
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  amountIn.Clone(),
		AmountOut: amountOut,
		Fee:       fee,
		Funding:   plan.source(),
		Reserve0:  next[0].Clone(),
		Reserve1:  next[1].Clone(),
	}, nil
}

// GetPrice returns the price of base in units of the other pooled token as the fraction
// reserveOther / reserveBase.
func (e *Engine) GetPrice(base common.Address) (numerator, denominator *uint256.Int, err error) {
	const op = "getPrice"
	index, err := e.registry.Index(op, base)
	if err != nil {
		return nil, nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.pool.initialized() {
		return nil, nil, amountError(op, ErrPoolUninitialized, base, nil, nil)
	}
	return e.pool.reserves[other(index)].Clone(), e.pool.reserves[index].Clone(), nil
}

// Reserves returns reserve0 and reserve1.
func (e *Engine) Reserves() (*uint256.Int, *uint256.Int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pool.reserves[0].Clone(), e.pool.reserves[1].Clone()
}
