// Package token implements the external side of custody: an in-process ERC20-style
// contract with balances, allowances and mint/transfer/transferFrom.
package token

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"dexcore/internal/model"
	"dexcore/internal/units"
)

var (
	ErrInsufficientBalance   = errors.New("transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrZeroAddress           = errors.New("zero address")
	ErrSupplyOverflow        = errors.New("total supply overflow")
)

// Holdings is what the engine needs from an asset contract.
type Holdings interface {
	BalanceOf(owner common.Address) *uint256.Int
	Allowance(owner, spender common.Address) *uint256.Int
	Transfer(from, to common.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to common.Address, amount *uint256.Int) error
}

// Ledger is an in-memory fungible token.
type Ledger struct {
	meta model.TokenMeta

	mu          sync.RWMutex
	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int
}

var _ Holdings = (*Ledger)(nil)

func NewLedger(meta model.TokenMeta) *Ledger {
	return &Ledger{
		meta:        meta,
		totalSupply: new(uint256.Int),
		balances:    make(map[common.Address]*uint256.Int),
		allowances:  make(map[common.Address]map[common.Address]*uint256.Int),
	}
}

// Address returns the token's contract address.
func (l *Ledger) Address() common.Address {
	return common.HexToAddress(l.meta.Address)
}

func (l *Ledger) Meta() model.TokenMeta {
	return l.meta
}

func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalSupply.Clone()
}

func (l *Ledger) BalanceOf(owner common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balanceLocked(owner).Clone()
}

func (l *Ledger) Allowance(owner, spender common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowanceLocked(owner, spender).Clone()
}

// Approve sets the amount spender may move out of owner's balance.
func (l *Ledger) Approve(owner, spender common.Address, amount *uint256.Int) error {
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return ErrZeroAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	inner, ok := l.allowances[owner]
	if !ok {
		inner = make(map[common.Address]*uint256.Int)
		l.allowances[owner] = inner
	}
	if amount.IsZero() {
		delete(inner, spender)
		return nil
	}
	inner[spender] = amount.Clone()
	return nil
}

// Mint creates amount new tokens for to.
func (l *Ledger) Mint(to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	supply, overflow := new(uint256.Int).AddOverflow(l.totalSupply, amount)
	if overflow {
		return ErrSupplyOverflow
	}
	l.totalSupply = supply
	l.setBalanceLocked(to, new(uint256.Int).Add(l.balanceLocked(to), amount))
	return nil
}

// Transfer moves amount from from to to.
func (l *Ledger) Transfer(from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.moveLocked(from, to, amount)
}

// TransferFrom moves amount from from to to, spending spender's allowance.
func (l *Ledger) TransferFrom(spender, from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	allowed := l.allowanceLocked(from, spender)
	if allowed.Lt(amount) {
		return fmt.Errorf("%w: have %s want %s", ErrInsufficientAllowance, units.Dec(allowed), units.Dec(amount))
	}
	if err := l.moveLocked(from, to, amount); err != nil {
		return err
	}
	remaining := new(uint256.Int).Sub(allowed, amount)
	if remaining.IsZero() {
		delete(l.allowances[from], spender)
	} else {
		l.allowances[from][spender] = remaining
	}
	return nil
}

func (l *Ledger) moveLocked(from, to common.Address, amount *uint256.Int) error {
	balance := l.balanceLocked(from)
	if balance.Lt(amount) {
		return fmt.Errorf("%w: have %s want %s", ErrInsufficientBalance, units.Dec(balance), units.Dec(amount))
	}
	l.setBalanceLocked(from, new(uint256.Int).Sub(balance, amount))
	l.setBalanceLocked(to, new(uint256.Int).Add(l.balanceLocked(to), amount))
	return nil
}

func (l *Ledger) balanceLocked(owner common.Address) *uint256.Int {
	if bal, ok := l.balances[owner]; ok {
		return bal
	}
	return new(uint256.Int)
}

func (l *Ledger) setBalanceLocked(owner common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		delete(l.balances, owner)
		return
	}
	l.balances[owner] = amount
}

func (l *Ledger) allowanceLocked(owner, spender common.Address) *uint256.Int {
	if inner, ok := l.allowances[owner]; ok {
		if amount, ok := inner[spender]; ok {
			return amount
		}
	}
	return new(uint256.Int)
}

// State returns a sorted, serializable copy of the ledger.
func (l *Ledger) State() model.TokenLedgerState {
	l.mu.RLock()
	defer l.mu.RUnlock()

	state := model.TokenLedgerState{
		Meta:        l.meta,
		TotalSupply: units.Dec(l.totalSupply),
		Balances:    make([]model.AccountAmount, 0, len(l.balances)),
		Allowances:  make([]model.Allowance, 0),
	}
	for owner, amount := range l.balances {
		state.Balances = append(state.Balances, model.AccountAmount{Account: owner.Hex(), Amount: units.Dec(amount)})
	}
	sort.Slice(state.Balances, func(i, j int) bool {
		return state.Balances[i].Account < state.Balances[j].Account
	})
	for owner, inner := range l.allowances {
		for spender, amount := range inner {
			state.Allowances = append(state.Allowances, model.Allowance{
				Owner:   owner.Hex(),
				Spender: spender.Hex(),
				Amount:  units.Dec(amount),
			})
		}
	}
	sort.Slice(state.Allowances, func(i, j int) bool {
		a, b := state.Allowances[i], state.Allowances[j]
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		return a.Spender < b.Spender
	})
	return state
}

// LoadLedger rebuilds a Ledger from State output, checking that balances sum to supply.
func LoadLedger(state model.TokenLedgerState) (*Ledger, error) {
	l := NewLedger(state.Meta)

	supply, err := units.ParseBaseUnits(state.TotalSupply)
	if err != nil {
		return nil, fmt.Errorf("total supply: %w", err)
	}
	l.totalSupply = supply

	sum := new(uint256.Int)
	for _, entry := range state.Balances {
		amount, err := units.ParseBaseUnits(entry.Amount)
		if err != nil {
			return nil, fmt.Errorf("balance %s: %w", entry.Account, err)
		}
		if !common.IsHexAddress(entry.Account) {
			return nil, fmt.Errorf("invalid account: %s", entry.Account)
		}
		var overflow bool
		if sum, overflow = new(uint256.Int).AddOverflow(sum, amount); overflow {
			return nil, ErrSupplyOverflow
		}
		l.setBalanceLocked(common.HexToAddress(entry.Account), amount)
	}
	if !sum.Eq(supply) {
		return nil, fmt.Errorf("balances sum %s does not match total supply %s", units.Dec(sum), units.Dec(supply))
	}

	for _, entry := range state.Allowances {
		amount, err := units.ParseBaseUnits(entry.Amount)
		if err != nil {
			return nil, fmt.Errorf("allowance %s/%s: %w", entry.Owner, entry.Spender, err)
		}
		if !common.IsHexAddress(entry.Owner) || !common.IsHexAddress(entry.Spender) {
			return nil, fmt.Errorf("invalid allowance addresses: %s/%s", entry.Owner, entry.Spender)
		}
		if err := l.Approve(common.HexToAddress(entry.Owner), common.HexToAddress(entry.Spender), amount); err != nil {
			return nil, err
		}
	}
	return l, nil
}
