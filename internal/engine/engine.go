// Package engine implements a single two-asset constant-product pool with an internal
// custody ledger and LP share accounting.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"dexcore/internal/amm"
	"dexcore/internal/model"
	"dexcore/internal/token"
	"dexcore/internal/units"
)

// DefaultAddress is the account under which the engine holds assets when none is configured.
var DefaultAddress = common.HexToAddress("0x00000000000000000000000000000000000de000")

const DefaultRatioToleranceBps = 100

type Config struct {
	Token0            common.Address
	Token1            common.Address
	LPToken           common.Address
	Address           common.Address
	FeeBps            uint32
	RatioToleranceBps uint32
	Clock             func() time.Time
}

// Recorder receives every committed mutation, in commit order, while the engine lock is held.
type Recorder interface {
	Record(event model.Event)
}

type Engine struct {
	registry  Registry
	address   common.Address
	tolerance uint32
	holdings  [2]token.Holdings
	recorder  Recorder
	clock     func() time.Time
	logger    *zap.Logger

	mu      sync.RWMutex
	pool    reservePool
	custody custodyLedger
	shares  lpShares
	seq     uint64
}

// New builds an empty engine. holdings must contain the external holdings of both pooled
// tokens, keyed by token address.
func New(cfg Config, holdings map[common.Address]token.Holdings, recorder Recorder, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry, err := NewRegistry(cfg.Token0, cfg.Token1, cfg.LPToken)
	if err != nil {
		return nil, err
	}
	if err := amm.ValidateFee(cfg.FeeBps); err != nil {
		return nil, fmt.Errorf("fee %d bps: %w", cfg.FeeBps, err)
	}
	if cfg.RatioToleranceBps > 10_000 {
		return nil, fmt.Errorf("ratio tolerance %d bps out of range", cfg.RatioToleranceBps)
	}
	address := cfg.Address
	if address == (common.Address{}) {
		address = DefaultAddress
	}
	if registry.Known(address) {
		return nil, fmt.Errorf("engine address %s collides with a registered asset", address.Hex())
	}
	h0, ok0 := holdings[cfg.Token0]
	h1, ok1 := holdings[cfg.Token1]
	if !ok0 || !ok1 || h0 == nil || h1 == nil {
		return nil, errors.New("holdings for both pooled tokens are required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		registry:  registry,
		address:   address,
		tolerance: cfg.RatioToleranceBps,
		holdings:  [2]token.Holdings{h0, h1},
		recorder:  recorder,
		clock:     clock,
		logger:    logger,
		pool:      newReservePool(cfg.FeeBps),
		custody:   newCustodyLedger(),
		shares:    newLPShares(),
	}, nil
}

func (e *Engine) Registry() Registry {
	return e.registry
}

// Address is the account that holds the engine's assets at each token contract.
func (e *Engine) Address() common.Address {
	return e.address
}

func (e *Engine) FeeBps() uint32 {
	return e.pool.feeBps
}

// Seq returns the sequence number of the last committed mutation.
func (e *Engine) Seq() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.seq
}

func validAmount(op string, asset common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return amountError(op, ErrZeroAmount, asset, nil, nil)
	}
	return nil
}

// checkAccounts rejects the engine's own custody address as a participant in op. The
// engine's external holdings back every reserve and custody balance, so it can never be
// the source or beneficiary of a mutation.
func (e *Engine) checkAccounts(op string, asset common.Address, accounts ...common.Address) error {
	for _, account := range accounts {
		if account == e.address {
			return amountError(op, ErrReservedAccount, asset, nil, nil)
		}
	}
	return nil
}

// fundingPlan decides where one input leg comes from: the caller's custody balance when it
// covers the whole amount, otherwise an external pull of the whole amount.
type fundingPlan struct {
	index     int
	amount    *uint256.Int
	external  bool
	remaining *uint256.Int
}

func (e *Engine) planFunding(account common.Address, index int, amount *uint256.Int) fundingPlan {
	bal := e.custody.balance(account, e.registry.Token(index))
	if !bal.Lt(amount) {
		return fundingPlan{index: index, amount: amount, remaining: new(uint256.Int).Sub(bal, amount)}
	}
	return fundingPlan{index: index, amount: amount, external: true}
}

// settle debits custody for a plan that did not pull externally.
func (e *Engine) settle(account common.Address, plan fundingPlan) {
	if !plan.external {
		e.custody.set(account, e.registry.Token(plan.index), plan.remaining)
	}
}

func (p fundingPlan) source() string {
	if p.external {
		return model.FundingExternal
	}
	return model.FundingCustody
}

func combinedSource(a, b fundingPlan) string {
	if a.external == b.external {
		return a.source()
	}
	return model.FundingMixed
}

// pull moves amount from the account's external holdings into the engine using the
// allowance the account granted to the engine.
func (e *Engine) pull(op string, account common.Address, index int, amount *uint256.Int) error {
	h := e.holdings[index]
	asset := e.registry.Token(index)
	err := h.TransferFrom(e.address, account, e.address, amount)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, token.ErrInsufficientAllowance):
		return amountError(op, ErrInsufficientAllowance, asset, h.Allowance(account, e.address), amount)
	case errors.Is(err, token.ErrInsufficientBalance):
		return amountError(op, ErrInsufficientExternalBalance, asset, h.BalanceOf(account), amount)
	default:
		return fmt.Errorf("%s: pull %s: %w", op, asset.Hex(), err)
	}
}

// push moves amount from the engine's external holdings to the account.
func (e *Engine) push(op string, account common.Address, index int, amount *uint256.Int) error {
	if err := e.holdings[index].Transfer(e.address, account, amount); err != nil {
		return fmt.Errorf("%s: push %s: %w", op, e.registry.Token(index).Hex(), err)
	}
	return nil
}

// emit stamps and records a committed event. Callers hold the write lock.
func (e *Engine) emit(event model.Event) {
	e.seq++
	event.Seq = e.seq
	event.Pool = e.address.Hex()
	event.Reserve0 = units.Dec(e.pool.reserves[0])
	event.Reserve1 = units.Dec(e.pool.reserves[1])
	event.TotalSupply = units.Dec(e.shares.totalSupply)
	event.Timestamp = uint64(e.clock().Unix())
	if e.recorder != nil {
		e.recorder.Record(event)
	}
	e.logger.Debug("committed",
		zap.Uint64("seq", event.Seq),
		zap.String("kind", string(event.Kind)),
		zap.String("account", event.Account),
		zap.String("reserve0", event.Reserve0),
		zap.String("reserve1", event.Reserve1),
	)
}
