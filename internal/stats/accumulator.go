package stats

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"dexcore/internal/model"
)

var errInvalidEvent = errors.New("invalid event")

// Accumulator holds aggregate values for one pool window.
type Accumulator struct {
	PoolAddress string
	Token0      string
	WindowStart uint64
	WindowEnd   uint64
	SwapCount   uint64
	AddCount    uint64
	RemoveCount uint64
	Volume0     *big.Int
	Volume1     *big.Int
	Fee0        *big.Int
	Fee1        *big.Int
	Reserve0    *big.Int
	Reserve1    *big.Int
	TotalSupply *big.Int
	LastSeq     uint64
}

func NewAccumulator(event model.Event, token0 string, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		PoolAddress: event.Pool,
		Token0:      token0,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Volume0:     big.NewInt(0),
		Volume1:     big.NewInt(0),
		Fee0:        big.NewInt(0),
		Fee1:        big.NewInt(0),
		Reserve0:    big.NewInt(0),
		Reserve1:    big.NewInt(0),
		TotalSupply: big.NewInt(0),
	}
}

// AddEvent folds one journal event into the window. Every event carries the post-commit
// reserves, so the latest sequence wins for the closing state.
func (a *Accumulator) AddEvent(event model.Event) error {
	if event.Seq >= a.LastSeq {
		reserve0, err := parseBigInt(event.Reserve0)
		if err != nil {
			return err
		}
		reserve1, err := parseBigInt(event.Reserve1)
		if err != nil {
			return err
		}
		supply, err := parseBigInt(event.TotalSupply)
		if err != nil {
			return err
		}
		a.Reserve0, a.Reserve1, a.TotalSupply = reserve0, reserve1, supply
		a.LastSeq = event.Seq
	}

	switch event.Kind {
	case model.EventSwap:
		return a.applySwap(event)
	case model.EventAddLiquidity:
		a.AddCount++
	case model.EventRemoveLiquidity:
		a.RemoveCount++
	}
	return nil
}

func (a *Accumulator) applySwap(event model.Event) error {
	amountIn, err := parseBigInt(event.AmountIn)
	if err != nil {
		return err
	}
	amountOut, err := parseBigInt(event.AmountOut)
	if err != nil {
		return err
	}
	fee, err := parseBigInt(event.Fee)
	if err != nil {
		return err
	}

	if strings.EqualFold(event.AssetIn, a.Token0) {
		a.Volume0.Add(a.Volume0, amountIn)
		a.Volume1.Add(a.Volume1, amountOut)
		a.Fee0.Add(a.Fee0, fee)
	} else {
		a.Volume1.Add(a.Volume1, amountIn)
		a.Volume0.Add(a.Volume0, amountOut)
		a.Fee1.Add(a.Fee1, fee)
	}
	a.SwapCount++
	return nil
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("%w: invalid int %q", errInvalidEvent, value)
	}
	return parsed, nil
}
