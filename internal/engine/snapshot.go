package engine

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"dexcore/internal/model"
	"dexcore/internal/units"
)

// Snapshot returns a copy of the engine state with entries sorted by account, then asset.
func (e *Engine) Snapshot() model.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := model.Snapshot{
		Token0:      e.registry.Token0().Hex(),
		Token1:      e.registry.Token1().Hex(),
		LPToken:     e.registry.LPToken().Hex(),
		FeeBps:      e.pool.feeBps,
		Reserve0:    units.Dec(e.pool.reserves[0]),
		Reserve1:    units.Dec(e.pool.reserves[1]),
		TotalSupply: units.Dec(e.shares.totalSupply),
		Seq:         e.seq,
		Custody:     make([]model.CustodyBalance, 0, len(e.custody.balances)),
		Shares:      make([]model.ShareBalance, 0, len(e.shares.balances)),
	}

	keys := make([]custodyKey, 0, len(e.custody.balances))
	for key := range e.custody.balances {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if c := bytes.Compare(keys[i].account[:], keys[j].account[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(keys[i].asset[:], keys[j].asset[:]) < 0
	})
	for _, key := range keys {
		snap.Custody = append(snap.Custody, model.CustodyBalance{
			Account: key.account.Hex(),
			Asset:   key.asset.Hex(),
			Amount:  units.Dec(e.custody.balances[key]),
		})
	}

	holders := make([]common.Address, 0, len(e.shares.balances))
	for holder := range e.shares.balances {
		holders = append(holders, holder)
	}
	sort.Slice(holders, func(i, j int) bool {
		return bytes.Compare(holders[i][:], holders[j][:]) < 0
	})
	for _, holder := range holders {
		snap.Shares = append(snap.Shares, model.ShareBalance{
			Account: holder.Hex(),
			Amount:  units.Dec(e.shares.balances[holder]),
		})
	}
	return snap
}

// Restore replaces the engine state with snap after checking it against the registry and
// the share and reserve invariants. On error the engine is left unchanged.
func (e *Engine) Restore(snap model.Snapshot) error {
	if err := e.checkIDs(snap); err != nil {
		return err
	}
	if snap.FeeBps != e.pool.feeBps {
		return fmt.Errorf("restore: fee %d bps does not match configured %d bps", snap.FeeBps, e.pool.feeBps)
	}
	pool := newReservePool(e.pool.feeBps)
	var err error
	if pool.reserves[0], err = units.ParseBaseUnits(snap.Reserve0); err != nil {
		return fmt.Errorf("restore reserve0: %w", err)
	}
	if pool.reserves[1], err = units.ParseBaseUnits(snap.Reserve1); err != nil {
		return fmt.Errorf("restore reserve1: %w", err)
	}
	shares := newLPShares()
	if shares.totalSupply, err = units.ParseBaseUnits(snap.TotalSupply); err != nil {
		return fmt.Errorf("restore total supply: %w", err)
	}
	if pool.initialized() == shares.totalSupply.IsZero() || pool.reserves[0].IsZero() != pool.reserves[1].IsZero() {
		return fmt.Errorf("restore: reserves %s/%s inconsistent with total supply %s",
			snap.Reserve0, snap.Reserve1, snap.TotalSupply)
	}

	custody := newCustodyLedger()
	for _, entry := range snap.Custody {
		if !common.IsHexAddress(entry.Account) || !common.IsHexAddress(entry.Asset) {
			return fmt.Errorf("restore custody: invalid address in %s/%s", entry.Account, entry.Asset)
		}
		asset := common.HexToAddress(entry.Asset)
		if _, err := e.registry.Index("restore", asset); err != nil {
			return err
		}
		amount, err := units.ParseBaseUnits(entry.Amount)
		if err != nil {
			return fmt.Errorf("restore custody %s: %w", entry.Account, err)
		}
		key := custodyKey{account: common.HexToAddress(entry.Account), asset: asset}
		if key.account == e.address {
			return fmt.Errorf("restore custody: %w", ErrReservedAccount)
		}
		if _, dup := custody.balances[key]; dup {
			return fmt.Errorf("restore custody: duplicate entry %s/%s", entry.Account, entry.Asset)
		}
		custody.set(key.account, key.asset, amount)
	}

	sum := new(uint256.Int)
	for _, entry := range snap.Shares {
		if !common.IsHexAddress(entry.Account) {
			return fmt.Errorf("restore shares: invalid address %s", entry.Account)
		}
		amount, err := units.ParseBaseUnits(entry.Amount)
		if err != nil {
			return fmt.Errorf("restore shares %s: %w", entry.Account, err)
		}
		var overflow bool
		if sum, overflow = new(uint256.Int).AddOverflow(sum, amount); overflow {
			return fmt.Errorf("restore shares: %w", ErrAmountOverflow)
		}
		holder := common.HexToAddress(entry.Account)
		if holder == e.address {
			return fmt.Errorf("restore shares: %w", ErrReservedAccount)
		}
		if _, dup := shares.balances[holder]; dup {
			return fmt.Errorf("restore shares: duplicate entry %s", entry.Account)
		}
		shares.set(holder, amount)
	}
	if !sum.Eq(shares.totalSupply) {
		return fmt.Errorf("restore: share balances sum to %s, total supply is %s", units.Dec(sum), snap.TotalSupply)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.pool = pool
	e.custody = custody
	e.shares = shares
	e.seq = snap.Seq
	return nil
}

func (e *Engine) checkIDs(snap model.Snapshot) error {
	want := [3]common.Address{e.registry.Token0(), e.registry.Token1(), e.registry.LPToken()}
	got := [3]string{snap.Token0, snap.Token1, snap.LPToken}
	for i := range want {
		if !common.IsHexAddress(got[i]) || common.HexToAddress(got[i]) != want[i] {
			return fmt.Errorf("restore: snapshot asset %q does not match registry %s", got[i], want[i].Hex())
		}
	}
	return nil
}
