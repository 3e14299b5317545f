package token

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"dexcore/internal/model"
)

var (
	alice   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob     = common.HexToAddress("0x2222222222222222222222222222222222222222")
	spender = common.HexToAddress("0x00000000000000000000000000000000000de000")
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l := NewLedger(model.TokenMeta{Address: "0x00000000000000000000000000000000000000aa", Symbol: "TK0", Decimals: 18})
	if err := l.Mint(alice, uint256.NewInt(1_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	return l
}

func TestTransferFromSpendsAllowance(t *testing.T) {
	l := newTestLedger(t)
	if err := l.Approve(alice, spender, uint256.NewInt(600)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if err := l.TransferFrom(spender, alice, spender, uint256.NewInt(400)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}

	if got := l.BalanceOf(alice); got.Uint64() != 600 {
		t.Fatalf("alice balance: %d", got.Uint64())
	}
	if got := l.BalanceOf(spender); got.Uint64() != 400 {
		t.Fatalf("spender balance: %d", got.Uint64())
	}
	if got := l.Allowance(alice, spender); got.Uint64() != 200 {
		t.Fatalf("allowance: %d", got.Uint64())
	}
}

func TestTransferFromFailures(t *testing.T) {
	l := newTestLedger(t)

	err := l.TransferFrom(spender, alice, spender, uint256.NewInt(1))
	if !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}

	if err := l.Approve(alice, spender, uint256.NewInt(5_000)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	err = l.TransferFrom(spender, alice, spender, uint256.NewInt(2_000))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := l.Allowance(alice, spender); got.Uint64() != 5_000 {
		t.Fatalf("failed transfer must not spend allowance, got %d", got.Uint64())
	}
	if got := l.BalanceOf(alice); got.Uint64() != 1_000 {
		t.Fatalf("failed transfer must not move balance, got %d", got.Uint64())
	}
}

func TestTransferRejectsZeroAddress(t *testing.T) {
	l := newTestLedger(t)
	if err := l.Transfer(alice, common.Address{}, uint256.NewInt(1)); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
}

func TestStateRoundTrip(t *testing.T) {
	l := newTestLedger(t)
	if err := l.Transfer(alice, bob, uint256.NewInt(250)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := l.Approve(bob, spender, uint256.NewInt(70)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	restored, err := LoadLedger(l.State())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := restored.BalanceOf(bob); got.Uint64() != 250 {
		t.Fatalf("bob balance: %d", got.Uint64())
	}
	if got := restored.Allowance(bob, spender); got.Uint64() != 70 {
		t.Fatalf("allowance: %d", got.Uint64())
	}
	if got := restored.TotalSupply(); got.Uint64() != 1_000 {
		t.Fatalf("supply: %d", got.Uint64())
	}
}

func TestLoadLedgerRejectsSupplyMismatch(t *testing.T) {
	state := newTestLedger(t).State()
	state.TotalSupply = "999"
	if _, err := LoadLedger(state); err == nil {
		t.Fatalf("expected supply mismatch error")
	}
}
