package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"dexcore/internal/engine"
	"dexcore/internal/model"
	"dexcore/internal/units"
)

const alice = "0x00000000000000000000000000000000000A11CE"

type cli struct {
	t    *testing.T
	args []string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	return &cli{t: t, args: []string{
		"--state-file", filepath.Join(dir, "state.json"),
		"--events-out", filepath.Join(dir, "events.jsonl"),
		"--log-level", "error",
	}}
}

func (c *cli) run(args ...string) ([]byte, error) {
	c.t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, c.args...))
	err := root.Execute()
	return out.Bytes(), err
}

func (c *cli) mustRun(v interface{}, args ...string) {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("%s: %v\n%s", strings.Join(args, " "), err, out)
	}
	if v == nil {
		return
	}
	if err := json.Unmarshal(out, v); err != nil {
		c.t.Fatalf("%s: decode output: %v\n%s", args[0], err, out)
	}
}

func TestCLIRoundTrip(t *testing.T) {
	c := newCLI(t)
	for _, asset := range []string{"TK0", "TK1"} {
		c.mustRun(nil, "mint", "--account", alice, "--asset", asset, "--amount", "1000")
		c.mustRun(nil, "approve", "--account", alice, "--asset", asset, "--amount", "max")
	}

	var added liquidityResult
	c.mustRun(&added, "add-liquidity", "--account", alice, "--amount0", "100", "--amount1", "100")
	if added.Shares.Raw != "100000000000000000000" {
		t.Fatalf("shares = %s", added.Shares.Raw)
	}
	if added.Funding != "external" {
		t.Fatalf("funding = %s", added.Funding)
	}

	var quote quoteResult
	c.mustRun(&quote, "quote", "--asset", "TK0", "--amount", "10")
	if quote.AmountOut.Raw != "9066108938801491315" {
		t.Fatalf("quote = %s", quote.AmountOut.Raw)
	}

	var swapped swapResult
	c.mustRun(&swapped, "sell", "--account", alice, "--asset", "tk0", "--amount", "10")
	if swapped.AmountOut.Raw != quote.AmountOut.Raw {
		t.Fatalf("swap out = %s, quoted %s", swapped.AmountOut.Raw, quote.AmountOut.Raw)
	}
	quoted, err := units.ParseBaseUnits(quote.AmountOut.Raw)
	if err != nil {
		t.Fatalf("parse quote: %v", err)
	}
	if swapped.MinOut.Raw != units.Dec(slippageBound(quoted, defaultSlippageBps)) {
		t.Fatalf("min out = %s", swapped.MinOut.Raw)
	}
	if swapped.Reserve0 != "110000000000000000000" {
		t.Fatalf("reserve0 = %s", swapped.Reserve0)
	}

	var balance custodyResult
	c.mustRun(&balance, "balance", "--account", alice, "--asset", "TK1")
	if balance.Custody.Raw != quote.AmountOut.Raw {
		t.Fatalf("custody = %s", balance.Custody.Raw)
	}
	c.mustRun(&balance, "withdraw", "--account", alice, "--asset", "TK1", "--amount", "1")
	if balance.Custody.Raw != "8066108938801491315" {
		t.Fatalf("custody after withdraw = %s", balance.Custody.Raw)
	}

	var audits []auditView
	c.mustRun(&audits, "audit")
	for _, a := range audits {
		if !a.Solvent || a.Surplus.Raw != "0" {
			t.Fatalf("audit %s: solvent=%v surplus=%s", a.Symbol, a.Solvent, a.Surplus.Raw)
		}
	}

	var windows []map[string]interface{}
	c.mustRun(&windows, "stats", "--window", "24h")
	var swaps float64
	for _, w := range windows {
		swaps += w["SwapCount"].(float64)
	}
	if swaps != 1 {
		t.Fatalf("swap count = %v", swaps)
	}
}

func TestCLIFailedSwapKeepsState(t *testing.T) {
	c := newCLI(t)
	c.mustRun(nil, "mint", "--account", alice, "--asset", "TK0", "--amount", "100")
	c.mustRun(nil, "mint", "--account", alice, "--asset", "TK1", "--amount", "100")
	c.mustRun(nil, "approve", "--account", alice, "--asset", "TK0", "--amount", "100")
	c.mustRun(nil, "approve", "--account", alice, "--asset", "TK1", "--amount", "100")
	c.mustRun(nil, "add-liquidity", "--account", alice, "--amount0", "50", "--amount1", "50")

	if _, err := c.run("swap", "--account", alice, "--asset", "TK0", "--amount", "1", "--min-out", "1"); err == nil {
		t.Fatalf("expected slippage error")
	}

	var reserves reservesResult
	c.mustRun(&reserves, "reserves")
	if reserves.Reserve0.Raw != "50000000000000000000" || reserves.Reserve1.Raw != "50000000000000000000" {
		t.Fatalf("reserves changed: %s/%s", reserves.Reserve0.Raw, reserves.Reserve1.Raw)
	}

	var status statusView
	c.mustRun(&status, "status", "--account", alice)
	if status.Assets[0].Wallet.Raw != "50000000000000000000" {
		t.Fatalf("wallet = %s", status.Assets[0].Wallet.Raw)
	}
	if status.PoolShare != "1.000000000000000000" {
		t.Fatalf("pool share = %s", status.PoolShare)
	}
}

func TestCLIRejectsUnknownAsset(t *testing.T) {
	c := newCLI(t)
	if _, err := c.run("mint", "--account", alice, "--asset", "NOPE", "--amount", "1"); err == nil {
		t.Fatalf("expected unknown asset error")
	}
	if _, err := c.run("quote", "--asset", "0x0000000000000000000000000000000000000bad", "--amount", "1"); err == nil {
		t.Fatalf("expected invalid asset error")
	}
	if _, err := os.Stat(c.args[1]); !os.IsNotExist(err) {
		t.Fatalf("failed commands must not write state: %v", err)
	}
}

func TestSlippageBound(t *testing.T) {
	got := slippageBound(uint256.NewInt(1000), 500)
	if got.Uint64() != 950 {
		t.Fatalf("bound = %d", got.Uint64())
	}
	max := new(uint256.Int).Not(new(uint256.Int))
	if slippageBound(max, 0).Cmp(max) != 0 {
		t.Fatalf("zero slippage must keep the quote")
	}
}

func TestCLIRefusesEngineAccount(t *testing.T) {
	c := newCLI(t)
	engineAddr := engine.DefaultAddress.Hex()
	if _, err := c.run("mint", "--account", engineAddr, "--asset", "TK0", "--amount", "1"); !errors.Is(err, engine.ErrReservedAccount) {
		t.Fatalf("mint: expected ErrReservedAccount, got %v", err)
	}
	if _, err := c.run("approve", "--account", engineAddr, "--asset", "TK0", "--amount", "max"); !errors.Is(err, engine.ErrReservedAccount) {
		t.Fatalf("approve: expected ErrReservedAccount, got %v", err)
	}
	if _, err := c.run("deposit", "--account", engineAddr, "--asset", "TK0", "--amount", "1"); !errors.Is(err, engine.ErrReservedAccount) {
		t.Fatalf("deposit: expected ErrReservedAccount, got %v", err)
	}
}

func TestCLIRejectsUnbackedState(t *testing.T) {
	c := newCLI(t)
	c.mustRun(nil, "mint", "--account", alice, "--asset", "TK0", "--amount", "10")
	c.mustRun(nil, "approve", "--account", alice, "--asset", "TK0", "--amount", "10")
	c.mustRun(nil, "deposit", "--account", alice, "--asset", "TK0", "--amount", "4")

	path := c.args[1]
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	var world model.WorldState
	if err := json.Unmarshal(data, &world); err != nil {
		t.Fatalf("parse state: %v", err)
	}
	if len(world.Engine.Custody) != 1 {
		t.Fatalf("custody entries: %+v", world.Engine.Custody)
	}
	world.Engine.Custody[0].Amount = "5000000000000000000"
	data, err = json.Marshal(world)
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write state: %v", err)
	}

	out, err := c.run("balance", "--account", alice, "--asset", "TK0")
	if err == nil || !strings.Contains(err.Error(), "short by 1000000000000000000") {
		t.Fatalf("expected unbacked state to fail, got %v\n%s", err, out)
	}
}
