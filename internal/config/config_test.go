package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.FeeBps != 30 || cfg.RatioToleranceBps != 100 {
		t.Fatalf("unexpected fee settings: %+v", cfg)
	}
	if cfg.Token0.Symbol != "TK0" || cfg.Token1.Decimals != 18 {
		t.Fatalf("unexpected token defaults: %+v %+v", cfg.Token0, cfg.Token1)
	}
	if cfg.StateFile != "./data/state.json" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected paths: %+v", cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	file := filepath.Join(dir, "dex.yaml")
	content := "fee-bps: 50\ntoken0:\n  symbol: USDC\n  decimals: 6\nwindow: 5m\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DEX_WINDOW", "15m")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Uint32("fee-bps", 30, "")
	if err := flags.Parse([]string{"--fee-bps=100"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(file, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.FeeBps != 100 {
		t.Fatalf("flag should win, got fee %d", cfg.FeeBps)
	}
	if cfg.Window != "15m" {
		t.Fatalf("env should beat config file, got window %s", cfg.Window)
	}
	if cfg.Token0.Symbol != "USDC" || cfg.Token0.Decimals != 6 {
		t.Fatalf("nested config not read: %+v", cfg.Token0)
	}
}

func TestParseAddress(t *testing.T) {
	if _, err := ParseAddress("token0", "nope"); err == nil {
		t.Fatalf("expected invalid address error")
	}
	addr, err := ParseAddress("token0", " 0x00000000000000000000000000000000000000aa ")
	if err != nil || addr != common.HexToAddress("0x00000000000000000000000000000000000000aa") {
		t.Fatalf("unexpected address %s err %v", addr.Hex(), err)
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]uint64{
		"":                     0,
		"1700000000":           1_700_000_000,
		"2023-11-14T22:13:20Z": 1_700_000_000,
	}
	for input, want := range cases {
		got, err := ParseTimestamp(input)
		if err != nil || got != want {
			t.Fatalf("%q: got %d err %v", input, got, err)
		}
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatalf("expected parse error")
	}
}
