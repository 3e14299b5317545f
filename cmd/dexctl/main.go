package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "dexctl",
		Short:        "Constant-product pool engine with custody ledger",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("state-file", "./data/state.json", "world state file (ignored when --pg-dsn is set)")
	root.PersistentFlags().String("pg-dsn", "", "Postgres DSN for state, events and metrics")
	root.PersistentFlags().String("events-out", "./data/events.jsonl", "event journal JSONL path (empty disables)")
	root.PersistentFlags().Uint32("fee-bps", 30, "swap fee in basis points (multiple of 10)")
	root.PersistentFlags().Uint32("ratio-tolerance-bps", 100, "max unmatched excess when adding liquidity, in basis points")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newDepositCmd(),
		newWithdrawCmd(),
		newBalanceCmd(),
		newQuoteCmd(),
		newSwapCmd(),
		newBuyCmd(),
		newSellCmd(),
		newPriceCmd(),
		newReservesCmd(),
		newAddLiquidityCmd(),
		newRemoveLiquidityCmd(),
		newMintCmd(),
		newApproveCmd(),
		newStatusCmd(),
		newAuditCmd(),
		newStatsCmd(),
		newCheckCmd(),
	)
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}

const defaultRetryBackoff = 500 * time.Millisecond
