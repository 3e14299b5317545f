package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dexcore/internal/chain"
	"dexcore/internal/config"
	"dexcore/internal/erc20"
	"dexcore/internal/model"
	"dexcore/internal/units"
)

type deploymentView struct {
	ChainID  uint64             `json:"chain_id"`
	Block    uint64             `json:"block"`
	Dex      string             `json:"dex"`
	HasCode  bool               `json:"has_code"`
	Token0   string             `json:"token0"`
	Token1   string             `json:"token1"`
	LPToken  string             `json:"lp_token"`
	Reserve0 string             `json:"reserve0"`
	Reserve1 string             `json:"reserve1"`
	Tokens   [2]model.TokenMeta `json:"tokens"`
	Warnings []string           `json:"warnings"`
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify a deployed pool contract over JSON-RPC",
		RunE:  runCheck,
	}
	cmd.Flags().String("rpc", "", "Ethereum JSON-RPC endpoint")
	cmd.Flags().String("dex", "", "deployed pool contract address")
	cmd.Flags().Int("max-retries", 5, "max retries per RPC call")
	cmd.Flags().Duration("retry-backoff", defaultRetryBackoff, "initial retry backoff")
	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	dex, err := config.ParseAddress("dex", cfg.Dex)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	reader := erc20.NewReader(client, erc20.Options{
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)

	report, err := reader.CheckDeployment(ctx, dex)
	if err != nil {
		return err
	}
	logger.Info("deployment checked",
		zap.Uint64("chain_id", report.ChainID),
		zap.Uint64("block", report.Block),
		zap.Bool("has_code", report.HasCode),
		zap.Int("warnings", len(report.Warnings)),
	)

	out := deploymentView{
		ChainID:  report.ChainID,
		Block:    report.Block,
		Dex:      report.Dex.Hex(),
		HasCode:  report.HasCode,
		Token0:   report.Token0.Hex(),
		Token1:   report.Token1.Hex(),
		LPToken:  report.LPToken.Hex(),
		Reserve0: units.Dec(report.Reserve0),
		Reserve1: units.Dec(report.Reserve1),
		Tokens:   report.Tokens,
		Warnings: report.Warnings,
	}
	return printJSON(cmd.OutOrStdout(), out)
}
