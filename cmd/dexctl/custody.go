package main

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

type custodyResult struct {
	Account string     `json:"account"`
	Asset   string     `json:"asset"`
	Custody amountView `json:"custody"`
}

func newDepositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Move tokens from the account's wallet into engine custody",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMutation(cmd, func(s *session) (interface{}, error) {
				return s.moveCustody(cmd, s.engine.Deposit)
			})
		},
	}
	custodyFlags(cmd)
	return cmd
}

func newWithdrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Move tokens from engine custody back to the account's wallet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMutation(cmd, func(s *session) (interface{}, error) {
				return s.moveCustody(cmd, s.engine.Withdraw)
			})
		},
	}
	custodyFlags(cmd)
	return cmd
}

func custodyFlags(cmd *cobra.Command) {
	cmd.Flags().String("account", "", "account address")
	cmd.Flags().String("asset", "", "token address or symbol")
	cmd.Flags().String("amount", "", "amount in token units (e.g. 1.5)")
}

func (s *session) moveCustody(cmd *cobra.Command, op func(account, asset common.Address, amount *uint256.Int) (*uint256.Int, error)) (interface{}, error) {
	account, err := accountFlag(cmd, "account")
	if err != nil {
		return nil, err
	}
	assetRaw, _ := cmd.Flags().GetString("asset")
	asset, ledger, err := s.asset(assetRaw)
	if err != nil {
		return nil, err
	}
	amount, err := amountFlag(cmd, "amount", decimalsOf(ledger))
	if err != nil {
		return nil, err
	}
	balance, err := op(account, asset, amount)
	if err != nil {
		return nil, err
	}
	return custodyResult{
		Account: account.Hex(),
		Asset:   asset.Hex(),
		Custody: view(balance, decimalsOf(ledger)),
	}, nil
}

func newBalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show an account's custody balance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, func(s *session) (interface{}, error) {
				account, err := accountFlag(cmd, "account")
				if err != nil {
					return nil, err
				}
				assetRaw, _ := cmd.Flags().GetString("asset")
				asset, ledger, err := s.asset(assetRaw)
				if err != nil {
					return nil, err
				}
				balance, err := s.engine.BalanceOf(account, asset)
				if err != nil {
					return nil, err
				}
				return custodyResult{
					Account: account.Hex(),
					Asset:   asset.Hex(),
					Custody: view(balance, decimalsOf(ledger)),
				}, nil
			})
		},
	}
	cmd.Flags().String("account", "", "account address")
	cmd.Flags().String("asset", "", "token address or symbol")
	return cmd
}
