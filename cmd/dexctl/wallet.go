package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"dexcore/internal/engine"
	"dexcore/internal/token"
	"dexcore/internal/units"
)

type walletResult struct {
	Account string     `json:"account"`
	Asset   string     `json:"asset"`
	Spender string     `json:"spender,omitempty"`
	Amount  amountView `json:"amount"`
	Balance amountView `json:"balance"`
}

// ledgerFlag resolves --asset to a simulated token ledger; wallet commands cannot act on
// unknown contracts.
func (s *session) ledgerFlag(cmd *cobra.Command) (*token.Ledger, error) {
	raw, _ := cmd.Flags().GetString("asset")
	asset, ledger, err := s.asset(raw)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, fmt.Errorf("no token ledger for %s", asset.Hex())
	}
	return ledger, nil
}

// userFlag parses an account flag that must not name the engine's custody address.
func (s *session) userFlag(cmd *cobra.Command, name string) (common.Address, error) {
	account, err := accountFlag(cmd, name)
	if err != nil {
		return common.Address{}, err
	}
	if account == s.engine.Address() {
		return common.Address{}, fmt.Errorf("--%s %s: %w", name, account.Hex(), engine.ErrReservedAccount)
	}
	return account, nil
}

func newMintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint simulated tokens into an account's wallet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMutation(cmd, func(s *session) (interface{}, error) {
				account, err := s.userFlag(cmd, "account")
				if err != nil {
					return nil, err
				}
				ledger, err := s.ledgerFlag(cmd)
				if err != nil {
					return nil, err
				}
				decimals := decimalsOf(ledger)
				amount, err := amountFlag(cmd, "amount", decimals)
				if err != nil {
					return nil, err
				}
				if err := ledger.Mint(account, amount); err != nil {
					return nil, fmt.Errorf("mint %s: %w", ledger.Meta().Symbol, err)
				}
				return walletResult{
					Account: account.Hex(),
					Asset:   ledger.Address().Hex(),
					Amount:  view(amount, decimals),
					Balance: view(ledger.BalanceOf(account), decimals),
				}, nil
			})
		},
	}
	cmd.Flags().String("account", "", "account address")
	cmd.Flags().String("asset", "", "token address or symbol")
	cmd.Flags().String("amount", "", "amount in token units")
	return cmd
}

func newApproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Set the allowance a spender (the engine by default) may pull from an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMutation(cmd, func(s *session) (interface{}, error) {
				account, err := s.userFlag(cmd, "account")
				if err != nil {
					return nil, err
				}
				ledger, err := s.ledgerFlag(cmd)
				if err != nil {
					return nil, err
				}
				spender := s.engine.Address()
				if raw, _ := cmd.Flags().GetString("spender"); strings.TrimSpace(raw) != "" {
					if spender, err = accountFlag(cmd, "spender"); err != nil {
						return nil, err
					}
				}
				decimals := decimalsOf(ledger)
				var amount *uint256.Int
				if raw, _ := cmd.Flags().GetString("amount"); strings.EqualFold(strings.TrimSpace(raw), "max") {
					amount = new(uint256.Int).Not(new(uint256.Int))
				} else if amount, err = amountFlag(cmd, "amount", decimals); err != nil {
					return nil, err
				}
				if err := ledger.Approve(account, spender, amount); err != nil {
					return nil, fmt.Errorf("approve %s: %w", ledger.Meta().Symbol, err)
				}
				return walletResult{
					Account: account.Hex(),
					Asset:   ledger.Address().Hex(),
					Spender: spender.Hex(),
					Amount:  view(ledger.Allowance(account, spender), decimals),
					Balance: view(ledger.BalanceOf(account), decimals),
				}, nil
			})
		},
	}
	cmd.Flags().String("account", "", "token owner address")
	cmd.Flags().String("asset", "", "token address or symbol")
	cmd.Flags().String("spender", "", "spender address (defaults to the engine)")
	cmd.Flags().String("amount", "", `allowance in token units, or "max"`)
	return cmd
}

type assetStatusView struct {
	Asset      string     `json:"asset"`
	Symbol     string     `json:"symbol"`
	Custody    amountView `json:"custody"`
	Wallet     amountView `json:"wallet"`
	Allowance  amountView `json:"allowance"`
	Underlying amountView `json:"underlying"`
}

type statusView struct {
	Account     string             `json:"account"`
	Assets      [2]assetStatusView `json:"assets"`
	Shares      amountView         `json:"shares"`
	TotalSupply string             `json:"total_supply"`
	PoolShare   string             `json:"pool_share"`
	Reserve0    string             `json:"reserve0"`
	Reserve1    string             `json:"reserve1"`
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show an account's wallet, custody, allowance and LP position",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, func(s *session) (interface{}, error) {
				account, err := accountFlag(cmd, "account")
				if err != nil {
					return nil, err
				}
				st := s.engine.Status(account)
				out := statusView{
					Account:     st.Account.Hex(),
					Shares:      view(st.Shares, lpDecimals),
					TotalSupply: units.Dec(st.TotalSupply),
					PoolShare:   units.FormatRatio(st.Shares, st.TotalSupply),
					Reserve0:    units.Dec(st.Reserve0),
					Reserve1:    units.Dec(st.Reserve1),
				}
				for i, a := range st.Assets {
					decimals := decimalsOf(s.tokens[i])
					out.Assets[i] = assetStatusView{
						Asset:      a.Asset.Hex(),
						Symbol:     s.tokens[i].Meta().Symbol,
						Custody:    view(a.Custody, decimals),
						Wallet:     view(a.Wallet, decimals),
						Allowance:  view(a.Allowance, decimals),
						Underlying: view(a.Underlying, decimals),
					}
				}
				return out, nil
			})
		},
	}
	cmd.Flags().String("account", "", "account address")
	return cmd
}

type auditView struct {
	Asset    string     `json:"asset"`
	Symbol   string     `json:"symbol"`
	Holdings amountView `json:"holdings"`
	Reserve  amountView `json:"reserve"`
	Custody  amountView `json:"custody"`
	Surplus  amountView `json:"surplus"`
	Deficit  amountView `json:"deficit"`
	Solvent  bool       `json:"solvent"`
}

func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check that engine holdings cover reserves plus custody",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, func(s *session) (interface{}, error) {
				audits := s.engine.Audit()
				out := make([]auditView, 0, len(audits))
				insolvent := make([]common.Address, 0)
				for i, a := range audits {
					decimals := decimalsOf(s.tokens[i])
					out = append(out, auditView{
						Asset:    a.Asset.Hex(),
						Symbol:   s.tokens[i].Meta().Symbol,
						Holdings: view(a.Holdings, decimals),
						Reserve:  view(a.Reserve, decimals),
						Custody:  view(a.Custody, decimals),
						Surplus:  view(a.Surplus, decimals),
						Deficit:  view(a.Deficit, decimals),
						Solvent:  a.Solvent,
					})
					if !a.Solvent {
						insolvent = append(insolvent, a.Asset)
					}
				}
				if len(insolvent) > 0 {
					s.logger.Sugar().Errorw("engine insolvent", "assets", insolvent)
				}
				return out, nil
			})
		},
	}
}
