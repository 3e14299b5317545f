package main

import (
	"github.com/spf13/cobra"

	"dexcore/internal/engine"
	"dexcore/internal/units"
)

// lpDecimals is the fixed precision of LP shares.
const lpDecimals = 18

type liquidityResult struct {
	Provider    string     `json:"provider"`
	Amount0     amountView `json:"amount0"`
	Amount1     amountView `json:"amount1"`
	Shares      amountView `json:"shares"`
	Funding     string     `json:"funding,omitempty"`
	Reserve0    string     `json:"reserve0"`
	Reserve1    string     `json:"reserve1"`
	TotalSupply string     `json:"total_supply"`
}

func (s *session) liquidityView(provider string, res *engine.LiquidityResult) liquidityResult {
	return liquidityResult{
		Provider:    provider,
		Amount0:     view(res.Amount0, decimalsOf(s.tokens[0])),
		Amount1:     view(res.Amount1, decimalsOf(s.tokens[1])),
		Shares:      view(res.Shares, lpDecimals),
		Funding:     res.Funding,
		Reserve0:    units.Dec(res.Reserve0),
		Reserve1:    units.Dec(res.Reserve1),
		TotalSupply: units.Dec(res.TotalSupply),
	}
}

func newAddLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-liquidity",
		Short: "Deposit both pooled tokens and mint LP shares",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMutation(cmd, func(s *session) (interface{}, error) {
				provider, err := accountFlag(cmd, "account")
				if err != nil {
					return nil, err
				}
				amount0, err := amountFlag(cmd, "amount0", decimalsOf(s.tokens[0]))
				if err != nil {
					return nil, err
				}
				amount1, err := amountFlag(cmd, "amount1", decimalsOf(s.tokens[1]))
				if err != nil {
					return nil, err
				}
				res, err := s.engine.AddLiquidity(provider, amount0, amount1)
				if err != nil {
					return nil, err
				}
				return s.liquidityView(provider.Hex(), res), nil
			})
		},
	}
	cmd.Flags().String("account", "", "liquidity provider address")
	cmd.Flags().String("amount0", "", "token0 amount in token units")
	cmd.Flags().String("amount1", "", "token1 amount in token units")
	return cmd
}

func newRemoveLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove-liquidity",
		Short: "Burn LP shares and credit the underlying tokens to custody",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMutation(cmd, func(s *session) (interface{}, error) {
				provider, err := accountFlag(cmd, "account")
				if err != nil {
					return nil, err
				}
				shares, err := amountFlag(cmd, "shares", lpDecimals)
				if err != nil {
					return nil, err
				}
				res, err := s.engine.RemoveLiquidity(provider, shares)
				if err != nil {
					return nil, err
				}
				return s.liquidityView(provider.Hex(), res), nil
			})
		},
	}
	cmd.Flags().String("account", "", "liquidity provider address")
	cmd.Flags().String("shares", "", "LP shares to burn, 18 decimals")
	return cmd
}
