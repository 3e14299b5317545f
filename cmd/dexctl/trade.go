package main

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dexcore/internal/units"
)

// defaultSlippageBps bounds buy and sell orders placed without --min-out.
const defaultSlippageBps = 500

type quoteResult struct {
	TokenIn   string     `json:"token_in"`
	TokenOut  string     `json:"token_out"`
	AmountIn  amountView `json:"amount_in"`
	AmountOut amountView `json:"amount_out"`
	Price     string     `json:"price"`
}

type swapResult struct {
	Account   string     `json:"account"`
	Recipient string     `json:"recipient"`
	TokenIn   string     `json:"token_in"`
	TokenOut  string     `json:"token_out"`
	AmountIn  amountView `json:"amount_in"`
	AmountOut amountView `json:"amount_out"`
	MinOut    amountView `json:"min_out"`
	Fee       amountView `json:"fee"`
	Funding   string     `json:"funding"`
	Reserve0  string     `json:"reserve0"`
	Reserve1  string     `json:"reserve1"`
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote the output of a swap without executing it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, func(s *session) (interface{}, error) {
				assetRaw, _ := cmd.Flags().GetString("asset")
				tokenIn, ledgerIn, err := s.asset(assetRaw)
				if err != nil {
					return nil, err
				}
				tokenOut, ledgerOut, err := s.other(tokenIn)
				if err != nil {
					return nil, err
				}
				amountIn, err := amountFlag(cmd, "amount", decimalsOf(ledgerIn))
				if err != nil {
					return nil, err
				}
				amountOut, err := s.engine.Quote(tokenIn, amountIn)
				if err != nil {
					return nil, err
				}
				return quoteResult{
					TokenIn:   tokenIn.Hex(),
					TokenOut:  tokenOut.Hex(),
					AmountIn:  view(amountIn, decimalsOf(ledgerIn)),
					AmountOut: view(amountOut, decimalsOf(ledgerOut)),
					Price:     units.FormatRatio(amountOut, amountIn),
				}, nil
			})
		},
	}
	cmd.Flags().String("asset", "", "input token address or symbol")
	cmd.Flags().String("amount", "", "input amount in token units")
	return cmd
}

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap an exact input amount for the other pooled token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMutation(cmd, func(s *session) (interface{}, error) {
				assetRaw, _ := cmd.Flags().GetString("asset")
				tokenIn, _, err := s.asset(assetRaw)
				if err != nil {
					return nil, err
				}
				return s.swap(cmd, tokenIn, false)
			})
		},
	}
	tradeFlags(cmd)
	cmd.Flags().String("asset", "", "input token address or symbol")
	return cmd
}

func newBuyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buy",
		Short: "Buy --token-out paying --amount of the other pooled token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMutation(cmd, func(s *session) (interface{}, error) {
				outRaw, _ := cmd.Flags().GetString("token-out")
				tokenOut, _, err := s.asset(outRaw)
				if err != nil {
					return nil, err
				}
				tokenIn, _, err := s.other(tokenOut)
				if err != nil {
					return nil, err
				}
				return s.swap(cmd, tokenIn, true)
			})
		},
	}
	tradeFlags(cmd)
	cmd.Flags().String("token-out", "", "token to buy, address or symbol")
	return cmd
}

func newSellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sell",
		Short: "Sell --amount of --asset for the other pooled token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMutation(cmd, func(s *session) (interface{}, error) {
				assetRaw, _ := cmd.Flags().GetString("asset")
				tokenIn, _, err := s.asset(assetRaw)
				if err != nil {
					return nil, err
				}
				return s.swap(cmd, tokenIn, true)
			})
		},
	}
	tradeFlags(cmd)
	cmd.Flags().String("asset", "", "token to sell, address or symbol")
	return cmd
}

func tradeFlags(cmd *cobra.Command) {
	cmd.Flags().String("account", "", "trading account address")
	cmd.Flags().String("amount", "", "input amount in token units")
	cmd.Flags().String("min-out", "", "minimum output in token units")
	cmd.Flags().String("recipient", "", "account credited with the output (defaults to --account)")
}

// swap executes a swap of --amount tokenIn. With boundedDefault set and no --min-out the
// minimum output is the current quote less defaultSlippageBps.
func (s *session) swap(cmd *cobra.Command, tokenIn common.Address, boundedDefault bool) (interface{}, error) {
	account, err := accountFlag(cmd, "account")
	if err != nil {
		return nil, err
	}
	var recipient common.Address
	if raw, _ := cmd.Flags().GetString("recipient"); strings.TrimSpace(raw) != "" {
		if recipient, err = accountFlag(cmd, "recipient"); err != nil {
			return nil, err
		}
	}

	_, ledgerIn, err := s.asset(tokenIn.Hex())
	if err != nil {
		return nil, err
	}
	amountIn, err := amountFlag(cmd, "amount", decimalsOf(ledgerIn))
	if err != nil {
		return nil, err
	}
	// unknown input tokens fall through to the engine, which rejects them
	_, ledgerOut, _ := s.other(tokenIn)

	minOut := new(uint256.Int)
	if raw, _ := cmd.Flags().GetString("min-out"); strings.TrimSpace(raw) != "" {
		if minOut, err = amountFlag(cmd, "min-out", decimalsOf(ledgerOut)); err != nil {
			return nil, err
		}
	} else if boundedDefault {
		quote, err := s.engine.Quote(tokenIn, amountIn)
		if err != nil {
			return nil, err
		}
		minOut = slippageBound(quote, defaultSlippageBps)
	}

	res, err := s.engine.Swap(account, tokenIn, amountIn, minOut, recipient)
	if err != nil {
		return nil, err
	}
	if recipient == (common.Address{}) {
		recipient = account
	}
	s.logger.Info("swap",
		zap.String("account", account.Hex()),
		zap.String("token_in", res.TokenIn.Hex()),
		zap.String("amount_in", units.Dec(res.AmountIn)),
		zap.String("amount_out", units.Dec(res.AmountOut)),
		zap.String("funding", res.Funding),
	)
	return swapResult{
		Account:   account.Hex(),
		Recipient: recipient.Hex(),
		TokenIn:   res.TokenIn.Hex(),
		TokenOut:  res.TokenOut.Hex(),
		AmountIn:  view(res.AmountIn, decimalsOf(ledgerIn)),
		AmountOut: view(res.AmountOut, decimalsOf(ledgerOut)),
		MinOut:    view(minOut, decimalsOf(ledgerOut)),
		Fee:       view(res.Fee, decimalsOf(ledgerIn)),
		Funding:   res.Funding,
		Reserve0:  units.Dec(res.Reserve0),
		Reserve1:  units.Dec(res.Reserve1),
	}, nil
}

// slippageBound returns quote*(10000-bps)/10000, rounded down.
func slippageBound(quote *uint256.Int, bps uint64) *uint256.Int {
	out, _ := new(uint256.Int).MulDivOverflow(quote, uint256.NewInt(10_000-bps), uint256.NewInt(10_000))
	return out
}

type priceResult struct {
	Base        string `json:"base"`
	Quote       string `json:"quote"`
	Numerator   string `json:"numerator"`
	Denominator string `json:"denominator"`
	Price       string `json:"price"`
}

func newPriceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Show the pool price of --base in units of the other token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, func(s *session) (interface{}, error) {
				baseRaw, _ := cmd.Flags().GetString("base")
				base, _, err := s.asset(baseRaw)
				if err != nil {
					return nil, err
				}
				num, den, err := s.engine.GetPrice(base)
				if err != nil {
					return nil, err
				}
				quoteToken, _, err := s.other(base)
				if err != nil {
					return nil, err
				}
				return priceResult{
					Base:        base.Hex(),
					Quote:       quoteToken.Hex(),
					Numerator:   units.Dec(num),
					Denominator: units.Dec(den),
					Price:       units.FormatRatio(num, den),
				}, nil
			})
		},
	}
	cmd.Flags().String("base", "", "base token address or symbol")
	return cmd
}

type reservesResult struct {
	Token0      string     `json:"token0"`
	Token1      string     `json:"token1"`
	Reserve0    amountView `json:"reserve0"`
	Reserve1    amountView `json:"reserve1"`
	TotalSupply string     `json:"total_supply"`
	FeeBps      uint32     `json:"fee_bps"`
}

func newReservesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reserves",
		Short: "Show pool reserves and LP supply",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, func(s *session) (interface{}, error) {
				r0, r1 := s.engine.Reserves()
				return reservesResult{
					Token0:      s.tokens[0].Address().Hex(),
					Token1:      s.tokens[1].Address().Hex(),
					Reserve0:    view(r0, decimalsOf(s.tokens[0])),
					Reserve1:    view(r1, decimalsOf(s.tokens[1])),
					TotalSupply: units.Dec(s.engine.TotalSupply()),
					FeeBps:      s.engine.FeeBps(),
				}, nil
			})
		},
	}
}
