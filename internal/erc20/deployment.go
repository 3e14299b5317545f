package erc20

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"dexcore/internal/model"
)

// Deployment is the observed state of a deployed pool contract.
type Deployment struct {
	ChainID  uint64
	Block    uint64
	Dex      common.Address
	HasCode  bool
	Token0   common.Address
	Token1   common.Address
	LPToken  common.Address
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int
	Tokens   [2]model.TokenMeta
	Warnings []string
}

// CheckDeployment verifies the node is reachable, that code exists at dex and that its
// getters answer. Only an unreachable node is an error; contract problems are reported as
// warnings on the result.
func (r *Reader) CheckDeployment(ctx context.Context, dex common.Address) (*Deployment, error) {
	report := &Deployment{Dex: dex}

	err := r.retry(ctx, "chainId", func(ctx context.Context) error {
		id, err := r.client.GetChainID(ctx)
		if err != nil {
			return err
		}
		report.ChainID = id.Uint64()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	err = r.retry(ctx, "blockNumber", func(ctx context.Context) error {
		var err error
		report.Block, err = r.client.LatestBlockNumber(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get block number: %w", err)
	}

	var code []byte
	err = r.retry(ctx, "getCode", func(ctx context.Context) error {
		var err error
		code, err = r.client.CodeAt(ctx, dex, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get code: %w", err)
	}
	if len(code) == 0 {
		report.warn("no contract code at %s", dex.Hex())
		return report, nil
	}
	report.HasCode = true

	parsed, err := DexABI()
	if err != nil {
		return nil, fmt.Errorf("parse dex abi: %w", err)
	}
	for _, getter := range []struct {
		method string
		dst    *common.Address
	}{
		{"token0", &report.Token0},
		{"token1", &report.Token1},
		{"lpToken", &report.LPToken},
	} {
		values, err := r.call(ctx, dex, parsed, getter.method)
		if err != nil {
			report.warn("%s: %v", getter.method, err)
			continue
		}
		if *getter.dst, err = asAddress(values[0]); err != nil {
			report.warn("%s: %v", getter.method, err)
		}
	}
	for _, getter := range []struct {
		method string
		dst    **uint256.Int
	}{
		{"reserve0", &report.Reserve0},
		{"reserve1", &report.Reserve1},
	} {
		values, err := r.call(ctx, dex, parsed, getter.method)
		if err != nil {
			report.warn("%s: %v", getter.method, err)
			continue
		}
		if *getter.dst, err = asUint256(values[0]); err != nil {
			report.warn("%s: %v", getter.method, err)
		}
	}

	if report.Token0 != (common.Address{}) && report.Token1 != (common.Address{}) {
		tokens, err := r.TokenPair(ctx, report.Token0, report.Token1)
		if err != nil {
			report.warn("token metadata: %v", err)
		}
		report.Tokens = tokens
	}

	r.logger.Info("deployment checked",
		zap.Uint64("chain_id", report.ChainID),
		zap.Uint64("block", report.Block),
		zap.String("dex", dex.Hex()),
		zap.Int("warnings", len(report.Warnings)),
	)
	return report, nil
}

func (d *Deployment) warn(format string, args ...interface{}) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}
