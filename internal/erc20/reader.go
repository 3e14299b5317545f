// Package erc20 reads token metadata and pool deployment state from an EVM node.
package erc20

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dexcore/internal/model"
)

// Caller is the subset of chain.Client the reader uses.
type Caller interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	CodeAt(ctx context.Context, address common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// Reader issues read-only contract calls, retrying transport failures with exponential
// backoff.
type Reader struct {
	client     Caller
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

func NewReader(client Caller, opts Options, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 100 * time.Millisecond
	}
	return &Reader{client: client, maxRetries: opts.MaxRetries, backoff: opts.RetryBackoff, logger: logger}
}

func (r *Reader) retry(ctx context.Context, op string, fn func(context.Context) error) error {
	delay := r.backoff
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil || attempt >= r.maxRetries {
			return err
		}
		r.logger.Debug("rpc retry", zap.String("op", op), zap.Int("attempt", attempt+1), zap.Duration("delay", delay), zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}

func (r *Reader) call(ctx context.Context, target common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	var resp []byte
	err = r.retry(ctx, method, func(ctx context.Context) error {
		var callErr error
		resp, callErr = r.client.CallContract(ctx, ethereum.CallMsg{To: &target, Data: data}, nil)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

// TokenMeta loads token metadata via ERC20 calls. Symbol and name fall back to the
// bytes32 encoding some older tokens use.
func (r *Reader) TokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := r.call(ctx, token, stringABI, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return meta, fmt.Errorf("unsupported decimals type %T", values[0])
	}
	meta.Decimals = decimals

	meta.Symbol = r.text(ctx, token, stringABI, bytes32ABI, "symbol")
	meta.Name = r.text(ctx, token, stringABI, bytes32ABI, "name")
	return meta, nil
}

func (r *Reader) text(ctx context.Context, token common.Address, stringABI, bytes32ABI abi.ABI, method string) string {
	if values, err := r.call(ctx, token, stringABI, method); err == nil {
		if text, ok := values[0].(string); ok {
			return text
		}
	}
	values, err := r.call(ctx, token, bytes32ABI, method)
	if err != nil {
		r.logger.Debug(method+" call failed", zap.String("token", token.Hex()), zap.Error(err))
		return ""
	}
	if raw, ok := values[0].([32]byte); ok {
		return string(bytes.TrimRight(raw[:], "\x00"))
	}
	return ""
}

// TokenPair fetches metadata for both pool tokens concurrently.
func (r *Reader) TokenPair(ctx context.Context, token0, token1 common.Address) ([2]model.TokenMeta, error) {
	var out [2]model.TokenMeta
	g, gctx := errgroup.WithContext(ctx)
	for i, token := range []common.Address{token0, token1} {
		i, token := i, token
		g.Go(func() error {
			meta, err := r.TokenMeta(gctx, token)
			if err != nil {
				return fmt.Errorf("token%d %s: %w", i, token.Hex(), err)
			}
			out[i] = meta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

// BalanceOf returns owner's balance at token.
func (r *Reader) BalanceOf(ctx context.Context, token, owner common.Address) (*uint256.Int, error) {
	parsed, err := erc20ABIStringInstance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	values, err := r.call(ctx, token, parsed, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return asUint256(values[0])
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asUint256(value interface{}) (*uint256.Int, error) {
	v, ok := value.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("value overflows uint256: %s", v)
	}
	return out, nil
}
