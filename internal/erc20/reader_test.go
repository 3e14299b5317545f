package erc20

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"dexcore/internal/chain"
)

var (
	dexAddr    = common.HexToAddress("0x0000000000000000000000000000000000000abc")
	token0Addr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	token1Addr = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	lpAddr     = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	holderAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

type CallArgs struct {
	To    *common.Address `json:"to"`
	Input hexutil.Bytes   `json:"input"`
	Data  hexutil.Bytes   `json:"data"`
}

type fakeEth struct {
	chainID uint64
	block   uint64
	code    map[common.Address][]byte
	// responses[contract][selector] = abi-encoded return data
	responses map[common.Address]map[string][]byte
	failCalls int32
	calls     int32
}

func (f *fakeEth) ChainId(ctx context.Context) (*hexutil.Big, error) {
	return (*hexutil.Big)(new(big.Int).SetUint64(f.chainID)), nil
}

func (f *fakeEth) BlockNumber(ctx context.Context) (hexutil.Uint64, error) {
	return hexutil.Uint64(f.block), nil
}

func (f *fakeEth) GetCode(ctx context.Context, addr common.Address, _ gethrpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	return hexutil.Bytes(f.code[addr]), nil
}

func (f *fakeEth) Call(ctx context.Context, args CallArgs, _ gethrpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	atomic.AddInt32(&f.calls, 1)
	if atomic.AddInt32(&f.failCalls, -1) >= 0 {
		return nil, errors.New("node busy")
	}
	input := args.Input
	if len(input) == 0 {
		input = args.Data
	}
	if args.To == nil || len(input) < 4 {
		return nil, errors.New("bad call")
	}
	resp, ok := f.responses[*args.To][string(input[:4])]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return hexutil.Bytes(resp), nil
}

func newFakeReader(t *testing.T, fe *fakeEth, opts Options) *Reader {
	t.Helper()
	srv := gethrpc.NewServer()
	if err := srv.RegisterName("eth", fe); err != nil {
		t.Fatalf("register rpc service: %v", err)
	}
	client := chain.NewClientFromRPC(gethrpc.DialInProc(srv))
	t.Cleanup(client.Close)
	return NewReader(client, opts, nil)
}

func respond(t *testing.T, parsed abi.ABI, responses map[string][]byte, method string, values ...interface{}) {
	t.Helper()
	m, ok := parsed.Methods[method]
	if !ok {
		t.Fatalf("unknown method %s", method)
	}
	out, err := m.Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	responses[string(m.ID)] = out
}

func newDeployedFake(t *testing.T) *fakeEth {
	t.Helper()
	stringABI, _ := erc20ABIStringInstance()
	bytes32ABI, _ := erc20ABIBytes32Instance()
	dex, _ := DexABI()

	dexResp := map[string][]byte{}
	respond(t, dex, dexResp, "token0", token0Addr)
	respond(t, dex, dexResp, "token1", token1Addr)
	respond(t, dex, dexResp, "lpToken", lpAddr)
	respond(t, dex, dexResp, "reserve0", big.NewInt(5_000))
	respond(t, dex, dexResp, "reserve1", big.NewInt(7_000))

	t0 := map[string][]byte{}
	respond(t, stringABI, t0, "decimals", uint8(18))
	respond(t, stringABI, t0, "symbol", "TK0")
	respond(t, stringABI, t0, "name", "Token Zero")
	respond(t, stringABI, t0, "balanceOf", big.NewInt(123))

	var sym, name [32]byte
	copy(sym[:], "MKR")
	copy(name[:], "Maker")
	t1 := map[string][]byte{}
	respond(t, stringABI, t1, "decimals", uint8(6))
	respond(t, bytes32ABI, t1, "symbol", sym)
	respond(t, bytes32ABI, t1, "name", name)

	return &fakeEth{
		chainID: 31337,
		block:   42,
		code:    map[common.Address][]byte{dexAddr: {0x60, 0x80}},
		responses: map[common.Address]map[string][]byte{
			dexAddr:    dexResp,
			token0Addr: t0,
			token1Addr: t1,
		},
	}
}

func TestTokenPairStringAndBytes32(t *testing.T) {
	reader := newFakeReader(t, newDeployedFake(t), Options{})
	tokens, err := reader.TokenPair(context.Background(), token0Addr, token1Addr)
	if err != nil {
		t.Fatalf("token pair: %v", err)
	}
	if tokens[0].Symbol != "TK0" || tokens[0].Name != "Token Zero" || tokens[0].Decimals != 18 {
		t.Fatalf("token0 meta: %+v", tokens[0])
	}
	if tokens[1].Symbol != "MKR" || tokens[1].Name != "Maker" || tokens[1].Decimals != 6 {
		t.Fatalf("token1 meta: %+v", tokens[1])
	}
}

func TestBalanceOf(t *testing.T) {
	reader := newFakeReader(t, newDeployedFake(t), Options{})
	bal, err := reader.BalanceOf(context.Background(), token0Addr, holderAddr)
	if err != nil {
		t.Fatalf("balanceOf: %v", err)
	}
	if bal.Uint64() != 123 {
		t.Fatalf("balance: %d", bal.Uint64())
	}
}

func TestCheckDeployment(t *testing.T) {
	reader := newFakeReader(t, newDeployedFake(t), Options{})
	report, err := reader.CheckDeployment(context.Background(), dexAddr)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !report.HasCode || report.ChainID != 31337 || report.Block != 42 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Token0 != token0Addr || report.Token1 != token1Addr || report.LPToken != lpAddr {
		t.Fatalf("unexpected tokens: %s %s %s", report.Token0.Hex(), report.Token1.Hex(), report.LPToken.Hex())
	}
	if report.Reserve0.Uint64() != 5_000 || report.Reserve1.Uint64() != 7_000 {
		t.Fatalf("unexpected reserves: %d %d", report.Reserve0.Uint64(), report.Reserve1.Uint64())
	}
	if report.Tokens[1].Symbol != "MKR" {
		t.Fatalf("token1 symbol: %q", report.Tokens[1].Symbol)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", report.Warnings)
	}
}

func TestCheckDeploymentWithoutCode(t *testing.T) {
	fe := newDeployedFake(t)
	fe.code = map[common.Address][]byte{}
	reader := newFakeReader(t, fe, Options{})

	report, err := reader.CheckDeployment(context.Background(), dexAddr)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if report.HasCode || len(report.Warnings) != 1 {
		t.Fatalf("expected a single no-code warning, got %+v", report)
	}
	if atomic.LoadInt32(&fe.calls) != 0 {
		t.Fatalf("expected no contract calls without code")
	}
}

func TestReaderRetriesTransientFailures(t *testing.T) {
	fe := newDeployedFake(t)
	fe.failCalls = 2
	reader := newFakeReader(t, fe, Options{MaxRetries: 2, RetryBackoff: time.Millisecond})
	if _, err := reader.BalanceOf(context.Background(), token0Addr, holderAddr); err != nil {
		t.Fatalf("expected success after retries: %v", err)
	}
	if got := atomic.LoadInt32(&fe.calls); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}

	fe = newDeployedFake(t)
	fe.failCalls = 1
	reader = newFakeReader(t, fe, Options{MaxRetries: 0})
	if _, err := reader.BalanceOf(context.Background(), token0Addr, holderAddr); err == nil {
		t.Fatalf("expected failure without retries")
	}
}
