package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dexcore/internal/config"
	"dexcore/internal/engine"
	"dexcore/internal/model"
	"dexcore/internal/state"
	"dexcore/internal/storage"
	"dexcore/internal/storage/postgres"
	"dexcore/internal/token"
	"dexcore/internal/units"
)

// session is one CLI invocation against the persisted world: config, logger, token
// ledgers, engine and the sinks its events flow to.
type session struct {
	ctx     context.Context
	stop    context.CancelFunc
	cfg     config.Config
	logger  *zap.Logger
	engine  *engine.Engine
	tokens  [2]*token.Ledger
	journal *storage.Journal
	store   state.Store
	pg      *postgres.Store
}

// loadConfig reads .env, then the layered config for cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfgFile, _ := cmd.Flags().GetString("config")
	return config.Load(cfgFile, cmd.Flags())
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	s := &session{ctx: ctx, stop: stop, cfg: cfg, logger: logger}
	if err := s.open(); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *session) open() error {
	addrs := map[string]string{
		"token0":         s.cfg.Token0.Address,
		"token1":         s.cfg.Token1.Address,
		"lp-token":       s.cfg.LPToken,
		"engine-address": s.cfg.EngineAddress,
	}
	parsed := make(map[string]common.Address, len(addrs))
	for name, value := range addrs {
		addr, err := config.ParseAddress(name, value)
		if err != nil {
			return err
		}
		parsed[name] = addr
	}

	var sinks []storage.Storage
	if s.cfg.PGDSN != "" {
		pg, err := postgres.NewStore(s.ctx, s.cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		s.pg = pg
		if err := pg.EnsureSchema(s.ctx); err != nil {
			return err
		}
		s.store = &state.DBStore{Store: pg, Name: s.cfg.StateName}
		sinks = append(sinks, pg)
	} else {
		s.store = &state.FileStore{Path: s.cfg.StateFile}
	}
	if s.cfg.EventsOut != "" {
		sinks = append(sinks, storage.NewJsonlStorage(s.cfg.EventsOut))
	}
	s.journal = storage.NewJournal(storage.Multi(sinks...), s.cfg.BatchSize, s.logger)

	world, found, err := s.store.Load(s.ctx)
	if err != nil {
		return err
	}
	for i, tc := range []config.TokenConfig{s.cfg.Token0, s.cfg.Token1} {
		addr := parsed[fmt.Sprintf("token%d", i)]
		ledger, err := ledgerFor(world.Tokens, addr, tc)
		if err != nil {
			return err
		}
		s.tokens[i] = ledger
	}

	eng, err := engine.New(engine.Config{
		Token0:            parsed["token0"],
		Token1:            parsed["token1"],
		LPToken:           parsed["lp-token"],
		Address:           parsed["engine-address"],
		FeeBps:            s.cfg.FeeBps,
		RatioToleranceBps: s.cfg.RatioToleranceBps,
	}, map[common.Address]token.Holdings{
		parsed["token0"]: s.tokens[0],
		parsed["token1"]: s.tokens[1],
	}, s.journal, s.logger)
	if err != nil {
		return err
	}
	if found {
		if err := eng.Restore(world.Engine); err != nil {
			return err
		}
		// restored balances must be backed by the restored token ledgers
		for _, audit := range eng.Audit() {
			if !audit.Solvent {
				return fmt.Errorf("state %s: engine holdings of %s short by %s",
					s.stateLabel(), audit.Asset.Hex(), units.Dec(audit.Deficit))
			}
		}
	}
	s.engine = eng

	s.logger.Debug("session open",
		zap.Bool("state_found", found),
		zap.Uint64("seq", eng.Seq()),
		zap.String("pg_dsn", redactDSN(s.cfg.PGDSN)),
		zap.String("events_out", s.cfg.EventsOut),
	)
	return nil
}

func (s *session) stateLabel() string {
	if s.pg != nil {
		return s.cfg.StateName
	}
	return s.cfg.StateFile
}

// ledgerFor restores the ledger for addr from saved state, or creates an empty one from
// config when the world has never been saved.
func ledgerFor(saved []model.TokenLedgerState, addr common.Address, tc config.TokenConfig) (*token.Ledger, error) {
	for _, st := range saved {
		if common.IsHexAddress(st.Meta.Address) && common.HexToAddress(st.Meta.Address) == addr {
			return token.LoadLedger(st)
		}
	}
	return token.NewLedger(model.TokenMeta{
		Address:  addr.Hex(),
		Symbol:   tc.Symbol,
		Name:     tc.Name,
		Decimals: tc.Decimals,
	}), nil
}

// commit persists the world, then flushes the events of this invocation.
func (s *session) commit() error {
	world := model.WorldState{
		Engine: s.engine.Snapshot(),
		Tokens: []model.TokenLedgerState{s.tokens[0].State(), s.tokens[1].State()},
	}
	if err := s.store.Save(s.ctx, world); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	if err := s.journal.Flush(s.ctx); err != nil {
		return fmt.Errorf("flush events: %w", err)
	}
	return nil
}

func (s *session) close() {
	if s.pg != nil {
		s.pg.Close()
	}
	if s.stop != nil {
		s.stop()
	}
	_ = s.logger.Sync()
}

// asset resolves an address or a configured symbol to one of the pooled tokens.
func (s *session) asset(value string) (common.Address, *token.Ledger, error) {
	value = strings.TrimSpace(value)
	for _, ledger := range s.tokens {
		meta := ledger.Meta()
		if strings.EqualFold(value, meta.Symbol) || strings.EqualFold(value, meta.Address) {
			return ledger.Address(), ledger, nil
		}
	}
	if common.IsHexAddress(value) {
		// unknown assets still reach the engine so it can reject them
		return common.HexToAddress(value), nil, nil
	}
	return common.Address{}, nil, fmt.Errorf("unknown asset %q", value)
}

// other returns the pooled token that is not asset.
func (s *session) other(asset common.Address) (common.Address, *token.Ledger, error) {
	switch asset {
	case s.tokens[0].Address():
		return s.tokens[1].Address(), s.tokens[1], nil
	case s.tokens[1].Address():
		return s.tokens[0].Address(), s.tokens[0], nil
	default:
		return common.Address{}, nil, fmt.Errorf("unknown asset %s", asset.Hex())
	}
}

func decimalsOf(ledger *token.Ledger) uint8 {
	if ledger == nil {
		return 18
	}
	return ledger.Meta().Decimals
}

// amountFlag parses a human decimal amount flag in the asset's units.
func amountFlag(cmd *cobra.Command, name string, decimals uint8) (*uint256.Int, error) {
	raw, _ := cmd.Flags().GetString(name)
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("--%s is required", name)
	}
	amount, err := units.ParseAmount(raw, decimals)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return amount, nil
}

func accountFlag(cmd *cobra.Command, name string) (common.Address, error) {
	raw, _ := cmd.Flags().GetString(name)
	return config.ParseAddress(name, raw)
}

// amountView renders a base-unit amount both formatted and raw.
type amountView struct {
	Value string `json:"value"`
	Raw   string `json:"raw"`
}

func view(amount *uint256.Int, decimals uint8) amountView {
	return amountView{Value: units.FormatAmount(amount, decimals), Raw: units.Dec(amount)}
}

// runMutation opens a session, runs fn and commits the result before printing it.
func runMutation(cmd *cobra.Command, fn func(s *session) (interface{}, error)) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	out, err := fn(s)
	if err != nil {
		return err
	}
	if err := s.commit(); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

// runQuery opens a session and prints fn's result without saving anything.
func runQuery(cmd *cobra.Command, fn func(s *session) (interface{}, error)) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	out, err := fn(s)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}
