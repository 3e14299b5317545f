package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// TokenConfig describes one simulated token contract.
type TokenConfig struct {
	Address  string
	Symbol   string
	Name     string
	Decimals uint8
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	StateFile         string
	StateName         string
	PGDSN             string
	EventsOut         string
	FeeBps            uint32
	RatioToleranceBps uint32
	Token0            TokenConfig
	Token1            TokenConfig
	LPToken           string
	EngineAddress     string
	RPCURL            string
	Dex               string
	MaxRetries        int
	RetryBackoff      time.Duration
	Input             string
	Window            string
	Since             string
	BatchSize         int
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DEX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("state-file", "./data/state.json")
	v.SetDefault("state-name", "dexcore")
	v.SetDefault("events-out", "./data/events.jsonl")
	v.SetDefault("fee-bps", 30)
	v.SetDefault("ratio-tolerance-bps", 100)
	v.SetDefault("token0.address", "0x0000000000000000000000000000000000000A00")
	v.SetDefault("token0.symbol", "TK0")
	v.SetDefault("token0.name", "Token Zero")
	v.SetDefault("token0.decimals", 18)
	v.SetDefault("token1.address", "0x0000000000000000000000000000000000000A01")
	v.SetDefault("token1.symbol", "TK1")
	v.SetDefault("token1.name", "Token One")
	v.SetDefault("token1.decimals", 18)
	v.SetDefault("lp-token", "0x0000000000000000000000000000000000000A02")
	v.SetDefault("engine-address", "0x00000000000000000000000000000000000De000")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("window", "1h")
	v.SetDefault("batch-size", 1000)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		StateFile:         v.GetString("state-file"),
		StateName:         v.GetString("state-name"),
		PGDSN:             v.GetString("pg-dsn"),
		EventsOut:         v.GetString("events-out"),
		FeeBps:            v.GetUint32("fee-bps"),
		RatioToleranceBps: v.GetUint32("ratio-tolerance-bps"),
		Token0:            tokenConfig(v, "token0"),
		Token1:            tokenConfig(v, "token1"),
		LPToken:           v.GetString("lp-token"),
		EngineAddress:     v.GetString("engine-address"),
		RPCURL:            v.GetString("rpc"),
		Dex:               v.GetString("dex"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		Input:             v.GetString("in"),
		Window:            v.GetString("window"),
		Since:             v.GetString("since"),
		BatchSize:         v.GetInt("batch-size"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

func tokenConfig(v *viper.Viper, prefix string) TokenConfig {
	return TokenConfig{
		Address:  v.GetString(prefix + ".address"),
		Symbol:   v.GetString(prefix + ".symbol"),
		Name:     v.GetString(prefix + ".name"),
		Decimals: uint8(v.GetUint(prefix + ".decimals")),
	}
}

// ParseAddress validates a hex address value for the named setting.
func ParseAddress(name, value string) (common.Address, error) {
	value = strings.TrimSpace(value)
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid %s address: %q", name, value)
	}
	return common.HexToAddress(value), nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
