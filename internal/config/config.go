// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tabula-labs/tabula/internal/command"
	"github.com/tabula-labs/tabula/internal/delegation"
)

// Holdings sources.
const (
	HoldingsBalances  = "balances"
	HoldingsPortfolio = "portfolio"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	FrontendURL     string
	DBPath          string
	BackendURL      string
	WalletRPCURL    string
	RPCURLs         map[string]string // CAIP-2 chain id -> JSON-RPC URL
	PortfolioURL    string
	HoldingsSource  string
	RequestTimeout  time.Duration
	SessionTTL      time.Duration
	Chain           ChainProfile
	ConversationLog ConversationLogConfig
}

// ChainProfile is the fixed on-chain target of the delegate command.
type ChainProfile struct {
	ChainID            uint64 `yaml:"chain_id"`
	ChainName          string `yaml:"chain_name"`
	TokenAddress       string `yaml:"token_address"`
	TokenSymbol        string `yaml:"token_symbol"`
	TokenDecimals      uint8  `yaml:"token_decimals"`
	DelegationContract string `yaml:"delegation_contract"`
	DefaultDelegatee   string `yaml:"default_delegatee"`
	TargetProtocol     string `yaml:"target_protocol"`
	Strategy           string `yaml:"strategy"`
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// DefaultChainProfile targets SEAM on Base with self delegation.
func DefaultChainProfile() ChainProfile {
	return ChainProfile{
		ChainID:        8453,
		ChainName:      "Base",
		TokenAddress:   "0x1C7a460413dD4e964f96D8dFC56E7223cE88CD85",
		TokenSymbol:    "SEAM",
		TokenDecimals:  18,
		TargetProtocol: "Seamless Protocol",
		Strategy:       string(delegation.StrategySelfDelegate),
	}
}

// Load reads configuration from environment variables. When
// CHAIN_PROFILE_PATH is set the YAML profile is applied before the
// per-field chain variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	chain := DefaultChainProfile()
	if path := getEnv("CHAIN_PROFILE_PATH", ""); path != "" {
		loaded, err := LoadChainProfile(path, chain)
		if err != nil {
			return nil, err
		}
		chain = loaded
	}
	chain.applyEnv()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		FrontendURL:  getEnv("FRONTEND_URL", ""),
		DBPath:       getEnv("DB_PATH", "./data/tabula.db"),
		BackendURL:   getEnv("BACKEND_URL", "http://localhost:8000"),
		WalletRPCURL: getEnv("WALLET_RPC_URL", ""),
		RPCURLs: map[string]string{
			"eip155:8453":  getEnv("BASE_RPC_URL", "https://mainnet.base.org"),
			"eip155:42161": getEnv("ARBITRUM_RPC_URL", "https://arb1.arbitrum.io/rpc"),
		},
		PortfolioURL:   getEnv("PORTFOLIO_URL", ""),
		HoldingsSource: strings.ToLower(getEnv("HOLDINGS_SOURCE", HoldingsBalances)),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		SessionTTL:     time.Duration(getEnvInt("SESSION_TTL_MINUTES", 60)) * time.Minute,
		Chain:          chain,
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", false),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (p *ChainProfile) applyEnv() {
	if v := getEnvInt("CHAIN_ID", 0); v > 0 {
		p.ChainID = uint64(v)
	}
	p.ChainName = getEnv("CHAIN_NAME", p.ChainName)
	p.TokenAddress = getEnv("TOKEN_ADDRESS", p.TokenAddress)
	p.TokenSymbol = getEnv("TOKEN_SYMBOL", p.TokenSymbol)
	p.DelegationContract = getEnv("DELEGATION_CONTRACT", p.DelegationContract)
	p.DefaultDelegatee = getEnv("DEFAULT_DELEGATEE", p.DefaultDelegatee)
	p.TargetProtocol = getEnv("TARGET_PROTOCOL", p.TargetProtocol)
	p.Strategy = strings.ToLower(getEnv("DELEGATION_STRATEGY", p.Strategy))
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL cannot be empty")
	}
	switch c.HoldingsSource {
	case HoldingsBalances:
	case HoldingsPortfolio:
		if c.PortfolioURL == "" {
			return fmt.Errorf("PORTFOLIO_URL is required when HOLDINGS_SOURCE=portfolio")
		}
	default:
		return fmt.Errorf("HOLDINGS_SOURCE must be %q or %q", HoldingsBalances, HoldingsPortfolio)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be > 0")
	}
	if _, err := c.DelegationParams(); err != nil {
		return err
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// DelegationParams converts the chain profile into executor parameters.
func (c *Config) DelegationParams() (delegation.Params, error) {
	p := c.Chain
	addr := func(name, value string) (common.Address, error) {
		if value == "" {
			return common.Address{}, nil
		}
		if !common.IsHexAddress(value) {
			return common.Address{}, fmt.Errorf("%s is not a valid address: %q", name, value)
		}
		return common.HexToAddress(value), nil
	}

	// The delegate command names the token and protocol literally.
	if !strings.EqualFold(p.TokenSymbol, command.TokenSymbol) {
		return delegation.Params{}, fmt.Errorf("TOKEN_SYMBOL must be %q to match the delegate command, got %q", command.TokenSymbol, p.TokenSymbol)
	}
	if !strings.EqualFold(p.TargetProtocol, command.TargetProtocol) {
		return delegation.Params{}, fmt.Errorf("TARGET_PROTOCOL must be %q to match the delegate command, got %q", command.TargetProtocol, p.TargetProtocol)
	}

	token, err := addr("TOKEN_ADDRESS", p.TokenAddress)
	if err != nil {
		return delegation.Params{}, err
	}
	contract, err := addr("DELEGATION_CONTRACT", p.DelegationContract)
	if err != nil {
		return delegation.Params{}, err
	}
	delegatee, err := addr("DEFAULT_DELEGATEE", p.DefaultDelegatee)
	if err != nil {
		return delegation.Params{}, err
	}

	decimals := p.TokenDecimals
	if decimals == 0 {
		decimals = 18
	}

	params := delegation.Params{
		ChainID:            p.ChainID,
		ChainName:          p.ChainName,
		TokenAddress:       token,
		TokenSymbol:        p.TokenSymbol,
		TokenDecimals:      decimals,
		DelegationContract: contract,
		DefaultDelegatee:   delegatee,
		TargetProtocol:     p.TargetProtocol,
		Strategy:           delegation.StrategyKind(p.Strategy),
	}
	if err := params.Validate(); err != nil {
		return delegation.Params{}, fmt.Errorf("chain profile: %w", err)
	}
	return params, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
