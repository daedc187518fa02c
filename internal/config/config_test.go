package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tabula-labs/tabula/internal/delegation"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.HoldingsSource != HoldingsBalances {
		t.Errorf("HoldingsSource = %q", cfg.HoldingsSource)
	}
	if cfg.ConversationLog.Enabled {
		t.Error("conversation log should be disabled by default")
	}

	params, err := cfg.DelegationParams()
	if err != nil {
		t.Fatalf("DelegationParams failed: %v", err)
	}
	if params.ChainID != 8453 || params.TokenDecimals != 18 || params.Strategy != delegation.StrategySelfDelegate {
		t.Fatalf("unexpected params %+v", params)
	}
	if params.TokenAddress != common.HexToAddress("0x1C7a460413dD4e964f96D8dFC56E7223cE88CD85") {
		t.Fatalf("unexpected token %s", params.TokenAddress.Hex())
	}
}

func TestLoadApproveDelegateRequiresContract(t *testing.T) {
	t.Setenv("DELEGATION_STRATEGY", "approve_delegate")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "delegation contract is required") {
		t.Fatalf("expected missing contract error, got %v", err)
	}

	t.Setenv("DELEGATION_CONTRACT", "0x00000000000000000000000000000000000000c1")
	t.Setenv("DEFAULT_DELEGATEE", "0x00000000000000000000000000000000000000d1")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	params, _ := cfg.DelegationParams()
	if params.Strategy != delegation.StrategyApproveDelegate {
		t.Fatalf("Strategy = %q", params.Strategy)
	}
}

func TestLoadRejectsInvalidAddress(t *testing.T) {
	t.Setenv("TOKEN_ADDRESS", "seam")
	if _, err := Load(); err == nil {
		t.Fatal("expected invalid address error")
	}
}

func TestLoadPortfolioRequiresURL(t *testing.T) {
	t.Setenv("HOLDINGS_SOURCE", "portfolio")
	if _, err := Load(); err == nil {
		t.Fatal("expected PORTFOLIO_URL error")
	}
	t.Setenv("PORTFOLIO_URL", "http://portfolio.local")
	if _, err := Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
}

func TestChainProfileFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.yaml")
	profile := "chain_id: 84532\nchain_name: Base Sepolia\ntoken_decimals: 6\ntoken_address: \"0x912CE59144191C1204E64559FE8253a0e49E6548\"\n"
	if err := os.WriteFile(path, []byte(profile), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHAIN_PROFILE_PATH", path)
	t.Setenv("CHAIN_NAME", "Sepolia")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Chain.ChainID != 84532 || cfg.Chain.TokenDecimals != 6 {
		t.Fatalf("profile not applied: %+v", cfg.Chain)
	}
	if cfg.Chain.ChainName != "Sepolia" {
		t.Fatalf("env should override profile, got %q", cfg.Chain.ChainName)
	}
	if cfg.Chain.TargetProtocol != "Seamless Protocol" {
		t.Fatalf("missing fields should keep defaults, got %q", cfg.Chain.TargetProtocol)
	}
}

func TestChainProfileMissingFile(t *testing.T) {
	t.Setenv("CHAIN_PROFILE_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing profile")
	}
}

func TestLoadRejectsRenamedCommandToken(t *testing.T) {
	tests := []struct {
		key, value string
		wantErr    bool
	}{
		{"TOKEN_SYMBOL", "ARB", true},
		{"TARGET_PROTOCOL", "Aave", true},
		{"TOKEN_SYMBOL", "seam", false},
		{"TARGET_PROTOCOL", "seamless protocol", false},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if tt.wantErr && err == nil {
				t.Fatalf("expected %s=%q to be rejected", tt.key, tt.value)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Load failed: %v", err)
			}
		})
	}
}
