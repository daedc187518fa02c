// Package chaindata reads which governance tokens an address holds.
package chaindata

import (
	"context"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tabula-labs/tabula/internal/domain"
)

// CAIP-2 identifiers of the supported chains.
const (
	ChainArbitrum = "eip155:42161"
	ChainBase     = "eip155:8453"
)

// Provider returns the non-zero governance token balances of an address.
type Provider interface {
	Holdings(ctx context.Context, address common.Address) ([]domain.TokenHolding, error)
}

// GovernanceToken is a token whose balance signals DAO eligibility.
type GovernanceToken struct {
	Symbol  string
	Address common.Address
}

// DefaultTokens lists the known governance tokens per chain.
func DefaultTokens() map[string][]GovernanceToken {
	return map[string][]GovernanceToken{
		ChainArbitrum: {
			{Symbol: "ARB", Address: common.HexToAddress("0x912CE59144191C1204E64559FE8253a0e49E6548")},
		},
		ChainBase: {
			{Symbol: "SEAM", Address: common.HexToAddress("0x1C7a460413dD4e964f96D8dFC56E7223cE88CD85")},
			{Symbol: "ICP", Address: common.HexToAddress("0x968D6A288d7B024D5012c0B25d67A889E4E3eC19")},
			{Symbol: "GLOOM", Address: common.HexToAddress("0xbb5D04c40Fa063FAF213c4E0B8086655164269Ef")},
		},
	}
}

// CAIP2 formats a numeric chain id as "eip155:<id>".
func CAIP2(chainID uint64) string {
	return "eip155:" + strconv.FormatUint(chainID, 10)
}

// NormalizeChainID accepts "eip155:8453" or "8453" and returns the CAIP-2
// form. ok is false for anything else.
func NormalizeChainID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if rest, found := strings.CutPrefix(raw, "eip155:"); found {
		raw = rest
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return "", false
	}
	return CAIP2(n), true
}
