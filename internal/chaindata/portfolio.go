package chaindata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tabula-labs/tabula/internal/domain"
)

const portfolioBodyLimit = 4 << 20

// PortfolioClient reads holdings from an aggregated portfolio endpoint:
// GET {baseURL}/portfolio/{address}?chains=eip155:8453,...
type PortfolioClient struct {
	baseURL string
	chains  []string
	http    *http.Client
	logger  *slog.Logger
}

// NewPortfolioClient returns a client limited to chains. A nil httpClient
// gets a 15 second timeout.
func NewPortfolioClient(baseURL string, chains []string, httpClient *http.Client, logger *slog.Logger) *PortfolioClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PortfolioClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		chains:  chains,
		http:    httpClient,
		logger:  logger,
	}
}

type portfolioResponse struct {
	Tokens []portfolioToken `json:"tokens"`
}

type portfolioToken struct {
	TokenAddress string          `json:"token_address"`
	ChainID      json.RawMessage `json:"chain_id"`
	Balance      string          `json:"balance"`
}

// Holdings fetches and normalizes the portfolio of address.
func (c *PortfolioClient) Holdings(ctx context.Context, address common.Address) ([]domain.TokenHolding, error) {
	endpoint := c.baseURL + "/portfolio/" + url.PathEscape(address.Hex())
	if len(c.chains) > 0 {
		endpoint += "?" + url.Values{"chains": {strings.Join(c.chains, ",")}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build portfolio request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch portfolio: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close portfolio response", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, portfolioBodyLimit))
	if err != nil {
		return nil, fmt.Errorf("read portfolio: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("portfolio endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed portfolioResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode portfolio: %w", err)
	}

	allowed := make(map[string]bool, len(c.chains))
	for _, ch := range c.chains {
		allowed[ch] = true
	}

	holdings := make([]domain.TokenHolding, 0, len(parsed.Tokens))
	for _, tok := range parsed.Tokens {
		chainID, ok := NormalizeChainID(strings.Trim(string(tok.ChainID), `"`))
		if !ok {
			c.logger.Warn("Skipping portfolio entry with invalid chain id", "chain_id", string(tok.ChainID), "token_address", tok.TokenAddress)
			continue
		}
		if len(allowed) > 0 && !allowed[chainID] {
			continue
		}
		if !common.IsHexAddress(tok.TokenAddress) {
			c.logger.Warn("Skipping portfolio entry with invalid token address", "token_address", tok.TokenAddress)
			continue
		}
		balance, ok := new(big.Int).SetString(strings.TrimSpace(tok.Balance), 10)
		if !ok || balance.Sign() <= 0 {
			continue
		}
		holdings = append(holdings, domain.TokenHolding{
			TokenAddress: common.HexToAddress(tok.TokenAddress).Hex(),
			ChainID:      chainID,
			Balance:      balance.String(),
		})
	}
	return holdings, nil
}

var _ Provider = (*PortfolioClient)(nil)
