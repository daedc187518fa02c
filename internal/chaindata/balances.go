package chaindata

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/tabula-labs/tabula/internal/domain"
	"github.com/tabula-labs/tabula/internal/wallet"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentCalls = 4

// BalanceReader calls balanceOf on every known governance token. A token
// whose call fails is logged and skipped.
type BalanceReader struct {
	callers map[string]ethereum.ContractCaller
	tokens  map[string][]GovernanceToken
	logger  *slog.Logger
}

// NewBalanceReader reads tokens on every chain that has a caller.
func NewBalanceReader(callers map[string]ethereum.ContractCaller, tokens map[string][]GovernanceToken, logger *slog.Logger) *BalanceReader {
	if logger == nil {
		logger = slog.Default()
	}
	if tokens == nil {
		tokens = DefaultTokens()
	}
	return &BalanceReader{callers: callers, tokens: tokens, logger: logger}
}

// DialBalanceReader dials one ethclient per chain RPC URL. Empty URLs are
// skipped.
func DialBalanceReader(ctx context.Context, rpcURLs map[string]string, logger *slog.Logger) (*BalanceReader, error) {
	callers := make(map[string]ethereum.ContractCaller, len(rpcURLs))
	for chainID, url := range rpcURLs {
		if url == "" {
			continue
		}
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("dial %s rpc: %w", chainID, err)
		}
		callers[chainID] = client
	}
	return NewBalanceReader(callers, nil, logger), nil
}

// Close releases dialed RPC clients.
func (r *BalanceReader) Close() {
	for _, caller := range r.callers {
		if c, ok := caller.(interface{ Close() }); ok {
			c.Close()
		}
	}
}

type balanceQuery struct {
	chainID string
	token   GovernanceToken
	balance *big.Int
}

// Holdings returns non-zero balances ordered by chain id then token list
// order.
func (r *BalanceReader) Holdings(ctx context.Context, address common.Address) ([]domain.TokenHolding, error) {
	chains := make([]string, 0, len(r.tokens))
	for chainID := range r.tokens {
		chains = append(chains, chainID)
	}
	sort.Strings(chains)

	var queries []*balanceQuery
	for _, chainID := range chains {
		if _, ok := r.callers[chainID]; !ok {
			r.logger.Debug("No RPC configured for chain, skipping", "chain_id", chainID)
			continue
		}
		for _, token := range r.tokens[chainID] {
			queries = append(queries, &balanceQuery{chainID: chainID, token: token})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCalls)
	for _, q := range queries {
		g.Go(func() error {
			balance, err := r.balanceOf(gctx, r.callers[q.chainID], q.token.Address, address)
			if err != nil {
				r.logger.Warn("Failed to fetch token balance",
					"chain_id", q.chainID,
					"token", q.token.Symbol,
					"token_address", q.token.Address.Hex(),
					"error", err,
				)
				return nil
			}
			q.balance = balance
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	holdings := make([]domain.TokenHolding, 0, len(queries))
	for _, q := range queries {
		if q.balance == nil || q.balance.Sign() <= 0 {
			continue
		}
		holdings = append(holdings, domain.TokenHolding{
			TokenAddress: q.token.Address.Hex(),
			ChainID:      q.chainID,
			Balance:      q.balance.String(),
		})
	}
	return holdings, nil
}

func (r *BalanceReader) balanceOf(ctx context.Context, caller ethereum.ContractCaller, token, owner common.Address) (*big.Int, error) {
	data, err := wallet.ERC20.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("encode balanceOf: %w", err)
	}
	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}
	values, err := wallet.ERC20.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("decode balanceOf: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("decode balanceOf: got %d values", len(values))
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("decode balanceOf: unexpected type %T", values[0])
	}
	return balance, nil
}

var _ Provider = (*BalanceReader)(nil)
