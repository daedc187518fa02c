package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// JSON-RPC and EIP-1193 error codes the signer maps to sentinel errors.
const (
	codeMethodNotFound = -32601
	codeUserRejected   = 4001
	codeUnknownChain   = 4902
)

const defaultPollInterval = 2 * time.Second

// RPCSigner drives a wallet that exposes the standard Ethereum JSON-RPC
// methods plus wallet_switchEthereumChain.
type RPCSigner struct {
	client       *rpc.Client
	eth          *ethclient.Client
	from         common.Address
	pollInterval time.Duration
	logger       *slog.Logger
}

// DialRPCSigner connects to a wallet endpoint for the given account.
func DialRPCSigner(ctx context.Context, url string, from common.Address, logger *slog.Logger) (*RPCSigner, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial wallet rpc: %w", err)
	}
	return NewRPCSigner(client, from, logger), nil
}

// NewRPCSigner wraps an existing RPC client.
func NewRPCSigner(client *rpc.Client, from common.Address, logger *slog.Logger) *RPCSigner {
	if logger == nil {
		logger = slog.Default()
	}
	return &RPCSigner{
		client:       client,
		eth:          ethclient.NewClient(client),
		from:         from,
		pollInterval: defaultPollInterval,
		logger:       logger,
	}
}

// SetPollInterval changes how often receipts are polled.
func (s *RPCSigner) SetPollInterval(d time.Duration) {
	if d > 0 {
		s.pollInterval = d
	}
}

// Address returns the connected account.
func (s *RPCSigner) Address() common.Address {
	return s.from
}

// SwitchNetwork requests wallet_switchEthereumChain. Wallets that do not
// implement the method must already be on chainID.
func (s *RPCSigner) SwitchNetwork(ctx context.Context, chainID uint64) error {
	params := map[string]string{"chainId": hexutil.EncodeUint64(chainID)}
	var result any
	err := s.client.CallContext(ctx, &result, "wallet_switchEthereumChain", params)
	if err == nil {
		s.logger.Info("Wallet network switched", "address", s.from.Hex(), "chain_id", chainID)
		return nil
	}

	switch rpcErrorCode(err) {
	case codeUserRejected:
		return fmt.Errorf("switch to chain %d: %w", chainID, ErrUserRejected)
	case codeUnknownChain:
		return fmt.Errorf("switch to chain %d: %w", chainID, ErrWrongNetwork)
	case codeMethodNotFound:
		current, idErr := s.eth.ChainID(ctx)
		if idErr != nil {
			return fmt.Errorf("read wallet chain id: %w", idErr)
		}
		if !current.IsUint64() || current.Uint64() != chainID {
			return fmt.Errorf("wallet on chain %s, want %d: %w", current, chainID, ErrWrongNetwork)
		}
		return nil
	}
	return fmt.Errorf("switch to chain %d: %w", chainID, err)
}

// SubmitContractCall sends the call with eth_sendTransaction.
func (s *RPCSigner) SubmitContractCall(ctx context.Context, call ContractCall) (common.Hash, error) {
	data, err := call.Data()
	if err != nil {
		return common.Hash{}, err
	}

	tx := map[string]any{
		"from": s.from,
		"to":   call.To,
		"data": hexutil.Bytes(data),
	}
	var hash common.Hash
	if err := s.client.CallContext(ctx, &hash, "eth_sendTransaction", tx); err != nil {
		if rpcErrorCode(err) == codeUserRejected {
			return common.Hash{}, fmt.Errorf("send %s: %w", call.Method, ErrUserRejected)
		}
		return common.Hash{}, fmt.Errorf("send %s: %w", call.Method, err)
	}

	s.logger.Info("Transaction submitted",
		"method", call.Method,
		"to", call.To.Hex(),
		"from", s.from.Hex(),
		"tx_hash", hash.Hex(),
	)
	return hash, nil
}

// WaitForConfirmation polls for the receipt until it is mined. There is no
// timeout beyond ctx.
func (s *RPCSigner) WaitForConfirmation(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.eth.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("transaction %s: %w", hash.Hex(), ErrReverted)
			}
			s.logger.Info("Transaction confirmed", "tx_hash", hash.Hex(), "block", receipt.BlockNumber)
			return receipt, nil
		case errors.Is(err, ethereum.NotFound):
			s.logger.Debug("Transaction pending", "tx_hash", hash.Hex())
		default:
			return nil, fmt.Errorf("fetch receipt %s: %w", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close releases the underlying RPC connection.
func (s *RPCSigner) Close() {
	s.client.Close()
}

func rpcErrorCode(err error) int {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode()
	}
	return 0
}

var _ Signer = (*RPCSigner)(nil)
