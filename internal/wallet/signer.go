// Package wallet defines the transaction signer the delegation flow drives
// and a JSON-RPC implementation backed by a wallet endpoint.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrUserRejected is returned when the wallet owner declines a request.
	ErrUserRejected = errors.New("request rejected by wallet")
	// ErrWrongNetwork is returned when the wallet stays on another chain.
	ErrWrongNetwork = errors.New("wallet is connected to a different network")
	// ErrReverted is returned when a transaction is mined with a failed status.
	ErrReverted = errors.New("transaction reverted")
)

// Signer submits contract calls on behalf of one connected account.
type Signer interface {
	// Address returns the connected account.
	Address() common.Address

	// SwitchNetwork asks the wallet to move to chainID.
	SwitchNetwork(ctx context.Context, chainID uint64) error

	// SubmitContractCall signs and broadcasts a call, returning its hash.
	SubmitContractCall(ctx context.Context, call ContractCall) (common.Hash, error)

	// WaitForConfirmation blocks until the transaction is mined or ctx ends.
	WaitForConfirmation(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Release closes s if it holds a connection. A nil s is ignored.
func Release(s Signer) {
	if c, ok := s.(interface{ Close() }); ok {
		c.Close()
	}
}

// ContractCall is a single state-changing call against a contract.
type ContractCall struct {
	To     common.Address
	ABI    abi.ABI
	Method string
	Args   []any
}

// Data returns the ABI encoded calldata.
func (c ContractCall) Data() ([]byte, error) {
	data, err := c.ABI.Pack(c.Method, c.Args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s call: %w", c.Method, err)
	}
	return data, nil
}
