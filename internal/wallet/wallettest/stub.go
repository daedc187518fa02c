// Package wallettest provides an in-memory wallet.Signer for tests.
package wallettest

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/tabula-labs/tabula/internal/wallet"
)

// Call records one submitted contract call.
type Call struct {
	To     common.Address
	Method string
	Args   []any
	Hash   common.Hash
}

// Signer is a scripted signer. Hashes are assigned sequentially from 1.
// Every interaction is appended to Events, e.g. "switch", "submit:approve",
// "wait:approve".
type Signer struct {
	Account   common.Address
	SwitchErr error
	SubmitErr map[string]error
	WaitErr   map[string]error

	mu       sync.Mutex
	events   []string
	calls    []Call
	switches []uint64
	methods  map[common.Hash]string
	next     int64
}

// New returns a signer for account that succeeds at everything.
func New(account common.Address) *Signer {
	return &Signer{
		Account:   account,
		SubmitErr: make(map[string]error),
		WaitErr:   make(map[string]error),
		methods:   make(map[common.Hash]string),
	}
}

// Address returns the configured account.
func (s *Signer) Address() common.Address { return s.Account }

// SwitchNetwork records the request and returns SwitchErr.
func (s *Signer) SwitchNetwork(_ context.Context, chainID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "switch")
	s.switches = append(s.switches, chainID)
	return s.SwitchErr
}

// SubmitContractCall records the call and returns the next hash.
func (s *Signer) SubmitContractCall(_ context.Context, call wallet.ContractCall) (common.Hash, error) {
	if _, err := call.Data(); err != nil {
		return common.Hash{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "submit:"+call.Method)
	if err := s.SubmitErr[call.Method]; err != nil {
		return common.Hash{}, err
	}
	s.next++
	hash := common.BigToHash(big.NewInt(s.next))
	s.methods[hash] = call.Method
	s.calls = append(s.calls, Call{To: call.To, Method: call.Method, Args: call.Args, Hash: hash})
	return hash, nil
}

// WaitForConfirmation records the wait and returns a successful receipt.
func (s *Signer) WaitForConfirmation(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	method := s.methods[hash]
	s.events = append(s.events, "wait:"+method)
	if err := s.WaitErr[method]; err != nil {
		return nil, err
	}
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: big.NewInt(1),
	}, nil
}

// Events returns the recorded interactions in order.
func (s *Signer) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// Calls returns the submitted contract calls in order.
func (s *Signer) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Switches returns the requested chain ids.
func (s *Signer) Switches() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.switches...)
}

var _ wallet.Signer = (*Signer)(nil)
