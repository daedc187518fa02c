package delegation

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/tabula-labs/tabula/internal/wallet"
)

// Update is a progress event. Message is empty for phase-only transitions.
type Update struct {
	Phase   Phase
	Message string
	TxHash  common.Hash
}

// ReportFunc receives progress events in order.
type ReportFunc func(Update)

// Outcome describes a confirmed delegation.
type Outcome struct {
	Strategy     StrategyKind
	Amount       *big.Int
	Delegatee    common.Address
	ApprovalHash common.Hash
	TxHash       common.Hash
	Receipt      *types.Receipt
}

// Strategy submits the transactions for one delegation contract shape.
// Errors returned are *Error.
type Strategy interface {
	Kind() StrategyKind
	Execute(ctx context.Context, signer wallet.Signer, amount *big.Int, report ReportFunc) (Outcome, error)
}

// NewStrategy returns the strategy selected by params.Strategy.
func NewStrategy(params Params) (Strategy, error) {
	switch params.Strategy {
	case StrategyApproveDelegate:
		return &ApproveThenDelegate{params: params}, nil
	case StrategySelfDelegate:
		return &SelfDelegate{params: params}, nil
	default:
		return nil, fmt.Errorf("unknown delegation strategy %q", params.Strategy)
	}
}

// ApproveThenDelegate approves the delegation contract to pull amount from
// the token, waits for the approval to be mined, then delegates amount to
// the default delegatee through the delegation contract.
type ApproveThenDelegate struct {
	params Params
}

// Kind returns StrategyApproveDelegate.
func (s *ApproveThenDelegate) Kind() StrategyKind { return StrategyApproveDelegate }

// Execute runs approve, wait, delegate, wait. The delegate call is never
// submitted before the approval receipt is returned.
func (s *ApproveThenDelegate) Execute(ctx context.Context, signer wallet.Signer, amount *big.Int, report ReportFunc) (Outcome, error) {
	out := Outcome{
		Strategy:  StrategyApproveDelegate,
		Amount:    amount,
		Delegatee: s.params.DefaultDelegatee,
	}

	report(Update{Phase: PhaseApprove})
	approveHash, err := signer.SubmitContractCall(ctx, wallet.ContractCall{
		To:     s.params.TokenAddress,
		ABI:    wallet.ERC20,
		Method: "approve",
		Args:   []any{s.params.DelegationContract, amount},
	})
	if err != nil {
		return out, newError(KindChain, PhaseApprove, fmt.Errorf("submit approval: %w", err))
	}
	out.ApprovalHash = approveHash
	report(Update{
		Phase:   PhaseApprove,
		Message: fmt.Sprintf("Approval transaction submitted: %s. Waiting for confirmation...", approveHash.Hex()),
		TxHash:  approveHash,
	})

	if _, err := signer.WaitForConfirmation(ctx, approveHash); err != nil {
		return out, newError(KindChain, PhaseApprove, fmt.Errorf("confirm approval: %w", err))
	}

	report(Update{Phase: PhaseDelegate})
	delegateHash, err := signer.SubmitContractCall(ctx, wallet.ContractCall{
		To:     s.params.DelegationContract,
		ABI:    wallet.DelegationContract,
		Method: "delegate",
		Args:   []any{s.params.DefaultDelegatee, amount},
	})
	if err != nil {
		return out, newError(KindChain, PhaseDelegate, fmt.Errorf("submit delegation: %w", err))
	}
	out.TxHash = delegateHash
	report(Update{
		Phase:   PhaseDelegate,
		Message: fmt.Sprintf("Delegation transaction submitted: %s", delegateHash.Hex()),
		TxHash:  delegateHash,
	})

	receipt, err := signer.WaitForConfirmation(ctx, delegateHash)
	if err != nil {
		return out, newError(KindChain, PhaseDelegate, fmt.Errorf("confirm delegation: %w", err))
	}
	out.Receipt = receipt
	return out, nil
}

// SelfDelegate delegates the caller's whole voting weight to itself on the
// token contract. The amount only drives messaging; delegate(address) has
// no amount parameter.
type SelfDelegate struct {
	params Params
}

// Kind returns StrategySelfDelegate.
func (s *SelfDelegate) Kind() StrategyKind { return StrategySelfDelegate }

// Execute submits delegate(caller) and waits for it to be mined.
func (s *SelfDelegate) Execute(ctx context.Context, signer wallet.Signer, amount *big.Int, report ReportFunc) (Outcome, error) {
	self := signer.Address()
	out := Outcome{
		Strategy:  StrategySelfDelegate,
		Amount:    amount,
		Delegatee: self,
	}

	report(Update{Phase: PhaseDelegate})
	hash, err := signer.SubmitContractCall(ctx, wallet.ContractCall{
		To:     s.params.TokenAddress,
		ABI:    wallet.VotesToken,
		Method: "delegate",
		Args:   []any{self},
	})
	if err != nil {
		return out, newError(KindChain, PhaseDelegate, fmt.Errorf("submit delegation: %w", err))
	}
	out.TxHash = hash
	report(Update{
		Phase:   PhaseDelegate,
		Message: fmt.Sprintf("Delegation transaction submitted: %s. Waiting for confirmation...", hash.Hex()),
		TxHash:  hash,
	})

	receipt, err := signer.WaitForConfirmation(ctx, hash)
	if err != nil {
		return out, newError(KindChain, PhaseDelegate, fmt.Errorf("confirm delegation: %w", err))
	}
	out.Receipt = receipt
	return out, nil
}
