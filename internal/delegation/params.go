// Package delegation runs the on-chain delegation flow behind the
// "delegate N SEAM to Seamless Protocol" chat command.
package delegation

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// StrategyKind names a delegation contract shape.
type StrategyKind string

const (
	// StrategyApproveDelegate approves an intermediary delegation contract
	// and then delegates the amount to a fixed delegatee through it.
	StrategyApproveDelegate StrategyKind = "approve_delegate"
	// StrategySelfDelegate calls delegate(caller) on the token itself.
	StrategySelfDelegate StrategyKind = "self_delegate"
)

// Params is the fixed on-chain configuration for one deployment.
// Treat it as immutable once passed to NewExecutor.
type Params struct {
	ChainID            uint64
	ChainName          string
	TokenAddress       common.Address
	TokenSymbol        string
	TokenDecimals      uint8
	DelegationContract common.Address
	DefaultDelegatee   common.Address
	TargetProtocol     string
	Strategy           StrategyKind
}

// Validate checks that the params are usable by the selected strategy.
func (p Params) Validate() error {
	if p.ChainID == 0 {
		return errors.New("chain id is required")
	}
	if p.TokenAddress == (common.Address{}) {
		return errors.New("token address is required")
	}
	if p.TokenSymbol == "" {
		return errors.New("token symbol is required")
	}
	switch p.Strategy {
	case StrategyApproveDelegate:
		if p.DelegationContract == (common.Address{}) {
			return errors.New("delegation contract is required for approve_delegate")
		}
		if p.DefaultDelegatee == (common.Address{}) {
			return errors.New("default delegatee is required for approve_delegate")
		}
	case StrategySelfDelegate:
	default:
		return fmt.Errorf("unknown delegation strategy %q", p.Strategy)
	}
	return nil
}
