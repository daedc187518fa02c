package delegation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/tabula-labs/tabula/internal/wallet"
)

// Executor drives one delegation: wallet check, network switch, base unit
// conversion and the configured strategy. It holds no per-run state, so one
// Executor can serve many sessions.
type Executor struct {
	params   Params
	strategy Strategy
	logger   *slog.Logger
}

// NewExecutor validates params and selects the strategy they name.
func NewExecutor(params Params, logger *slog.Logger) (*Executor, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid delegation params: %w", err)
	}
	strategy, err := NewStrategy(params)
	if err != nil {
		return nil, err
	}
	return NewExecutorWithStrategy(params, strategy, logger), nil
}

// NewExecutorWithStrategy uses a caller supplied strategy.
func NewExecutorWithStrategy(params Params, strategy Strategy, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{params: params, strategy: strategy, logger: logger}
}

// Params returns the executor's configuration.
func (e *Executor) Params() Params {
	return e.params
}

// Execute delegates amount (a positive decimal string) using signer. Every
// user-visible step is sent to report; a failure produces exactly one
// failure message and an *Error.
func (e *Executor) Execute(ctx context.Context, signer wallet.Signer, amount string, report ReportFunc) (Outcome, error) {
	if report == nil {
		report = func(Update) {}
	}
	r := &run{report: report}

	if signer == nil {
		r.fail(newError(KindPrecondition, PhaseIdle, ErrWalletNotConnected), "Please connect your wallet first.")
		e.logger.Warn("Delegation rejected: wallet not connected", "amount", amount)
		return Outcome{}, r.err
	}

	log := e.logger.With("address", signer.Address().Hex(), "amount", amount, "strategy", e.strategy.Kind())
	log.Info("Delegation started")

	r.emit(PhaseNetworkSwitch, fmt.Sprintf("Initiating delegation of %s %s to %s...",
		amount, e.params.TokenSymbol, e.params.TargetProtocol))

	if err := signer.SwitchNetwork(ctx, e.params.ChainID); err != nil {
		r.fail(newError(KindNetwork, PhaseNetworkSwitch, err),
			fmt.Sprintf("Failed to switch to the %s network (%v). Please switch networks manually in your wallet and try again.",
				e.chainName(), err))
		log.Warn("Network switch failed", "chain_id", e.params.ChainID, "error", err)
		return Outcome{}, r.err
	}

	value, err := ToBaseUnits(amount, e.params.TokenDecimals)
	if err == nil && value.Sign() <= 0 {
		err = fmt.Errorf("%w: amount must be positive", errInvalidAmount)
	}
	if err != nil {
		r.fail(newError(KindInput, e.firstPhase(), err), failureMessage(err))
		log.Warn("Delegation amount rejected", "error", err)
		return Outcome{}, r.err
	}

	out, err := e.strategy.Execute(ctx, signer, new(big.Int).Set(value), r.forward)
	if err != nil {
		var de *Error
		if !errors.As(err, &de) {
			de = newError(KindChain, r.phase, err)
		}
		r.fail(de, failureMessage(de.Err))
		log.Error("Delegation failed", "phase", de.Phase.String(), "kind", de.Kind, "error", de.Err)
		return out, de
	}

	r.emit(PhaseConfirmed, fmt.Sprintf("Successfully delegated %s %s to %s! Transaction: %s",
		amount, e.params.TokenSymbol, e.params.TargetProtocol, out.TxHash.Hex()))
	log.Info("Delegation confirmed", "tx_hash", out.TxHash.Hex())
	return out, nil
}

// firstPhase is the phase of the first transaction the strategy submits.
func (e *Executor) firstPhase() Phase {
	if e.strategy.Kind() == StrategyApproveDelegate {
		return PhaseApprove
	}
	return PhaseDelegate
}

func (e *Executor) chainName() string {
	if e.params.ChainName != "" {
		return e.params.ChainName
	}
	return fmt.Sprintf("chain %d", e.params.ChainID)
}

func failureMessage(err error) string {
	return fmt.Sprintf("Delegation failed: %v", err)
}

// run is the in-flight state of one Execute call.
type run struct {
	report ReportFunc
	phase  Phase
	err    *Error
}

func (r *run) emit(phase Phase, msg string) {
	r.phase = phase
	r.report(Update{Phase: phase, Message: msg})
}

func (r *run) forward(u Update) {
	r.phase = u.Phase
	r.report(u)
}

func (r *run) fail(err *Error, msg string) {
	r.err = err
	r.emit(PhaseFailed, msg)
}
