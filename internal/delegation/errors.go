package delegation

import (
	"errors"
	"fmt"
)

// Kind classifies why a delegation failed.
type Kind string

const (
	KindPrecondition Kind = "precondition"
	KindInput        Kind = "input"
	KindNetwork      Kind = "network"
	KindChain        Kind = "chain"
)

// ErrWalletNotConnected is the precondition failure for a missing signer.
var ErrWalletNotConnected = errors.New("wallet not connected")

// Error is the failure result of one delegation attempt.
type Error struct {
	Kind  Kind
	Phase Phase
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failure during %s: %v", e.Kind, e.Phase, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or "" if err is not a delegation error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func newError(kind Kind, phase Phase, err error) *Error {
	return &Error{Kind: kind, Phase: phase, Err: err}
}
