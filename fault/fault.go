// Package fault defines the error taxonomy shared by the deposit, bridge and
// position adapters. Adapters return discriminated results carrying a *Fault
// instead of letting raw SDK errors cross their boundary.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an adapter failure.
type Kind string

// Failure kinds surfaced to callers.
const (
	WalletNotConnected    Kind = "wallet_not_connected"
	WrongNetwork          Kind = "wrong_network"
	InsufficientBalance   Kind = "insufficient_balance"
	BelowMinimumAmount    Kind = "below_minimum_amount"
	UnsupportedToken      Kind = "unsupported_token"
	UserRejectedSignature Kind = "user_rejected_signature"
	ContractPaused        Kind = "contract_paused"
	ExecutionReverted     Kind = "execution_reverted"
	ExchangeRejectedOrder Kind = "exchange_rejected_order"
	InvalidOrderParams    Kind = "invalid_order_params"
	Unknown               Kind = "unknown"
)

// Fault is a categorized, human-readable failure. Cause retains the original
// error for diagnosis and errors.Is matching.
type Fault struct {
	Kind    Kind
	Message string
	Cause   error
}

// New returns a fault with the given kind and message.
func New(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns a fault carrying the underlying cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Cause != nil {
		return f.Message + ": " + f.Cause.Error()
	}
	return f.Message
}

// Unwrap exposes the cause for errors.Is/As.
func (f *Fault) Unwrap() error {
	return f.Cause
}

// Is matches faults by kind so sentinel-style comparisons work in tests.
func (f *Fault) Is(target error) bool {
	var other *Fault
	if !errors.As(target, &other) {
		return false
	}
	return f.Kind == other.Kind
}

// Classify maps a raw RPC, wallet or exchange error onto the taxonomy. The
// match is substring based; anything unrecognized falls back to Unknown with
// the raw message preserved.
func Classify(err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user rejected"),
		strings.Contains(msg, "user denied"),
		strings.Contains(msg, "action_rejected"):
		return Wrap(UserRejectedSignature, err, "signature request was rejected")
	case strings.Contains(msg, "insufficient funds"),
		strings.Contains(msg, "insufficient balance"),
		strings.Contains(msg, "transfer amount exceeds balance"):
		return Wrap(InsufficientBalance, err, "insufficient balance")
	case strings.Contains(msg, "paused"):
		return Wrap(ContractPaused, err, "contract is paused")
	case strings.Contains(msg, "execution reverted"),
		strings.Contains(msg, "revert"):
		return Wrap(ExecutionReverted, err, "execution reverted")
	case strings.Contains(msg, "wrong network"),
		strings.Contains(msg, "chain mismatch"),
		strings.Contains(msg, "unsupported chain"):
		return Wrap(WrongNetwork, err, "connected to the wrong network")
	case strings.Contains(msg, "invalid order"),
		strings.Contains(msg, "order must have"),
		strings.Contains(msg, "invalid size"),
		strings.Contains(msg, "invalid price"):
		return Wrap(InvalidOrderParams, err, "invalid order parameters")
	default:
		return Wrap(Unknown, err, "unexpected failure")
	}
}
