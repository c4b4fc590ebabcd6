// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package errs

import (
	"errors"
	"fmt"
)

// Kind is the user-facing category of a failure.
type Kind string

const (
	ProviderUnavailable Kind = "provider_unavailable"
	WalletDisabled      Kind = "wallet_disabled"
	PairingFailed       Kind = "pairing_failed"
	AlreadyConnecting   Kind = "already_connecting"
	NotConnected        Kind = "not_connected"
	UnsupportedNetwork  Kind = "unsupported_network"
	UserRejected        Kind = "user_rejected"
	ContractReverted    Kind = "contract_reverted"
	TransportError      Kind = "transport_error"
	NotFound            Kind = "not_found"
	InvalidInput        Kind = "invalid_input"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrProviderUnavailable = &Error{Kind: ProviderUnavailable}
	ErrWalletDisabled      = &Error{Kind: WalletDisabled}
	ErrPairingFailed       = &Error{Kind: PairingFailed}
	ErrAlreadyConnecting   = &Error{Kind: AlreadyConnecting}
	ErrNotConnected        = &Error{Kind: NotConnected}
	ErrUnsupportedNetwork  = &Error{Kind: UnsupportedNetwork}
	ErrUserRejected        = &Error{Kind: UserRejected}
	ErrContractReverted    = &Error{Kind: ContractReverted}
	ErrTransport           = &Error{Kind: TransportError}
	ErrNotFound            = &Error{Kind: NotFound}
	ErrInvalidInput        = &Error{Kind: InvalidInput}
)

// Error is a categorized failure. Reason is shown to users when set,
// Hint points at an installation or settings resource.
type Error struct {
	Kind   Kind
	Op     string
	Reason string
	Hint   string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so callers can match against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates a categorized error wrapping cause (which may be nil).
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Newf creates a categorized error with a formatted reason.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Reason: fmt.Sprintf(format, args...)}
}

// WithHint returns a copy of e carrying a resource hint.
func (e *Error) WithHint(hint string) *Error {
	c := *e
	c.Hint = hint
	return &c
}

// KindOf returns the category of err, or TransportError for anything
// that was never categorized.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return TransportError
}

// ReasonOf returns the human-readable reason carried by err, if any.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// HintOf returns the resource hint carried by err, if any.
func HintOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Hint
	}
	return ""
}

// Label is the generic text for a kind, used when no readable reason exists.
func (k Kind) Label() string {
	switch k {
	case ProviderUnavailable:
		return "wallet provider unavailable"
	case WalletDisabled:
		return "wallet disabled"
	case PairingFailed:
		return "wallet pairing failed"
	case AlreadyConnecting:
		return "already connecting"
	case NotConnected:
		return "wallet not connected"
	case UnsupportedNetwork:
		return "unsupported network"
	case UserRejected:
		return "user rejected the request"
	case ContractReverted:
		return "contract reverted"
	case TransportError:
		return "network error"
	case NotFound:
		return "not found"
	case InvalidInput:
		return "invalid input"
	}
	return string(k)
}
