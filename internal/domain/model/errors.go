package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every error produced by the client-side protocol matches
// exactly one of these with errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrPrecondition     = errors.New("precondition error")
	ErrUnavailable      = errors.New("unavailable")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrSettlement       = errors.New("settlement failure")
	ErrTimeout          = errors.New("timeout")
	ErrUnknownReference = errors.New("unknown reference")
)

// Error carries the operation, kind and user-facing message of a failure.
type Error struct {
	Op   string
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind builds an error of the given kind with a user-facing message.
func NewKind(op string, kind error, msg string) error {
	return &Error{Op: op, Kind: kind, Msg: msg}
}

// WrapKind attaches a kind to an underlying cause.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func Validation(op, msg string) error      { return NewKind(op, ErrValidation, msg) }
func Precondition(op, msg string) error    { return NewKind(op, ErrPrecondition, msg) }
func InvalidArgument(op, msg string) error { return NewKind(op, ErrInvalidArgument, msg) }

// SettlementFailure reports a write the ledger accepted and later rejected.
func SettlementFailure(op, reason string) error {
	if reason == "" {
		reason = "transaction reverted"
	}
	return NewKind(op, ErrSettlement, reason)
}

// Unavailable wraps a transport or backend failure.
func Unavailable(op string, err error) error {
	if err == nil {
		err = ErrUnavailable
	}
	return WrapKind(op, ErrUnavailable, err)
}

// Timeout wraps an expired wait.
func Timeout(op string, err error) error {
	return &Error{Op: op, Kind: ErrTimeout, Msg: "timed out waiting for settlement", Err: err}
}

// KindOf returns the taxonomy kind of err, or nil when it has none.
func KindOf(err error) error {
	for _, k := range []error{ErrValidation, ErrPrecondition, ErrInvalidArgument, ErrSettlement, ErrTimeout, ErrUnknownReference, ErrUnavailable} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// KindLabel returns a short metric label for the kind of err.
func KindLabel(err error) string {
	switch KindOf(err) {
	case nil:
		if err == nil {
			return ""
		}
		return "other"
	case ErrValidation:
		return "validation"
	case ErrPrecondition:
		return "precondition"
	case ErrInvalidArgument:
		return "invalid_argument"
	case ErrSettlement:
		return "settlement"
	case ErrTimeout:
		return "timeout"
	case ErrUnknownReference:
		return "unknown_reference"
	default:
		return "unavailable"
	}
}

// Message returns the user-facing text of err without the operation prefix.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Msg != "" {
			return e.Msg
		}
		if e.Err != nil {
			return Message(e.Err)
		}
		if e.Kind != nil {
			return e.Kind.Error()
		}
	}
	return err.Error()
}
