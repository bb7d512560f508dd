// Package asmerr defines the error taxonomy shared by the parser, lifter,
// and lowerer: a closed set of kinds, each textual only, never used to
// signal a retryable or partial-output condition.
package asmerr

import (
	"tlog.app/go/errors"
)

type Kind int

const (
	IoOpen Kind = iota
	UnknownInstruction
	BadOperandCount
	BadOperandShape
	BadAddressExpression
	UnresolvedTarget
	IrVerificationFailed
	UnsupportedLowering
)

func (k Kind) String() string {
	switch k {
	case IoOpen:
		return "IoOpen"
	case UnknownInstruction:
		return "UnknownInstruction"
	case BadOperandCount:
		return "BadOperandCount"
	case BadOperandShape:
		return "BadOperandShape"
	case BadAddressExpression:
		return "BadAddressExpression"
	case UnresolvedTarget:
		return "UnresolvedTarget"
	case IrVerificationFailed:
		return "IrVerificationFailed"
	case UnsupportedLowering:
		return "UnsupportedLowering"
	default:
		return "Unknown"
	}
}

// Error is a kind-tagged error. Its message carries the human-readable
// detail; Kind is for programmatic matching via Is.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.err.Error() }
func (e *Error) Unwrap() error { return e.err }

// New builds a Kind-tagged error with a printf-style message.
func New(k Kind, format string, args ...any) error {
	return &Error{Kind: k, err: errors.New(format, args...)}
}

// Wrap attaches a Kind and contextual message to a lower-level error.
func Wrap(k Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, err: errors.Wrap(err, format, args...)}
}

// Is reports whether the first *Error found in err's Unwrap chain (err
// itself included) has the given Kind. Kinds of *Errors nested beneath
// that first one are not consulted.
func Is(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind == k
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
