package swap

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// Kind classifies an Error the way the RPC surface needs to map it onto a
// stable response code.
type Kind int

const (
	// KindInvalidArgument covers request validation failures.
	KindInvalidArgument Kind = iota
	// KindFailedPrecondition covers a request that is well-formed but
	// inapplicable given the swap/quote's current state.
	KindFailedPrecondition
	// KindNotFound covers an unknown quote or swap id.
	KindNotFound
	// KindUnauthenticated covers a missing or invalid bearer token.
	KindUnauthenticated
	// KindPermissionDenied covers a token valid for the wrong role.
	KindPermissionDenied
	// KindInternal covers signing, storage, chain backend, or encoding
	// failures that are not the caller's fault.
	KindInternal
	// KindDeadlineExceeded covers a bounded wait that expired.
	KindDeadlineExceeded
	// KindPreimageMismatch covers a payment whose preimage does not hash
	// to the swap's payment_hash.
	KindPreimageMismatch
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindFailedPrecondition:
		return "failed_precondition"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindPermissionDenied:
		return "permission_denied"
	case KindInternal:
		return "internal"
	case KindDeadlineExceeded:
		return "deadline_exceeded"
	case KindPreimageMismatch:
		return "preimage_mismatch"
	default:
		return "unknown"
	}
}

// Error is the error type every swap operation returns. The RPC layer maps
// Kind onto its own status codes; callers elsewhere use errors.As to
// recover it.
type Error struct {
	Kind    Kind
	Message string

	// cause, when set, retains a stack trace for logging; it is never
	// included in Error() so nothing leaks to an RPC caller.
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds an Error of the given kind with a formatted message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapInternal records an unexpected internal failure, keeping a stack
// trace in cause for logging while surfacing only a terse Internal kind to
// the caller.
func WrapInternal(err error, context string) *Error {
	return &Error{
		Kind:    KindInternal,
		Message: context,
		cause:   goerrors.Wrap(err, 1),
	}
}

// Cause returns the wrapped internal error with its stack trace, or nil if
// this Error was not built via WrapInternal. Intended for logging only.
func (e *Error) Cause() error { return e.cause }
