package fluxerr

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies one member of the closed failure taxonomy.
type Kind uint8

const (
	KindUnknown Kind = iota

	// KindConfigMissing: a required setting is absent. Startup failure.
	KindConfigMissing
	// KindConfigInvalid: a rule or band violates a model constraint.
	KindConfigInvalid
	// KindStoreConnection: transport error to the KV or rule store.
	KindStoreConnection
	// KindTimeout: an operation exceeded its configured timeout.
	KindTimeout
	// KindScriptExecution: the store-side script raised an error.
	KindScriptExecution
	// KindRuleExecution: internal rate-limit evaluation error.
	KindRuleExecution
	// KindNotification: a rule-change publish failed.
	KindNotification
	// KindCircuitOpen: a downstream call was suppressed by an open breaker.
	KindCircuitOpen
	// KindInvalidKey: the key resolver produced no usable bucket key.
	KindInvalidKey
	// KindInvalidArgument: a caller-supplied argument is out of range.
	KindInvalidArgument
	// KindSerialization: a stored document could not be decoded.
	KindSerialization
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConfigMissing:
		return "configuration.missing"
	case KindConfigInvalid:
		return "configuration.invalid"
	case KindStoreConnection:
		return "connection.store"
	case KindTimeout:
		return "timeout"
	case KindScriptExecution:
		return "script.execution"
	case KindRuleExecution:
		return "rule.execution"
	case KindNotification:
		return "notification"
	case KindCircuitOpen:
		return "circuit.open"
	case KindInvalidKey:
		return "invalid.key"
	case KindInvalidArgument:
		return "invalid.argument"
	case KindSerialization:
		return "serialization"
	default:
		return "unknown"
	}
}

// retryable is the default retry classification per kind.
func (k Kind) retryable() bool {
	switch k {
	case KindStoreConnection, KindTimeout, KindScriptExecution, KindRuleExecution:
		return true
	}
	return false
}

// Error is a failure tagged with its taxonomy kind. Op names the operation
// that failed ("bucketstore.tryconsume") for logs; Err is the underlying
// cause, if any.
type Error struct {
	Kind      Kind
	Op        string
	Retryable bool
	Err       error
}

// New builds a tagged error with the kind's default retry classification.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Retryable: kind.retryable(), Err: err}
}

// Newf builds a tagged error from a formatted message with no cause chain.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return New(kind, op, fmt.Errorf(format, args...))
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the taxonomy kind from err, unwrapping as needed. Context
// cancellation and deadline errors classify as KindTimeout even when no
// component tagged them.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindUnknown
}

// IsRetryable reports whether err carries a retryable classification.
// Untagged errors are not retryable.
func IsRetryable(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}
