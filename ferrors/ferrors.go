// Package ferrors defines the structured error kinds returned throughout
// fusilli-go: graph validation, MLIR emission, compilation and execution
// never panic across an exported API boundary, they return an *Error
// carrying a stable Kind for programmatic handling plus a human-readable
// message.
package ferrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies the class of failure that produced an Error. Kind is
// stable across releases so callers can branch on it with errors.As.
type Kind int

const (
	// AttributeNotSet indicates a required attribute (e.g. a graph or
	// operator name) was never provided.
	AttributeNotSet Kind = iota
	// InvalidAttribute indicates a provided attribute value violates an
	// invariant (bad rank, non-positive stride, unrecognized enum value...).
	InvalidAttribute
	// NotValidated indicates an operation that requires a validated graph
	// (emitAsm, compile) was called before validate() succeeded.
	NotValidated
	// ShapeInferenceFailure indicates the multi-pass inference walk could
	// not resolve a tensor's dim, stride or element type.
	ShapeInferenceFailure
	// CompileFailure indicates the external compiler child process
	// returned a non-zero exit status.
	CompileFailure
	// RuntimeFailure indicates a runtime ABI call (session creation, push,
	// invoke, pop, buffer allocation) returned a non-OK status.
	RuntimeFailure
)

func (k Kind) String() string {
	switch k {
	case AttributeNotSet:
		return "AttributeNotSet"
	case InvalidAttribute:
		return "InvalidAttribute"
	case NotValidated:
		return "NotValidated"
	case ShapeInferenceFailure:
		return "ShapeInferenceFailure"
	case CompileFailure:
		return "CompileFailure"
	case RuntimeFailure:
		return "RuntimeFailure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the concrete error type returned by every fallible operation in
// this module. It carries a stable Kind plus a message, and preserves the
// wrapped cause's stack trace (via github.com/pkg/errors) when one exists.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

// Unwrap allows errors.Is / errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.cause }

// Kind returns the structured error kind, for programmatic handling.
func (e *Error) Kind() Kind { return e.kind }

// New creates an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error of the given kind that wraps an existing error,
// preserving its stack trace the way github.com/pkg/errors.Wrapf does.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	if cause == nil {
		return New(kind, format, args...)
	}
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	return fe.kind == kind
}
