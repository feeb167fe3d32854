package ros

import (
	"fmt"
	"net"

	"github.com/pkg/errors"
)

// Kind classifies the errors a node can surface to user code, per the
// taxonomy in the design: transport, timeout, serialization, server,
// io, naming, and an escape hatch for anything else.
type Kind int

const (
	// KindDisconnected means the underlying transport is down; in-flight
	// operations fail and a self-healing reconnect may restore it later.
	KindDisconnected Kind = iota
	// KindTimeout means a bounded operation exceeded its deadline.
	KindTimeout
	// KindSerialization means a payload did not deserialize under its
	// declared type, or an md5sum mismatched during handshake.
	KindSerialization
	// KindServer means the master or a peer's XML-RPC call returned a
	// failure status.
	KindServer
	// KindIO wraps a raw network-layer failure.
	KindIO
	// KindInvalidName means a name failed the canonical ROS name grammar.
	KindInvalidName
	// KindUnexpected is the catch-all for anomalies with no better home.
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindDisconnected:
		return "disconnected"
	case KindTimeout:
		return "timeout"
	case KindSerialization:
		return "serialization"
	case KindServer:
		return "server"
	case KindIO:
		return "io"
	case KindInvalidName:
		return "invalid_name"
	default:
		return "unexpected"
	}
}

// Error is the concrete error type every fallible ros operation returns.
// It carries a Kind so callers can branch with errors.As, and wraps the
// underlying cause (if any) so errors.Unwrap/errors.Is keep working.
type Error struct {
	Kind   Kind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("ros: %s: %s: %v", e.Kind, e.Detail, e.cause)
	}
	return fmt.Sprintf("ros: %s: %s", e.Kind, e.Detail)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.cause }

func newErr(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func wrapErr(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, cause: errors.WithStack(cause)}
}

// Disconnectedf builds a KindDisconnected error.
func Disconnectedf(format string, args ...interface{}) error {
	return newErr(KindDisconnected, fmt.Sprintf(format, args...))
}

// Timeoutf builds a KindTimeout error describing the operation that
// exceeded its deadline.
func Timeoutf(context string) error {
	return newErr(KindTimeout, context)
}

// SerializationErrorf builds a KindSerialization error.
func SerializationErrorf(format string, args ...interface{}) error {
	return newErr(KindSerialization, fmt.Sprintf(format, args...))
}

// ServerErrorf builds a KindServer error from a master/peer RPC failure.
func ServerErrorf(format string, args ...interface{}) error {
	return newErr(KindServer, fmt.Sprintf(format, args...))
}

// IoErrorf wraps a network-layer failure as a KindIO error.
func IoErrorf(cause error, context string) error {
	return wrapErr(KindIO, context, cause)
}

// InvalidNamef builds a KindInvalidName error for a name that failed the
// canonical ROS name grammar.
func InvalidNamef(name string) error {
	return newErr(KindInvalidName, fmt.Sprintf("invalid name: %q", name))
}

// Unexpectedf builds a KindUnexpected catch-all error.
func Unexpectedf(format string, args ...interface{}) error {
	return newErr(KindUnexpected, fmt.Sprintf(format, args...))
}

// classifyIOErr reports a timed-out dial/read as KindTimeout, matching
// the bounded-connect-deadline requirement, and everything else as a
// plain KindIO failure.
func classifyIOErr(err error, context string) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newErr(KindTimeout, context)
	}
	return wrapErr(KindIO, context, err)
}

// IsKind reports whether err is a *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
