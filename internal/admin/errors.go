package admin

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an AdminError.
type Kind int

const (
	// KindTransport covers lost connections, timeouts and unreachable servers.
	KindTransport Kind = iota + 1
	// KindProtocol covers requests the server rejected: bad credentials,
	// unknown destination, scope or request id, malformed payload.
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// AdminError is returned by every failed Read or Modify.
type AdminError struct {
	Kind        Kind
	Op          string
	Destination Destination
	Scope       Scope
	RequestID   RequestID
	// Message is human readable and comes from the server or the transport.
	Message string
	Err     error
}

func (e *AdminError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s error: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s %s/%s: %s error: %s", e.Op, e.Destination, e.Scope, e.Kind, msg)
}

func (e *AdminError) Unwrap() error { return e.Err }

// TransportError builds a KindTransport error. Conn implementations use it.
func TransportError(msg string, err error) *AdminError {
	return &AdminError{Kind: KindTransport, Message: msg, Err: err}
}

// ProtocolError builds a KindProtocol error. Conn implementations use it.
func ProtocolError(msg string) *AdminError {
	return &AdminError{Kind: KindProtocol, Message: msg}
}

func IsTransport(err error) bool { return kindOf(err) == KindTransport }

func IsProtocol(err error) bool { return kindOf(err) == KindProtocol }

func kindOf(err error) Kind {
	var ae *AdminError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

// classify turns whatever a Conn returned into an AdminError stamped with the
// call it belongs to. Unknown errors count as transport failures.
func classify(err error, op string, dest Destination, scope Scope, rid RequestID) *AdminError {
	var ae *AdminError
	if errors.As(err, &ae) {
		out := *ae
		out.Op, out.Destination, out.Scope, out.RequestID = op, dest, scope, rid
		return &out
	}
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out"
	} else if errors.Is(err, context.Canceled) {
		msg = "request canceled"
	}
	return &AdminError{
		Kind:        KindTransport,
		Op:          op,
		Destination: dest,
		Scope:       scope,
		RequestID:   rid,
		Message:     msg,
		Err:         err,
	}
}
