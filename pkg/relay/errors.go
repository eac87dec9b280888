package relay

import (
	"errors"
	"fmt"
)

// Sentinel errors for common relay conditions.
var (
	// ErrSessionClosed is returned when an operation is attempted on a
	// closed session.
	ErrSessionClosed = errors.New("relay: session closed")

	// ErrServerStopped is returned by Start on a server that has already
	// been stopped. Stopped servers are not restartable; create a new one.
	ErrServerStopped = errors.New("relay: server stopped")

	// ErrAlreadyStarted is returned when Start is called on a server that
	// is already listening.
	ErrAlreadyStarted = errors.New("relay: server already started")
)

// BindError reports that the listening socket could not be acquired.
// It is fatal to the Start call that produced it: the relay cannot function
// without its port, so this is the one error surfaced loudly to the caller.
type BindError struct {
	Addr string // Listen address that failed
	Err  error  // Underlying error
}

// Error returns the error message with the failed address.
func (e *BindError) Error() string {
	return fmt.Sprintf("relay: bind %s: %v", e.Addr, e.Err)
}

// Unwrap returns the underlying error.
func (e *BindError) Unwrap() error {
	return e.Err
}

// TransportError reports a read or write failure on an active session.
// The session is torn down and the server returns to listening; the error is
// contained there and never propagated to the producer side.
type TransportError struct {
	Op  string // "read" or "write"
	Err error  // Underlying error
}

// Error returns the error message with the failed operation.
func (e *TransportError) Error() string {
	return fmt.Sprintf("relay: transport %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}
