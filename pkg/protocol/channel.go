package protocol

import "context"

// Channel is a bidirectional, ordered envelope transport for one session.
//
// Send and Receive must propagate context cancellation promptly. A Channel is
// owned by the session supervisor; the Turn Engine and Audio Coordinator only
// receive a reference and never close it themselves.
//
// Implementations must serialise concurrent Send calls so that envelopes
// arrive at the client in emission order.
type Channel interface {
	// Send writes one envelope. Returns an error if the transport is closed
	// or ctx is cancelled before the write completes.
	Send(ctx context.Context, e Envelope) error

	// Receive blocks until the next envelope arrives from the client.
	// Returns an error on transport close, malformed payload, or ctx
	// cancellation.
	Receive(ctx context.Context) (Envelope, error)

	// Close tears the transport down with a status code and reason.
	// Safe to call more than once.
	Close(code CloseCode, reason string) error
}

// CloseCode is the transport-level close status. Values mirror the WebSocket
// status code registry so the WebSocket implementation can pass them through.
type CloseCode int

const (
	// CloseNormal indicates an orderly end of session.
	CloseNormal CloseCode = 1000

	// ClosePolicyViolation indicates the connection was refused, e.g. a
	// failed authentication or a duplicate session.
	ClosePolicyViolation CloseCode = 1008

	// CloseInternalError indicates a server-side failure.
	CloseInternalError CloseCode = 1011
)
