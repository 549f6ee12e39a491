// Package transport defines the narrow byte-stream interface a Connection
// pumps ChainPack frames over, plus reference implementations: tcpip for a
// real broker socket, testmem for an in-memory pair used by the connection
// lifecycle tests. Serial and CAN-bus transports would implement the same
// interface behind their own private framing state machines, but are out of
// scope for this module.
package transport

import (
	"context"
	"errors"
)

// ErrClosed reports an operation on a transport that was already closed
// locally. Only testmem's DataReady returns it; testmem's Read reports
// (0, nil) after a local close, like a clean peer close.
var ErrClosed = errors.New("transport: closed")

// Transport is the five-operation abstraction a Connection's worker
// goroutine drives: establish, read, write, wait-for-data, tear down.
type Transport interface {
	// Init establishes the underlying channel (dial a socket, open a
	// device file, ...). The connection's reconnect loop calls Init again
	// on the same Transport after a failed Init or a Close, so an
	// implementation must accept repeated calls. A failure is classified as
	// retryable or fatal by wrapping it in an InitError (see Retryable,
	// Fatal and IsFatal in errors.go).
	Init(ctx context.Context) error

	// Read blocks until at least one byte is available, filling buf and
	// returning the count. Returns (0, nil) on a clean peer close and
	// (0, err) on any other failure, mirroring io.Reader except that a
	// clean close is not reported as io.EOF so callers can distinguish it
	// from a short read without special-casing the sentinel error.
	Read(buf []byte) (int, error)

	// Write writes all of p or returns a non-nil error; partial writes
	// are retried internally so callers never have to loop.
	Write(p []byte) (int, error)

	// Close tears the transport down. Idempotent: calling Close more than
	// once returns nil on every call after the first.
	Close() error

	// DataReady blocks up to timeoutMs waiting for the transport to
	// become readable, or until shutdown fires. It returns (true, nil) if
	// Read would not block, (false, nil) on timeout or shutdown, and
	// (false, err) on a transport-level error.
	DataReady(timeoutMs int, shutdown <-chan struct{}) (bool, error)
}
