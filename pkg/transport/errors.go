package transport

import "errors"

// InitError wraps a transport.Init failure with the retryable/fatal split
// the connection's reconnect policy needs: a retryable error (peer
// unreachable, connection refused) is worth another attempt; a fatal one
// (bad address, misconfiguration) is not.
type InitError struct {
	Fatal bool
	Err   error
}

func (e *InitError) Error() string { return e.Err.Error() }
func (e *InitError) Unwrap() error { return e.Err }

// Retryable wraps err as a retryable InitError.
func Retryable(err error) error { return &InitError{Fatal: false, Err: err} }

// Fatal wraps err as a non-retryable InitError.
func Fatal(err error) error { return &InitError{Fatal: true, Err: err} }

// IsFatal reports whether err (from Init) should stop the reconnect loop
// rather than being retried. A non-InitError is treated as retryable, since
// it did not come from this package's own classification.
func IsFatal(err error) bool {
	var ie *InitError
	if errors.As(err, &ie) {
		return ie.Fatal
	}
	return false
}
