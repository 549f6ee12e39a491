// Package rpc implements the SHV RPC frame layer on top of pkg/chainpack:
// the length-prefixed wire frame, the meta/payload message shape, and the
// two-pass emit trick that lets a sender discover a message's length
// without buffering it in memory.
package rpc

import "fmt"

// ErrorCode is the numeric error code carried in an error reply's payload.
type ErrorCode int

const (
	MethodNotFound       ErrorCode = 2
	InvalidParams        ErrorCode = 3
	PlatformError        ErrorCode = 6
	FileMaxSize          ErrorCode = 7
	MethodCallException  ErrorCode = 8
	LoginRequired        ErrorCode = 10
	UserIDRequired       ErrorCode = 11
	NotImplementedError  ErrorCode = 12
	TryAgainLater        ErrorCode = 13
	RequestInvalid       ErrorCode = 14
)

func (c ErrorCode) String() string {
	switch c {
	case MethodNotFound:
		return "MethodNotFound"
	case InvalidParams:
		return "InvalidParams"
	case PlatformError:
		return "PlatformError"
	case FileMaxSize:
		return "FileMaxSize"
	case MethodCallException:
		return "MethodCallException"
	case LoginRequired:
		return "LoginRequired"
	case UserIDRequired:
		return "UserIdRequired"
	case NotImplementedError:
		return "NotImplemented"
	case TryAgainLater:
		return "TryAgainLater"
	case RequestInvalid:
		return "RequestInvalid"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// WireError is the {1: code, 2: message} pair carried under payload key 3.
type WireError struct {
	Code    ErrorCode
	Message string
}

func (e *WireError) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
