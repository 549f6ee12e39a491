// Package metrics defines this device's observability surface as a plain
// interface, decoupling instrumented code from any particular backend.
// Passing a nil DeviceMetrics disables collection with zero overhead;
// pkg/metrics/prometheus supplies the only implementation this module
// ships.
package metrics

import "time"

// DeviceMetrics observes the connection lifecycle and method dispatch of a
// single device. Implementations tolerate a nil pointer receiver, but a
// nil DeviceMetrics interface value (what prometheus.NewDeviceMetrics
// returns when metrics are disabled) has no methods to call, so callers
// check the value against nil before each call.
type DeviceMetrics interface {
	// RecordRequest records one dispatched method call.
	//
	// Parameters:
	//   - shvPath: the node path the request targeted
	//   - method: the method name invoked
	//   - duration: time spent inside the handler
	//   - errorCode: empty on success, non-empty if dispatch returned an
	//     error (pkg/connection passes "error")
	RecordRequest(shvPath, method string, duration time.Duration, errorCode string)

	// RecordReconnectAttempt increments the reconnect-attempts counter.
	RecordReconnectAttempt()

	// RecordConnected increments the total successful-handshake counter.
	RecordConnected()

	// RecordDisconnected increments the total disconnect counter.
	RecordDisconnected()

	// SetConnectionState publishes the connection's current lifecycle state
	// as a gauge, using the same string values as connection.State.String.
	SetConnectionState(state string)

	// RecordBytesTransferred records raw bytes moved across the transport.
	//
	// Parameters:
	//   - direction: "read" or "write"
	//   - bytes: number of bytes transferred
	RecordBytesTransferred(direction string, bytes uint64)

	// RecordFileBytes records bytes moved through a file node's write or
	// read handler, separately from the raw transport byte counters above.
	//
	// Parameters:
	//   - operation: "write" or "read"
	//   - bytes: number of bytes transferred
	RecordFileBytes(operation string, bytes uint64)
}
