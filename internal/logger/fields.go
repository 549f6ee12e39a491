package logger

import "log/slog"

// Standard field keys, kept consistent across every log statement so the
// output stays greppable and aggregator-friendly.
const (
	KeyConnectionID = "connection_id"
	KeyRequestID    = "request_id"
	KeyMethod       = "method"
	KeyShvPath      = "shv_path"
	KeyCallerIDs    = "caller_ids"
	KeyDeviceID     = "device_id"
	KeyBrokerAddr   = "broker_addr"
	KeyReconnects   = "reconnects"
	KeyBytes        = "bytes"
	KeyOffset       = "offset"
	KeyCRC          = "crc"
	KeyDurationMs   = "duration_ms"
	KeyError        = "error"
	KeyErrorCode    = "error_code"
)

func ConnectionID(id string) slog.Attr { return slog.String(KeyConnectionID, id) }
func RequestID(id int64) slog.Attr     { return slog.Int64(KeyRequestID, id) }
func Method(name string) slog.Attr     { return slog.String(KeyMethod, name) }
func ShvPath(path string) slog.Attr    { return slog.String(KeyShvPath, path) }
func DeviceID(id string) slog.Attr     { return slog.String(KeyDeviceID, id) }
func BrokerAddr(addr string) slog.Attr { return slog.String(KeyBrokerAddr, addr) }
func Reconnects(n int) slog.Attr       { return slog.Int(KeyReconnects, n) }
func Bytes(n int) slog.Attr            { return slog.Int(KeyBytes, n) }
func Offset(off uint64) slog.Attr      { return slog.Uint64(KeyOffset, off) }
func CRC(v uint32) slog.Attr           { return slog.Uint64(KeyCRC, uint64(v)) }
func DurationMs(ms float64) slog.Attr  { return slog.Float64(KeyDurationMs, ms) }
func ErrorCode(code int) slog.Attr     { return slog.Int(KeyErrorCode, code) }

func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
