// Package methods builds the two fixed convenience nodes most SHV devices
// expose: .app (protocol/version introspection) and .device (platform
// identity and lifecycle hooks).
package methods

import (
	"time"

	"github.com/silicon-heaven/shvdevice-go/pkg/chainpack"
	"github.com/silicon-heaven/shvdevice-go/pkg/rpc"
	"github.com/silicon-heaven/shvdevice-go/pkg/tree"
)

// AppInfo supplies the facts the .app node reports. DateHook is optional;
// when nil, date replies NotImplemented.
type AppInfo struct {
	Name     string
	Version  string
	DateHook func() time.Time
}

// NewAppNode builds the .app node: name, version, ping, date,
// shvVersionMajor (fixed 3), shvVersionMinor (fixed 0), plus ls/dir.
func NewAppNode(info AppInfo) *tree.Node {
	entries := []tree.MethodDescriptor{
		{Name: "name", ResultSchema: "String", Handler: constStringHandler(info.Name)},
		{Name: "version", ResultSchema: "String", Handler: constStringHandler(info.Version)},
		{Name: "ping", Handler: pingHandler},
		{Name: "date", ResultSchema: "DateTime", Handler: dateHandler(info.DateHook)},
		{Name: "shvVersionMajor", ResultSchema: "Int", Handler: constIntHandler(3)},
		{Name: "shvVersionMinor", ResultSchema: "Int", Handler: constIntHandler(0)},
	}
	table := tree.NewMethodTable(append(tree.BaseMethods(), entries...)...)
	return tree.NewNode(".app", table, nil)
}

func constStringHandler(s string) tree.Handler {
	return func(hc *tree.HandlerContext) error {
		if !rpc.DrainPayload(hc.Unpacker) {
			return hc.Unpacker.Err()
		}
		return rpc.SendResult(hc.Writer, hc.RequestID, hc.CallerIDs, func(c *chainpack.PackContext) {
			chainpack.PackString(c, s)
		})
	}
}

func constIntHandler(v int64) tree.Handler {
	return func(hc *tree.HandlerContext) error {
		if !rpc.DrainPayload(hc.Unpacker) {
			return hc.Unpacker.Err()
		}
		return rpc.SendResult(hc.Writer, hc.RequestID, hc.CallerIDs, func(c *chainpack.PackContext) {
			chainpack.PackInt(c, v)
		})
	}
}

func pingHandler(hc *tree.HandlerContext) error {
	if !rpc.DrainPayload(hc.Unpacker) {
		return hc.Unpacker.Err()
	}
	return rpc.SendResult(hc.Writer, hc.RequestID, hc.CallerIDs, nil)
}

func dateHandler(hook func() time.Time) tree.Handler {
	return func(hc *tree.HandlerContext) error {
		if !rpc.DrainPayload(hc.Unpacker) {
			return hc.Unpacker.Err()
		}
		if hook == nil {
			return rpc.SendError(hc.Writer, hc.RequestID, hc.CallerIDs, &rpc.WireError{Code: rpc.NotImplementedError})
		}
		dt := toDateTime(hook())
		return rpc.SendResult(hc.Writer, hc.RequestID, hc.CallerIDs, func(c *chainpack.PackContext) {
			chainpack.PackDateTime(c, dt)
		})
	}
}

// toDateTime converts a local time.Time to the wire DateTime shape: epoch
// milliseconds plus the zone offset expressed in quarter hours, the
// resolution the chainpack encoding carries.
func toDateTime(t time.Time) chainpack.DateTime {
	_, offsetSec := t.Zone()
	return chainpack.DateTime{
		EpochMs:     t.UnixMilli(),
		OffsetQuart: int8(offsetSec / (15 * 60)),
	}
}
