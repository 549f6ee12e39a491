package methods

import (
	"time"

	"github.com/silicon-heaven/shvdevice-go/pkg/chainpack"
	"github.com/silicon-heaven/shvdevice-go/pkg/rpc"
	"github.com/silicon-heaven/shvdevice-go/pkg/tree"
)

// DeviceInfo supplies the facts and platform hooks the .device node
// reports through. UptimeHook, ResetHook, and Shutdown are optional; an
// absent UptimeHook or ResetHook makes that method reply NotImplemented.
type DeviceInfo struct {
	Name         string
	Version      string
	SerialNumber string
	UptimeHook   func() time.Duration
	ResetHook    func()
	// Shutdown, if set, is invoked right after reset's acknowledgement is
	// written and before the 2-second drain sleep - it should signal the
	// owning connection to stop without blocking on the actual teardown.
	Shutdown func()
}

// NewDeviceNode builds the .device node: name, version, serialNumber,
// uptime, reset, plus ls/dir.
func NewDeviceNode(info DeviceInfo) *tree.Node {
	entries := []tree.MethodDescriptor{
		{Name: "name", ResultSchema: "String", Handler: constStringHandler(info.Name)},
		{Name: "version", ResultSchema: "String", Handler: constStringHandler(info.Version)},
		{Name: "serialNumber", ResultSchema: "String", Handler: constStringHandler(info.SerialNumber)},
		{Name: "uptime", ResultSchema: "Int", Access: tree.AccessRead, Handler: uptimeHandler(info.UptimeHook)},
		{Name: "reset", Access: tree.AccessCommand, Handler: resetHandler(info)},
	}
	table := tree.NewMethodTable(append(tree.BaseMethods(), entries...)...)
	return tree.NewNode(".device", table, nil)
}

func uptimeHandler(hook func() time.Duration) tree.Handler {
	return func(hc *tree.HandlerContext) error {
		if !rpc.DrainPayload(hc.Unpacker) {
			return hc.Unpacker.Err()
		}
		if hook == nil {
			return rpc.SendError(hc.Writer, hc.RequestID, hc.CallerIDs, &rpc.WireError{Code: rpc.NotImplementedError})
		}
		seconds := int64(hook().Seconds())
		return rpc.SendResult(hc.Writer, hc.RequestID, hc.CallerIDs, func(c *chainpack.PackContext) {
			chainpack.PackInt(c, seconds)
		})
	}
}

// resetHandler acknowledges with 0, signals the owning connection to
// shut down, sleeps long enough for that reply to reach the broker, and
// only then runs the platform reset hook - a device that reset before the
// acknowledgement left the wire would leave the caller waiting forever.
func resetHandler(info DeviceInfo) tree.Handler {
	return func(hc *tree.HandlerContext) error {
		if !rpc.DrainPayload(hc.Unpacker) {
			return hc.Unpacker.Err()
		}
		if info.ResetHook == nil {
			return rpc.SendError(hc.Writer, hc.RequestID, hc.CallerIDs, &rpc.WireError{Code: rpc.NotImplementedError})
		}
		if err := rpc.SendResult(hc.Writer, hc.RequestID, hc.CallerIDs, func(c *chainpack.PackContext) {
			chainpack.PackInt(c, 0)
		}); err != nil {
			return err
		}
		if info.Shutdown != nil {
			info.Shutdown()
		}
		time.Sleep(2 * time.Second)
		info.ResetHook()
		return nil
	}
}
