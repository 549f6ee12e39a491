package tree

import (
	"sync"

	"github.com/silicon-heaven/shvdevice-go/pkg/chainpack"
	"github.com/silicon-heaven/shvdevice-go/pkg/rpc"
)

// typedValue is the scalar a TypedValueNode wraps. A mutex guards it even
// though the worker loop dispatches one request at a time, since nothing
// stops an application from reading Value from another goroutine (the
// platform hooks this library hands off to, for instance).
type typedValue struct {
	mu sync.RWMutex
	v  float64
}

func (tv *typedValue) Value() float64 {
	tv.mu.RLock()
	defer tv.mu.RUnlock()
	return tv.v
}

func (tv *typedValue) SetValue(v float64) {
	tv.mu.Lock()
	tv.v = v
	tv.mu.Unlock()
}

// NewTypedValueNode builds a node exposing a single Double-valued scalar
// through get/set, plus a typeName method reporting the caller-supplied
// type label (e.g. "Double", "Bool", a custom enum name).
func NewTypedValueNode(name string, initial float64, typeName string, children *ChildSet) *Node {
	tv := &typedValue{v: initial}
	entries := []MethodDescriptor{
		{Name: "get", Flags: FlagGetter, ResultSchema: "Double", Access: AccessRead, Handler: tv.getHandler},
		{Name: "set", Flags: FlagSetter, ParamSchema: "Double", ResultSchema: "Double", Access: AccessWrite, Handler: tv.setHandler},
		{Name: "typeName", ResultSchema: "String", Handler: typeNameHandler(typeName)},
	}
	methods := NewMethodTable(append(BaseMethods(), entries...)...)
	return NewNode(name, methods, children)
}

func (tv *typedValue) getHandler(hc *HandlerContext) error {
	if !rpc.DrainPayload(hc.Unpacker) {
		return hc.Unpacker.Err()
	}
	v := tv.Value()
	return rpc.SendResult(hc.Writer, hc.RequestID, hc.CallerIDs, func(c *chainpack.PackContext) {
		chainpack.PackDouble(c, v)
	})
}

// setHandler accepts Int/UInt/Decimal/Double (via UnpackData's numeric
// promotion), stores the value, and echoes it back.
func (tv *typedValue) setHandler(hc *HandlerContext) error {
	v, _, err := UnpackData(hc.Unpacker)
	if err != nil {
		return err
	}
	tv.SetValue(v)
	return rpc.SendResult(hc.Writer, hc.RequestID, hc.CallerIDs, func(c *chainpack.PackContext) {
		chainpack.PackDouble(c, v)
	})
}

func typeNameHandler(typeName string) Handler {
	return func(hc *HandlerContext) error {
		if !rpc.DrainPayload(hc.Unpacker) {
			return hc.Unpacker.Err()
		}
		return rpc.SendResult(hc.Writer, hc.RequestID, hc.CallerIDs, func(c *chainpack.PackContext) {
			chainpack.PackString(c, typeName)
		})
	}
}
