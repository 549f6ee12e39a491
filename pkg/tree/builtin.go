package tree

import (
	"github.com/silicon-heaven/shvdevice-go/pkg/chainpack"
	"github.com/silicon-heaven/shvdevice-go/pkg/rpc"
)

// BaseMethods returns the ls/dir pair every node carries. Node factories
// prepend these to their own entries before calling NewMethodTable.
func BaseMethods() []MethodDescriptor {
	return []MethodDescriptor{
		{Name: "ls", ResultSchema: "List[String]", Handler: lsHandler},
		{Name: "dir", ResultSchema: "List[IMap]", Handler: dirHandler},
	}
}

func lsHandler(hc *HandlerContext) error {
	if !rpc.DrainPayload(hc.Unpacker) {
		return hc.Unpacker.Err()
	}
	return rpc.SendResult(hc.Writer, hc.RequestID, hc.CallerIDs, func(c *chainpack.PackContext) {
		chainpack.PackListBegin(c)
		for _, name := range hc.Node.Children.Names() {
			chainpack.PackString(c, name)
		}
		chainpack.PackContainerEnd(c)
	})
}

func dirHandler(hc *HandlerContext) error {
	if !rpc.DrainPayload(hc.Unpacker) {
		return hc.Unpacker.Err()
	}
	return rpc.SendResult(hc.Writer, hc.RequestID, hc.CallerIDs, func(c *chainpack.PackContext) {
		chainpack.PackListBegin(c)
		for _, m := range hc.Node.Methods {
			chainpack.PackIMapBegin(c)
			chainpack.PackUInt(c, 1)
			chainpack.PackString(c, m.Name)
			if m.Flags != 0 {
				chainpack.PackUInt(c, 2)
				chainpack.PackUInt(c, uint64(m.Flags))
			}
			if m.ParamSchema != "" {
				chainpack.PackUInt(c, 3)
				chainpack.PackString(c, m.ParamSchema)
			}
			if m.ResultSchema != "" {
				chainpack.PackUInt(c, 4)
				chainpack.PackString(c, m.ResultSchema)
			}
			if m.Access != AccessBrowse {
				chainpack.PackUInt(c, 5)
				chainpack.PackString(c, m.Access.String())
			}
			chainpack.PackContainerEnd(c)
		}
		chainpack.PackContainerEnd(c)
	})
}
