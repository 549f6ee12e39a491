package tree

import (
	"fmt"
	"io"

	"github.com/silicon-heaven/shvdevice-go/pkg/chainpack"
	"github.com/silicon-heaven/shvdevice-go/pkg/rpc"
)

// HandlerContext carries everything a method handler needs: the resolved
// node, the request's identity, and the raw unpacker/writer pair to consume
// params from and emit a reply to.
type HandlerContext struct {
	Node      *Node
	RequestID int64
	ShvPath   string
	CallerIDs []int64
	Unpacker  *chainpack.Unpacker
	Writer    io.Writer
}

// Dispatch resolves meta.ShvPath and meta.Method against root and invokes
// the matching handler, or replies MethodCallException and drains the
// unread payload if either lookup misses. u must be positioned at the
// payload IMap's opening schema byte (as rpc.ReadMessage leaves it).
func Dispatch(root *Node, meta rpc.Meta, u *chainpack.Unpacker, w io.Writer) error {
	node := Find(root, meta.ShvPath)
	if node == nil {
		if !rpc.DrainPayload(u) {
			return u.Err()
		}
		return rpc.SendError(w, meta.RequestID, meta.CallerIDs, &rpc.WireError{
			Code:    rpc.MethodCallException,
			Message: fmt.Sprintf("Node '%s' does not exist.", meta.ShvPath),
		})
	}

	entry := node.Methods.Lookup(meta.Method)
	if entry == nil {
		if !rpc.DrainPayload(u) {
			return u.Err()
		}
		return rpc.SendError(w, meta.RequestID, meta.CallerIDs, &rpc.WireError{
			Code:    rpc.MethodCallException,
			Message: fmt.Sprintf("Method '%s' does not exist.", meta.Method),
		})
	}

	hc := &HandlerContext{
		Node:      node,
		RequestID: meta.RequestID,
		ShvPath:   meta.ShvPath,
		CallerIDs: meta.CallerIDs,
		Unpacker:  u,
		Writer:    w,
	}
	return entry.Handler(hc)
}
