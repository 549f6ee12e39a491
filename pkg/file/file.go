package file

import (
	"github.com/silicon-heaven/shvdevice-go/pkg/chainpack"
	"github.com/silicon-heaven/shvdevice-go/pkg/metrics"
	"github.com/silicon-heaven/shvdevice-go/pkg/rpc"
	"github.com/silicon-heaven/shvdevice-go/pkg/tree"
)

// stat's inner IMap keys, in the fixed order the original file-node
// implementation assigns them (FN_TYPE=0, FN_SIZE=1, FN_PAGESIZE=2,
// FN_MAXWRITE=3).
const (
	fnType = iota
	fnSize
	fnPageSize
	fnMaxWrite
)

const fileTypeRegular = 1

// node holds one file node's configuration and platform hooks.
type node struct {
	ops      Ops
	maxSize  int64
	pageSize int64
	metrics  metrics.DeviceMetrics
}

// Option configures an optional aspect of a file node.
type Option func(*node)

// WithMetrics makes the node report bytes moved through write/read to m.
// Passing a nil m (or omitting the option) leaves metrics collection off.
func WithMetrics(m metrics.DeviceMetrics) Option {
	return func(n *node) { n.metrics = m }
}

// New builds a file node exposing write/read/stat/size/crc plus the usual
// ls/dir pair. maxSize and pageSize are fixed for the node's lifetime;
// pageSize must be positive (stat's FN_MAXWRITE is derived from it).
func New(name string, ops Ops, maxSize, pageSize int64, opts ...Option) *tree.Node {
	n := &node{ops: ops, maxSize: maxSize, pageSize: pageSize}
	for _, opt := range opts {
		opt(n)
	}
	entries := []tree.MethodDescriptor{
		{Name: "write", ParamSchema: "[Int, Blob]", Access: tree.AccessWrite, Handler: n.writeHandler},
		{Name: "read", ParamSchema: "[Int, Int]", ResultSchema: "Blob", Access: tree.AccessRead, Handler: n.readHandler},
		{Name: "stat", ResultSchema: "IMap", Access: tree.AccessRead, Handler: n.statHandler},
		{Name: "size", ResultSchema: "UInt", Access: tree.AccessRead, Handler: n.sizeHandler},
		{Name: "crc", ParamSchema: "[Int, Int]", ResultSchema: "UInt", Access: tree.AccessRead, Handler: n.crcHandler},
	}
	table := tree.NewMethodTable(append(tree.BaseMethods(), entries...)...)
	return tree.NewNode(name, table, nil)
}

func (n *node) statHandler(hc *tree.HandlerContext) error {
	if !rpc.DrainPayload(hc.Unpacker) {
		return hc.Unpacker.Err()
	}
	return rpc.SendResult(hc.Writer, hc.RequestID, hc.CallerIDs, func(c *chainpack.PackContext) {
		chainpack.PackIMapBegin(c)
		chainpack.PackInt(c, fnType)
		chainpack.PackInt(c, fileTypeRegular)
		chainpack.PackInt(c, fnSize)
		chainpack.PackInt(c, n.maxSize)
		chainpack.PackInt(c, fnPageSize)
		chainpack.PackInt(c, n.pageSize)
		chainpack.PackInt(c, fnMaxWrite)
		chainpack.PackInt(c, 4*n.pageSize)
		chainpack.PackContainerEnd(c)
	})
}

func (n *node) sizeHandler(hc *tree.HandlerContext) error {
	if !rpc.DrainPayload(hc.Unpacker) {
		return hc.Unpacker.Err()
	}
	return rpc.SendResult(hc.Writer, hc.RequestID, hc.CallerIDs, func(c *chainpack.PackContext) {
		chainpack.PackUInt(c, uint64(n.maxSize))
	})
}

// recordBytes reports operation ("read" or "write") moving n bytes, if the
// node has metrics collection enabled.
func (n *node) recordBytes(operation string, count uint64) {
	if n.metrics != nil {
		n.metrics.RecordFileBytes(operation, count)
	}
}

func garbled() *rpc.WireError {
	return &rpc.WireError{Code: rpc.InvalidParams, Message: "Garbled data"}
}

func ioError() *rpc.WireError {
	return &rpc.WireError{Code: rpc.PlatformError, Message: "I/O Error"}
}

func asFileInt(item chainpack.Item) (int64, bool) {
	switch item.Kind {
	case chainpack.KindInt:
		return item.Int, true
	case chainpack.KindUInt:
		return int64(item.UInt), true
	default:
		return 0, false
	}
}
