package file

import (
	"github.com/silicon-heaven/shvdevice-go/pkg/chainpack"
	"github.com/silicon-heaven/shvdevice-go/pkg/rpc"
	"github.com/silicon-heaven/shvdevice-go/pkg/tree"
)

// crcHandler mirrors writeHandler's parse shape but the params list carries
// zero, one, or two ints (offset, size), each optional, selecting the CRC
// range: no args covers the whole file, one arg covers from offset to the
// end, two args cover the window [offset, offset+size).
func (n *node) crcHandler(hc *tree.HandlerContext) error {
	u := hc.Unpacker
	w := hc.Writer

	imapItem, ok := u.Next()
	if !ok {
		return u.Err()
	}
	if imapItem.Kind != chainpack.KindIMap {
		chainpack.Discard(u, imapItem)
		return rpc.SendError(w, hc.RequestID, hc.CallerIDs, garbled())
	}

	listItem, found, ok := findKey1(u)
	if !ok {
		return u.Err()
	}

	var vals []int64
	if found {
		if listItem.Kind != chainpack.KindList {
			if !chainpack.Discard(u, listItem) {
				return u.Err()
			}
			if !chainpack.DrainContainer(u) { // finish off the outer IMap
				return u.Err()
			}
			return rpc.SendError(w, hc.RequestID, hc.CallerIDs, garbled())
		}
		for {
			item, got := u.Next()
			if !got {
				return u.Err()
			}
			if item.Kind == chainpack.KindContainerEnd {
				break
			}
			if v, isInt := asFileInt(item); isInt && len(vals) < 2 {
				vals = append(vals, v)
				continue
			}
			if !chainpack.Discard(u, item) {
				return u.Err()
			}
		}
		// IMAP_STOP
		end, got := u.Next()
		if !got {
			return u.Err()
		}
		if end.Kind != chainpack.KindContainerEnd {
			if !chainpack.Discard(u, end) {
				return u.Err()
			}
			if !chainpack.DrainContainer(u) { // finish off the outer IMap
				return u.Err()
			}
			return rpc.SendError(w, hc.RequestID, hc.CallerIDs, garbled())
		}
	}

	var start, size int64
	switch len(vals) {
	case 0:
		start, size = 0, n.maxSize
	case 1:
		start = vals[0]
		size = n.maxSize - start
	default:
		start, size = vals[0], vals[1]
	}

	crc, err := n.ops.CRC32(start, size)
	if err != nil {
		return rpc.SendError(w, hc.RequestID, hc.CallerIDs, ioError())
	}
	return rpc.SendResult(w, hc.RequestID, hc.CallerIDs, func(c *chainpack.PackContext) {
		chainpack.PackUInt(c, uint64(crc))
	})
}
