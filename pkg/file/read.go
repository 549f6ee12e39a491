package file

import (
	"github.com/silicon-heaven/shvdevice-go/internal/bufpool"
	"github.com/silicon-heaven/shvdevice-go/pkg/chainpack"
	"github.com/silicon-heaven/shvdevice-go/pkg/rpc"
	"github.com/silicon-heaven/shvdevice-go/pkg/tree"
)

// readChunkSize bounds each ReadAt call; it matches bufpool.Size so the
// scratch buffer below comes straight out of the shared pool instead of
// being allocated fresh on every read request.
const readChunkSize = bufpool.Size

// readHandler parses a mandatory [offset, size] pair (unlike crcHandler,
// read has no defaulting case - both values are required) and streams the
// result back as a single Blob. The reply is still built in memory because
// pkg/rpc's length-prefixed framing needs the whole value's size known
// before the real emit pass runs; readChunkSize only bounds each
// individual backing-store call.
func (n *node) readHandler(hc *tree.HandlerContext) error {
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
	if !found || listItem.Kind != chainpack.KindList {
		if found && !chainpack.Discard(u, listItem) {
			return u.Err()
		}
		// finish off the outer IMap; when key 1 is absent findKey1 has
		// already consumed its ContainerEnd
		if found && !chainpack.DrainContainer(u) {
			return u.Err()
		}
		return rpc.SendError(w, hc.RequestID, hc.CallerIDs, garbled())
	}

	offItem, ok := u.Next()
	if !ok {
		return u.Err()
	}
	offset, isInt := asFileInt(offItem)
	if !isInt {
		if !chainpack.Discard(u, offItem) {
			return u.Err()
		}
		if !chainpack.DrainContainer(u) { // finish off the inner List
			return u.Err()
		}
		if !chainpack.DrainContainer(u) { // finish off the outer IMap
			return u.Err()
		}
		return rpc.SendError(w, hc.RequestID, hc.CallerIDs, garbled())
	}

	sizeItem, ok := u.Next()
	if !ok {
		return u.Err()
	}
	size, isInt := asFileInt(sizeItem)
	if !isInt {
		if !chainpack.Discard(u, sizeItem) {
			return u.Err()
		}
		if !chainpack.DrainContainer(u) { // finish off the inner List
			return u.Err()
		}
		if !chainpack.DrainContainer(u) { // finish off the outer IMap
			return u.Err()
		}
		return rpc.SendError(w, hc.RequestID, hc.CallerIDs, garbled())
	}

	end, ok := u.Next() // LIST_STOP
	if !ok {
		return u.Err()
	}
	if end.Kind != chainpack.KindContainerEnd {
		if !chainpack.Discard(u, end) {
			return u.Err()
		}
		if !chainpack.DrainContainer(u) { // finish off the inner List
			return u.Err()
		}
		if !chainpack.DrainContainer(u) { // finish off the outer IMap
			return u.Err()
		}
		return rpc.SendError(w, hc.RequestID, hc.CallerIDs, garbled())
	}
	end, ok = u.Next() // IMAP_STOP
	if !ok {
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

	if size < 0 {
		return rpc.SendError(w, hc.RequestID, hc.CallerIDs, garbled())
	}

	buf := bufpool.Get()
	defer bufpool.Put(buf)
	data := make([]byte, 0, size)
	pos := offset
	remaining := size
	var platformErr error
	for remaining > 0 {
		want := int64(len(buf))
		if want > remaining {
			want = remaining
		}
		got, err := n.ops.ReadAt(pos, buf[:want])
		if err != nil {
			platformErr = err
			break
		}
		if got == 0 {
			break
		}
		data = append(data, buf[:got]...)
		pos += int64(got)
		remaining -= int64(got)
	}

	n.recordBytes("read", uint64(len(data)))
	if platformErr != nil {
		return rpc.SendError(w, hc.RequestID, hc.CallerIDs, ioError())
	}
	return rpc.SendResult(w, hc.RequestID, hc.CallerIDs, func(c *chainpack.PackContext) {
		chainpack.PackBlob(c, data)
	})
}
