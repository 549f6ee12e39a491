package file

import (
	"github.com/silicon-heaven/shvdevice-go/pkg/chainpack"
	"github.com/silicon-heaven/shvdevice-go/pkg/rpc"
	"github.com/silicon-heaven/shvdevice-go/pkg/tree"
)

// writeHandler runs the write request's parse as a straight-line sequence
// rather than the explicit state enum the original C implementation needs:
// our Unpacker.Next()/NextChunk() already block on the transport for more
// input, so there is no non-blocking resume point to track across calls -
// a goroutine IS the resumable state machine here. Each step below
// corresponds to one transition of the IMAP_START -> REQUEST_1 ->
// LIST_START -> OFFSET -> BLOB -> LIST_STOP -> IMAP_STOP machine the
// original describes; a mismatch at any step discards the offending item,
// drains every container still open around it down to its ContainerEnd, and
// replies InvalidParams("Garbled data") - the one shared Unpacker serves
// every request for the life of the connection, so leaving any container
// half-consumed would desync every request that follows.
func (n *node) writeHandler(hc *tree.HandlerContext) error {
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

	blobItem, ok := u.Next()
	if !ok {
		return u.Err()
	}
	if blobItem.Kind != chainpack.KindBlob {
		if !chainpack.Discard(u, blobItem) {
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

	var platformErr error
	cur := blobItem
	pos := offset
	var written uint64
	for {
		if len(cur.Bytes) > 0 {
			wrote, err := n.ops.WriteAt(pos, cur.Bytes)
			if err != nil && platformErr == nil {
				platformErr = err
			}
			written += uint64(wrote)
			pos += int64(len(cur.Bytes))
		}
		if cur.LastChunk {
			break
		}
		cur, ok = u.NextChunk()
		if !ok {
			return u.Err()
		}
	}

	// LIST_STOP
	end, ok := u.Next()
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
	// IMAP_STOP
	end, ok = u.Next()
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

	n.recordBytes("write", written)
	if platformErr != nil {
		return rpc.SendError(w, hc.RequestID, hc.CallerIDs, ioError())
	}
	return rpc.SendResult(w, hc.RequestID, hc.CallerIDs, func(c *chainpack.PackContext) {
		chainpack.PackIMapBegin(c)
		chainpack.PackContainerEnd(c)
	})
}

// findKey1 scans an already-opened IMap's key/value pairs, discarding any
// key other than 1, and returns as soon as it finds key 1's value - the
// unpacker is left positioned right after that value's opening item, with
// the IMap's own ContainerEnd still pending for the caller to consume once
// it is done reading the value. found is false if the IMap closed without
// ever containing key 1 (a valid "no params" case for CRC, a malformed one
// for write).
func findKey1(u *chainpack.Unpacker) (value chainpack.Item, found, ok bool) {
	for {
		keyItem, got := u.Next()
		if !got {
			return chainpack.Item{}, false, false
		}
		if keyItem.Kind == chainpack.KindContainerEnd {
			return chainpack.Item{}, false, true
		}
		key, isInt := asFileInt(keyItem)
		valItem, got := u.Next()
		if !got {
			return chainpack.Item{}, false, false
		}
		if isInt && key == 1 {
			return valItem, true, true
		}
		if !chainpack.Discard(u, valItem) {
			return chainpack.Item{}, false, false
		}
	}
}
