package rpc

import (
	"io"

	"github.com/silicon-heaven/shvdevice-go/pkg/chainpack"
)

// PackBufferSize is the pack/unpack buffer size the design constants call
// for: 1 KiB per direction.
const PackBufferSize = 1024

// sendFramed runs build twice against fresh PackContexts: once with an
// Overflow that only counts bytes (to learn the frame's length without
// buffering it), then again with an Overflow that writes straight to w,
// this time preceded by the UInt(length) prefix. build must be a pure
// function of its *PackContext argument so the two passes produce
// identical bytes.
func sendFramed(w io.Writer, build func(c *chainpack.PackContext)) error {
	counted := 0
	discard := chainpack.NewPackContext(PackBufferSize, func(chunk []byte) error {
		counted += len(chunk)
		return nil
	})
	build(discard)
	if err := discard.Finalize(); err != nil {
		return err
	}

	writeOut := func(chunk []byte) error {
		_, err := w.Write(chunk)
		return err
	}
	emit := chainpack.NewPackContext(PackBufferSize, writeOut)
	chainpack.PackUInt(emit, uint64(counted))
	build(emit)
	return emit.Finalize()
}

func packMetaCommon(c *chainpack.PackContext, rid int64) {
	chainpack.PackMetaBegin(c)
	chainpack.PackUInt(c, metaTypeID)
	chainpack.PackUInt(c, 1)
	chainpack.PackUInt(c, metaRequest)
	chainpack.PackInt(c, rid)
}

// SendRequest emits a request frame (hello/login/ping/...): protocol
// prefix, meta with RequestId/Method/optional ShvPath, then the payload
// IMap writePayload builds.
func SendRequest(w io.Writer, rid int64, shvPath, method string, writePayload func(c *chainpack.PackContext)) error {
	return sendFramed(w, func(c *chainpack.PackContext) {
		chainpack.PackUInt(c, 1) // protocol
		packMetaCommon(c, rid)
		if shvPath != "" {
			chainpack.PackUInt(c, metaShvPath)
			chainpack.PackString(c, shvPath)
		}
		chainpack.PackUInt(c, metaMethod)
		chainpack.PackString(c, method)
		chainpack.PackContainerEnd(c) // MetaMap

		chainpack.PackIMapBegin(c)
		if writePayload != nil {
			writePayload(c)
		}
		chainpack.PackContainerEnd(c) // payload IMap
	})
}

// SendReply emits a reply frame mirroring callerIDs verbatim, with the
// payload IMap writePayload builds (normally a single key: 2=result or
// 3=error).
func SendReply(w io.Writer, rid int64, callerIDs []int64, writePayload func(c *chainpack.PackContext)) error {
	return sendFramed(w, func(c *chainpack.PackContext) {
		chainpack.PackUInt(c, 1) // protocol
		packMetaCommon(c, rid)
		if len(callerIDs) > 0 {
			chainpack.PackUInt(c, metaCallerID)
			if len(callerIDs) == 1 {
				chainpack.PackInt(c, callerIDs[0])
			} else {
				chainpack.PackListBegin(c)
				for _, id := range callerIDs {
					chainpack.PackInt(c, id)
				}
				chainpack.PackContainerEnd(c)
			}
		}
		chainpack.PackContainerEnd(c) // MetaMap

		chainpack.PackIMapBegin(c)
		if writePayload != nil {
			writePayload(c)
		}
		chainpack.PackContainerEnd(c) // payload IMap
	})
}

// SendResult emits a successful reply carrying writeResult under payload
// key 2. A nil writeResult emits an empty result value (Null).
func SendResult(w io.Writer, rid int64, callerIDs []int64, writeResult func(c *chainpack.PackContext)) error {
	return SendReply(w, rid, callerIDs, func(c *chainpack.PackContext) {
		chainpack.PackUInt(c, 2)
		if writeResult != nil {
			writeResult(c)
		} else {
			chainpack.PackNull(c)
		}
	})
}

// SendError emits a reply whose payload carries the given error under key 3.
func SendError(w io.Writer, rid int64, callerIDs []int64, werr *WireError) error {
	return SendReply(w, rid, callerIDs, func(c *chainpack.PackContext) {
		chainpack.PackUInt(c, 3)
		chainpack.PackIMapBegin(c)
		chainpack.PackUInt(c, 1)
		chainpack.PackInt(c, int64(werr.Code))
		if werr.Message != "" {
			chainpack.PackUInt(c, 2)
			chainpack.PackString(c, werr.Message)
		}
		chainpack.PackContainerEnd(c)
	})
}
