package rpc

import "github.com/silicon-heaven/shvdevice-go/pkg/chainpack"

// ReadMessage reads the UInt(length) frame prefix and the meta header that
// follows, leaving the unpacker positioned at the payload IMap's opening
// schema byte. The length itself is not tracked against subsequent reads:
// the codec is self-delimiting, so a well-formed sender's payload always
// ends exactly where it said it would. A non-nil *WireError means meta
// parsed fine except for an oversized ShvPath/Method: the unpacker is still
// correctly positioned at the payload, and the caller should drain it and
// send the error reply rather than tearing the connection down.
func ReadMessage(u *chainpack.Unpacker) (Meta, bool, *WireError) {
	lenItem, ok := u.Next()
	if !ok {
		return Meta{}, false, nil
	}
	if lenItem.Kind != chainpack.KindUInt {
		return Meta{}, false, nil
	}
	return ParseMeta(u)
}

// DrainPayload consumes the payload IMap without interpreting it, used when
// a request is rejected before reaching a handler (unknown node, unknown
// method) so the stream stays correctly framed for the next message.
func DrainPayload(u *chainpack.Unpacker) bool {
	item, ok := u.Next()
	if !ok {
		return false
	}
	return chainpack.Discard(u, item)
}
