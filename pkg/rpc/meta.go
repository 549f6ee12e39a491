package rpc

import (
	"github.com/silicon-heaven/shvdevice-go/pkg/chainpack"
)

// Meta key constants from the wire format. Key 1 (metaTypeID) is a fixed
// marker written on every message and otherwise ignored by this package;
// everything not in this list is accepted and skipped.
const (
	metaTypeID   = 1
	metaRequest  = 8
	metaShvPath  = 9
	metaMethod   = 10
	metaCallerID = 11
)

const (
	maxShvPathLen = 256
	maxMethodLen  = 64
)

// Meta is the parsed header of an RPC message.
type Meta struct {
	RequestID int64
	ShvPath   string
	Method    string
	CallerIDs []int64
}

// ParseMeta reads the UInt(protocol) prefix and the MetaMap that follows it,
// leaving the unpacker positioned at the start of the payload IMap. A
// ShvPath or Method overflowing its bounded buffer does not abort the
// parse: the rest of the MetaMap is still drained normally and the
// returned *WireError (MethodCallException) lets the caller reply and keep
// the connection alive instead of tearing it down. Any other malformed
// input makes ParseMeta return ok=false; u.Err() is non-nil only when the
// codec itself failed, not for a well-formed item of the wrong kind.
func ParseMeta(u *chainpack.Unpacker) (Meta, bool, *WireError) {
	protoItem, ok := u.Next()
	if !ok {
		return Meta{}, false, nil
	}
	if protoItem.Kind != chainpack.KindUInt || protoItem.UInt != 1 {
		return Meta{}, false, nil
	}

	metaItem, ok := u.Next()
	if !ok {
		return Meta{}, false, nil
	}
	if metaItem.Kind != chainpack.KindMetaMap {
		return Meta{}, false, nil
	}

	var m Meta
	var overflow *WireError
	for {
		keyItem, ok := u.Next()
		if !ok {
			return Meta{}, false, nil
		}
		if keyItem.Kind == chainpack.KindContainerEnd {
			return m, true, overflow
		}

		key, ok := asInt(keyItem)
		if !ok {
			// Malformed: a non-integer meta key. Drain it and its value.
			if !chainpack.Skip(u) {
				return Meta{}, false, nil
			}
			continue
		}

		valItem, ok := u.Next()
		if !ok {
			return Meta{}, false, nil
		}

		switch key {
		case metaRequest:
			v, ok := asInt(valItem)
			if !ok {
				return Meta{}, false, nil
			}
			m.RequestID = v
		case metaShvPath:
			s, ok := readString(u, valItem)
			if !ok {
				return Meta{}, false, nil
			}
			if len(s) > maxShvPathLen {
				overflow = &WireError{
					Code:    MethodCallException,
					Message: "ShvPath exceeds the maximum allowed length.",
				}
				continue
			}
			m.ShvPath = s
		case metaMethod:
			s, ok := readString(u, valItem)
			if !ok {
				return Meta{}, false, nil
			}
			if len(s) > maxMethodLen {
				overflow = &WireError{
					Code:    MethodCallException,
					Message: "Method exceeds the maximum allowed length.",
				}
				continue
			}
			m.Method = s
		case metaCallerID:
			ids, ok := readCallerIDs(u, valItem)
			if !ok {
				return Meta{}, false, nil
			}
			m.CallerIDs = ids
		case metaTypeID:
			// Constant marker; value already consumed, nothing to record.
		default:
			if !chainpack.Discard(u, valItem) {
				return Meta{}, false, nil
			}
		}
	}
}

func asInt(item chainpack.Item) (int64, bool) {
	switch item.Kind {
	case chainpack.KindInt:
		return item.Int, true
	case chainpack.KindUInt:
		return int64(item.UInt), true
	default:
		return 0, false
	}
}

// readString consumes a complete String/CString item (including any
// remaining streamed chunks) and returns its bytes as a string.
func readString(u *chainpack.Unpacker, first chainpack.Item) (string, bool) {
	switch first.Kind {
	case chainpack.KindCString:
		return string(first.Bytes), true
	case chainpack.KindString:
		out := append([]byte(nil), first.Bytes...)
		cur := first
		for !cur.LastChunk {
			var ok bool
			cur, ok = u.NextChunk()
			if !ok {
				return "", false
			}
			out = append(out, cur.Bytes...)
		}
		return string(out), true
	default:
		return "", false
	}
}

// readCallerIDs accepts either a single integer or a List of integers.
func readCallerIDs(u *chainpack.Unpacker, first chainpack.Item) ([]int64, bool) {
	if v, ok := asInt(first); ok {
		return []int64{v}, true
	}
	if first.Kind != chainpack.KindList {
		return nil, false
	}
	var ids []int64
	for {
		item, ok := u.Next()
		if !ok {
			return nil, false
		}
		if item.Kind == chainpack.KindContainerEnd {
			return ids, true
		}
		v, ok := asInt(item)
		if !ok {
			return nil, false
		}
		ids = append(ids, v)
	}
}
