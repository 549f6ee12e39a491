package chainpack

import (
	"encoding/binary"
	"math"
)

// Unpacker is a pull-style producer of Items over an UnpackContext: each
// call to Next either returns the next item or reports the context's
// sticky error. Blob/String values may arrive as several chunks; Next
// returns the first chunk and the caller must keep calling NextChunk until
// LastChunk is set before calling Next again for the following item.
type Unpacker struct {
	ctx *UnpackContext

	streaming   bool
	streamKind  Kind
	remaining   int
	totalLen    int
	chunkOffset int
}

// NewUnpacker wraps an UnpackContext in item-level decoding.
func NewUnpacker(ctx *UnpackContext) *Unpacker {
	return &Unpacker{ctx: ctx}
}

// Err returns the underlying context's sticky error, if any.
func (u *Unpacker) Err() error { return u.ctx.Err() }

// Next decodes the next item. Returns ok=false once the context is broken
// or exhausted (check u.Err() to distinguish clean EOF from malformed
// input); the zero Item is returned in that case.
func (u *Unpacker) Next() (Item, bool) {
	if u.streaming {
		// Caller must drain the in-progress Blob/String via NextChunk.
		u.ctx.setErr(LogicalError, "Next called mid-stream; call NextChunk")
		return Item{}, false
	}

	head, ok := u.ctx.readByte()
	if !ok {
		return Item{}, false
	}

	if head < 128 {
		if head&0x40 != 0 {
			return Item{Kind: KindInt, Int: int64(head & 0x3f)}, true
		}
		return Item{Kind: KindUInt, UInt: uint64(head & 0x3f)}, true
	}

	switch head {
	case schemaNull:
		return Item{Kind: KindNull}, true
	case schemaTrue:
		return Item{Kind: KindBool, Bool: true}, true
	case schemaFalse:
		return Item{Kind: KindBool, Bool: false}, true
	case schemaUInt:
		v, _ := unpackUIntData(u.ctx)
		if u.ctx.err != nil {
			return Item{}, false
		}
		return Item{Kind: KindUInt, UInt: v}, true
	case schemaInt:
		v := unpackInt64Data(u.ctx)
		if u.ctx.err != nil {
			return Item{}, false
		}
		return Item{Kind: KindInt, Int: v}, true
	case schemaDouble:
		var buf [8]byte
		if n := u.ctx.readN(buf[:]); n != 8 {
			return Item{}, false
		}
		return Item{Kind: KindDouble, Double: math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))}, true
	case schemaDecimal:
		mantissa := unpackInt64Data(u.ctx)
		if u.ctx.err != nil {
			return Item{}, false
		}
		exponent := unpackInt64Data(u.ctx)
		if u.ctx.err != nil {
			return Item{}, false
		}
		return Item{Kind: KindDecimal, Decimal: Decimal{Mantissa: mantissa, Exponent: int32(exponent)}}, true
	case schemaDateTime, schemaDateTimeEpochDepr:
		enc := unpackInt64Data(u.ctx)
		if u.ctx.err != nil {
			return Item{}, false
		}
		dt, derr := decodeDateTime(enc)
		if derr != nil {
			u.ctx.setErr(derr.Code, "%s", derr.Msg)
			return Item{}, false
		}
		return Item{Kind: KindDateTime, DateTime: dt}, true
	case schemaList:
		return Item{Kind: KindList}, true
	case schemaMap:
		return Item{Kind: KindMap}, true
	case schemaIMap:
		return Item{Kind: KindIMap}, true
	case schemaMetaMap:
		return Item{Kind: KindMetaMap}, true
	case schemaTerm:
		return Item{Kind: KindContainerEnd}, true
	case schemaBlob, schemaString:
		total, _ := unpackUIntData(u.ctx)
		if u.ctx.err != nil {
			return Item{}, false
		}
		kind := KindBlob
		if head == schemaString {
			kind = KindString
		}
		u.totalLen = int(total)
		u.remaining = int(total)
		u.chunkOffset = 0
		if u.remaining == 0 {
			return Item{Kind: kind, SizeToLoad: 0, LastChunk: true}, true
		}
		u.streaming = true
		u.streamKind = kind
		return u.nextBlobChunk()
	case schemaCString:
		return u.readCString()
	default:
		u.ctx.setErr(MalformedInput, "unrecognized schema byte 0x%02x", head)
		return Item{}, false
	}
}

// NextChunk continues a Blob/String started by Next, returning successive
// chunks until LastChunk is set.
func (u *Unpacker) NextChunk() (Item, bool) {
	if !u.streaming {
		u.ctx.setErr(LogicalError, "NextChunk called without an in-progress stream")
		return Item{}, false
	}
	return u.nextBlobChunk()
}

func (u *Unpacker) nextBlobChunk() (Item, bool) {
	if u.remaining == 0 {
		u.streaming = false
		return Item{Kind: u.streamKind, ChunkStart: u.chunkOffset, ChunkSize: 0, SizeToLoad: u.totalLen, LastChunk: true}, true
	}

	chunkSize := u.ctx.peekAvailable()
	if chunkSize == 0 {
		if !u.ctx.refill() {
			return Item{}, false
		}
		chunkSize = u.ctx.peekAvailable()
	}
	if chunkSize > u.remaining {
		chunkSize = u.remaining
	}
	buf := make([]byte, chunkSize)
	n := u.ctx.readN(buf)
	if n != chunkSize {
		return Item{}, false
	}

	start := u.chunkOffset
	u.chunkOffset += n
	u.remaining -= n
	last := u.remaining == 0
	u.streaming = !last

	return Item{
		Kind:       u.streamKind,
		Bytes:      buf,
		ChunkStart: start,
		ChunkSize:  n,
		SizeToLoad: u.totalLen,
		LastChunk:  last,
	}, true
}

func (u *Unpacker) readCString() (Item, bool) {
	var out []byte
	for {
		b, ok := u.ctx.readByte()
		if !ok {
			return Item{}, false
		}
		if b == 0 {
			return Item{Kind: KindCString, Bytes: out, ChunkSize: len(out), LastChunk: true}, true
		}
		if b == '\\' {
			next, ok := u.ctx.readByte()
			if !ok {
				return Item{}, false
			}
			switch next {
			case 0:
				out = append(out, 0)
			case '\\':
				out = append(out, '\\')
			default:
				out = append(out, next)
			}
			continue
		}
		out = append(out, b)
	}
}
