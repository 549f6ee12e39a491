package chainpack

import (
	"encoding/binary"
	"math"
)

// PackNull writes the Null item.
func PackNull(c *PackContext) {
	c.WriteByte(schemaNull)
}

// PackBool writes a boolean item.
func PackBool(c *PackContext, b bool) {
	if b {
		c.WriteByte(schemaTrue)
	} else {
		c.WriteByte(schemaFalse)
	}
}

// PackUInt writes an unsigned integer, using the 1-byte tiny-int form for
// values below 64.
func PackUInt(c *PackContext, v uint64) {
	if v < 64 {
		c.WriteByte(byte(v))
		return
	}
	c.WriteByte(schemaUInt)
	packUIntData(c, v)
}

// PackInt writes a signed integer, using the 1-byte tiny-int form for values
// in [0,64).
func PackInt(c *PackContext, v int64) {
	if v >= 0 && v < 64 {
		c.WriteByte(byte(v) + 64)
		return
	}
	c.WriteByte(schemaInt)
	packIntData(c, v)
}

// PackDouble writes a double as 8 raw little-endian bytes regardless of
// host endianness.
func PackDouble(c *PackContext, v float64) {
	c.WriteByte(schemaDouble)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	c.Write(buf[:])
}

// PackDecimal writes a mantissa/exponent pair.
func PackDecimal(c *PackContext, d Decimal) {
	c.WriteByte(schemaDecimal)
	packIntData(c, d.Mantissa)
	packIntData(c, int64(d.Exponent))
}

// PackDateTime writes a DateTime value.
func PackDateTime(c *PackContext, dt DateTime) {
	c.WriteByte(schemaDateTime)
	packIntData(c, encodeDateTime(dt))
}

// PackListBegin opens a List container; must be matched by PackContainerEnd.
func PackListBegin(c *PackContext) { c.WriteByte(schemaList) }

// PackMapBegin opens a Map container (string keys).
func PackMapBegin(c *PackContext) { c.WriteByte(schemaMap) }

// PackIMapBegin opens an IMap container (integer keys).
func PackIMapBegin(c *PackContext) { c.WriteByte(schemaIMap) }

// PackMetaBegin opens a MetaMap, which must precede the value it annotates.
func PackMetaBegin(c *PackContext) { c.WriteByte(schemaMetaMap) }

// PackContainerEnd closes the innermost open container.
func PackContainerEnd(c *PackContext) { c.WriteByte(schemaTerm) }

// PackBlob writes a complete, non-streamed blob.
func PackBlob(c *PackContext, b []byte) {
	PackBlobStart(c, len(b))
	PackBlobCont(c, b)
}

// PackBlobStart writes the Blob schema byte and length prefix; the caller
// follows with one or more PackBlobCont calls totalling totalLen bytes.
func PackBlobStart(c *PackContext, totalLen int) {
	c.WriteByte(schemaBlob)
	packUIntData(c, uint64(totalLen))
}

// PackBlobCont writes a chunk of raw blob bytes.
func PackBlobCont(c *PackContext, chunk []byte) { c.Write(chunk) }

// PackString writes a complete, non-streamed UTF-8 string.
func PackString(c *PackContext, s string) {
	PackStringStart(c, len(s))
	PackStringCont(c, s)
}

// PackStringStart writes the String schema byte and length prefix.
func PackStringStart(c *PackContext, totalLen int) {
	c.WriteByte(schemaString)
	packUIntData(c, uint64(totalLen))
}

// PackStringCont writes a chunk of string bytes.
func PackStringCont(c *PackContext, chunk string) { c.Write([]byte(chunk)) }

// PackCString writes a complete zero-terminated, backslash-escaped string.
func PackCString(c *PackContext, s string) {
	PackCStringStart(c, s)
	PackCStringFinish(c)
}

// PackCStringStart writes the CString schema byte and the escaped body.
func PackCStringStart(c *PackContext, s string) {
	c.WriteByte(schemaCString)
	PackCStringCont(c, s)
}

// PackCStringCont escapes and writes additional CString body bytes.
func PackCStringCont(c *PackContext, s string) {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case 0, '\\':
			c.WriteByte('\\')
			c.WriteByte(ch)
		default:
			c.WriteByte(ch)
		}
	}
}

// PackCStringFinish writes the terminating NUL.
func PackCStringFinish(c *PackContext) { c.WriteByte(0) }
