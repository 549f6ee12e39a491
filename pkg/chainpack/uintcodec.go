package chainpack

import "math/bits"

// significantBitLen returns the number of bits needed to hold n, i.e. the
// position of its highest set bit plus one. Zero needs zero bits.
func significantBitLen(n uint64) int {
	return bits.Len64(n)
}

// bytesNeeded returns the number of wire bytes the unsigned-integer envelope
// needs to carry bitLen significant bits, per the length table:
//
//	1..7 bits   -> 1 byte    (bitLen-1)/7 + 1
//	8..14 bits  -> 2 bytes
//	...
//	29+ bits    -> 5+ bytes  (bitLen-1)/8 + 2
func bytesNeeded(bitLen int) int {
	if bitLen <= 0 {
		return 1
	}
	if bitLen <= 28 {
		return (bitLen-1)/7 + 1
	}
	return (bitLen-1)/8 + 2
}

// expandBitLenForByteCount returns the sign-bit position used by the signed
// envelope for a value encoded in byteCnt bytes: byteCnt*7-1 for the
// short (<=28 bit) forms, (byteCnt-1)*8-1 for the long forms. This is the
// same function as the packer's expand_bit_len, but indexed by the byte
// count actually present on the wire (recoverable from the header pattern)
// rather than by the bit length used at encode time - the two agree because
// bytesNeeded is idempotent on its own output.
func expandBitLenForByteCount(byteCnt int) int {
	if byteCnt <= 4 {
		return byteCnt*7 - 1
	}
	return (byteCnt-1)*8 - 1
}

// packUIntDataHelper writes num using the byte count required by bitLen,
// setting the header bits that encode the byte count itself.
func packUIntDataHelper(c *PackContext, num uint64, bitLen int) {
	byteCnt := bytesNeeded(bitLen)
	if byteCnt > 9 {
		// num does not fit in 64 bits; this should never happen for values
		// produced by this package, but guard rather than corrupt the stream.
		c.setErr(LogicalError, "uint value requires more than 9 bytes")
		return
	}

	var raw [9]byte
	for i := byteCnt - 1; i >= 0; i-- {
		raw[i] = byte(num)
		num >>= 8
	}

	if bitLen <= 28 {
		mask := byte(0xf0 << uint(4-byteCnt))
		raw[0] &^= mask
		raw[0] |= mask << 1
	} else {
		raw[0] = 0xf0 | byte(byteCnt-5)
	}

	for i := 0; i < byteCnt; i++ {
		c.WriteByte(raw[i])
	}
}

// packUIntData writes the magnitude envelope for an unsigned 64-bit value.
func packUIntData(c *PackContext, num uint64) {
	packUIntDataHelper(c, num, significantBitLen(num))
}

// packIntData writes the magnitude envelope for a signed 64-bit value,
// adding one sign bit at the position expandBitLenForByteCount selects for
// the byte count the (bitLen+1)-bit magnitude requires.
func packIntData(c *PackContext, snum int64) {
	neg := snum < 0
	var num uint64
	if neg {
		num = uint64(-snum)
	} else {
		num = uint64(snum)
	}

	bitLen := significantBitLen(num) + 1 // + sign bit
	if neg {
		signPos := expandBitLenForByteCount(bytesNeeded(bitLen))
		if signPos > 63 {
			// Only math.MinInt64 reaches here: its magnitude (2^63) needs a
			// sign bit one position beyond what a uint64 envelope can carry.
			c.setErr(LogicalError, "signed value has no representable encoding")
			return
		}
		num |= uint64(1) << uint(signPos)
	}
	packUIntDataHelper(c, num, bitLen)
}

// headerByteCount inspects the first byte of a uint-data envelope and
// returns the total byte count (including the header byte itself) and the
// bits already carried by the header byte.
func headerByteCount(head byte) (byteCnt int, headBits uint64) {
	switch {
	case head&0x80 == 0:
		return 1, uint64(head)
	case head&0xc0 == 0x80:
		return 2, uint64(head & 0x3f)
	case head&0xe0 == 0xc0:
		return 3, uint64(head & 0x1f)
	case head&0xf0 == 0xe0:
		return 4, uint64(head & 0x0f)
	default:
		n := int(head & 0x0f)
		return n + 5, 0
	}
}

// unpackUIntData reads an unsigned-integer envelope from c, returning the
// raw wire value (for signed callers, the sign bit is still embedded) and
// the byte count consumed.
func unpackUIntData(c *UnpackContext) (value uint64, byteCnt int) {
	head, ok := c.readByte()
	if !ok {
		return 0, 0
	}
	byteCnt, value = headerByteCount(head)
	for i := 1; i < byteCnt; i++ {
		b, ok := c.readByte()
		if !ok {
			return 0, byteCnt
		}
		// Invariant: an over-length encoding (more than 64 significant bits
		// worth of trailing bytes) saturates to UInt max rather than wrapping.
		if i <= 8 {
			value = value<<8 | uint64(b)
		} else {
			value = ^uint64(0)
		}
	}
	return value, byteCnt
}

// unpackInt64Data reads a signed-integer envelope, splitting out the sign
// bit using expandBitLenForByteCount for the byte count actually present.
func unpackInt64Data(c *UnpackContext) int64 {
	raw, byteCnt := unpackUIntData(c)
	if c.err != nil {
		return 0
	}
	if byteCnt > 9 {
		// Over-length encoding: unpackUIntData already saturated raw to
		// ^uint64(0). Per the overflow invariant this canonicalizes to
		// i64::MAX regardless of the (meaningless) sign bit position.
		return int64(1<<63 - 1)
	}
	signPos := expandBitLenForByteCount(byteCnt) // in [0,63] for byteCnt in [1,9]
	signMask := uint64(1) << uint(signPos)
	neg := raw&signMask != 0
	magnitude := raw &^ signMask
	if neg {
		return -int64(magnitude)
	}
	return int64(magnitude)
}
