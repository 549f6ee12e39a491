package chainpack

import "math"

// encodeDateTime packs a DateTime as the single signed integer described by
// the format: msec since the SHV epoch, optionally rescaled to seconds when
// the millisecond fraction is zero, with two low bits flagging which
// optional fields follow and an optional 7-bit signed timezone quarter.
func encodeDateTime(dt DateTime) int64 {
	msecs := dt.EpochMs - shvEpochMs
	offsetQ := int64(dt.OffsetQuart) & 0x7f
	hasMsFrac := msecs%1000 != 0
	if !hasMsFrac {
		msecs /= 1000
	}
	hasOffset := dt.OffsetQuart != 0
	if hasOffset {
		msecs = msecs*128 | offsetQ
	}
	msecs *= 4
	if hasOffset {
		msecs |= 1
	}
	if !hasMsFrac {
		msecs |= 2
	}
	return msecs
}

// decodeDateTime reverses encodeDateTime. Returns an error if rescaling the
// seconds-only form back to milliseconds would overflow int64.
func decodeDateTime(enc int64) (DateTime, *Error) {
	hasOffset := enc&1 != 0
	msIsZero := enc&2 != 0
	msecs := enc >> 2

	var offsetQ int8
	if hasOffset {
		raw7 := msecs & 0x7f
		msecs >>= 7
		if raw7 >= 64 {
			offsetQ = int8(raw7 - 128)
		} else {
			offsetQ = int8(raw7)
		}
	}

	if msIsZero {
		if msecs > math.MaxInt64/1000 || msecs < math.MinInt64/1000 {
			return DateTime{}, newErr(MalformedInput, "date-time seconds rescale overflow")
		}
		msecs *= 1000
	}

	epochMs := msecs + shvEpochMs
	return DateTime{EpochMs: epochMs, OffsetQuart: offsetQ}, nil
}
