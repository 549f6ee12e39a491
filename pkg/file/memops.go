package file

import "hash/crc32"

// MemOps is an in-memory Ops backed by a byte slice, the reference
// implementation of the write state machine's bounds policy: writes at or
// past MaxSize are a silent no-op, and writes crossing MaxSize are
// truncated to fit. It also demonstrates CRC32's documented tolerance for
// a backing store shorter than the requested range.
type MemOps struct {
	data    []byte
	maxSize int64
}

// NewMemOps allocates an empty backing store with capacity for maxSize
// bytes; it grows (zero-filling any gap) as writes land.
func NewMemOps(maxSize int64) *MemOps {
	return &MemOps{data: make([]byte, 0, maxSize), maxSize: maxSize}
}

// Bytes returns the current content actually written, not padded to
// maxSize.
func (m *MemOps) Bytes() []byte { return m.data }

func (m *MemOps) WriteAt(offset int64, p []byte) (int, error) {
	if offset >= m.maxSize {
		return 0, nil
	}
	count := int64(len(p))
	if offset+count > m.maxSize {
		count = m.maxSize - offset
	}
	end := offset + count
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[offset:end], p[:count])
	return int(count), nil
}

func (m *MemOps) ReadAt(offset int64, p []byte) (int, error) {
	if offset >= int64(len(m.data)) {
		return 0, nil
	}
	n := copy(p, m.data[offset:])
	return n, nil
}

// CRC32 computes the IEEE polynomial CRC over [start, start+size),
// tolerating a backing store shorter than start+size by finalizing with
// whatever bytes actually exist in range.
func (m *MemOps) CRC32(start, size int64) (uint32, error) {
	if start < 0 || start >= int64(len(m.data)) || size <= 0 {
		return crc32.ChecksumIEEE(nil), nil
	}
	end := start + size
	if end > int64(len(m.data)) {
		end = int64(len(m.data))
	}
	return crc32.ChecksumIEEE(m.data[start:end]), nil
}
