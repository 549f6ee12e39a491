// Package bufpool recycles fixed 1 KiB scratch buffers (the same size as
// pkg/rpc.PackBufferSize). Its one caller is pkg/file's read handler, which
// draws its per-request read buffer from here; the pack/unpack contexts
// allocate their own buffers and do not use this pool.
package bufpool

import "sync"

// Size is the buffer size this pool recycles - matching
// pkg/rpc.PackBufferSize exactly; it is the only size this pool hands out.
const Size = 1024

var pool = sync.Pool{
	New: func() any {
		buf := make([]byte, Size)
		return &buf
	},
}

// Get returns a Size-length buffer, either recycled or freshly allocated.
func Get() []byte {
	bufPtr := pool.Get().(*[]byte)
	return *bufPtr
}

// Put returns buf to the pool. Buffers not obtained from Get (wrong
// capacity) are silently dropped rather than pooled, matching the
// teacher's own bufpool's handling of oversized/undersized buffers.
func Put(buf []byte) {
	if cap(buf) != Size {
		return
	}
	full := buf[:Size]
	pool.Put(&full)
}
