package chainpack

// Overflow is called when the pack buffer is full or the stream is
// finalized. It receives the bytes accumulated since the last call and
// hands them downstream (a transport write, a length accumulator for the
// two-pass framer, etc); it reports no count, only success or failure.
// Returning an error marks the context permanently broken.
type Overflow func(chunk []byte) error

// PackContext is a bounded write buffer over an Overflow callback. It is
// the packing half of the "buffer plus overflow/underflow callback" design:
// callers never see a io.Writer directly, so the two-pass length framing in
// pkg/rpc can swap in a byte-counting Overflow for the discard pass and a
// real one for the emit pass without touching the codec at all.
type PackContext struct {
	buf      []byte
	n        int
	overflow Overflow
	err      *Error
}

// DefaultBufferSize is the pack/unpack buffer size mandated by the wire
// format's design constants.
const DefaultBufferSize = 1024

// NewPackContext creates a PackContext with the given buffer size (at least
// 8 bytes, to always hold one tiny-int plus headroom) and overflow handler.
func NewPackContext(bufSize int, overflow Overflow) *PackContext {
	if bufSize < 8 {
		bufSize = 8
	}
	return &PackContext{buf: make([]byte, bufSize), overflow: overflow}
}

// Err returns the sticky error, or nil if the context is still healthy.
func (c *PackContext) Err() error {
	if c.err == nil {
		return nil
	}
	return c.err
}

func (c *PackContext) setErr(code ErrorCode, format string, args ...any) {
	if c.err == nil {
		c.err = newErr(code, format, args...)
	}
}

// WriteByte appends a single byte, flushing to Overflow if the buffer is
// full. A no-op once the context has a sticky error.
func (c *PackContext) WriteByte(b byte) error {
	if c.err != nil {
		return c.err
	}
	if c.n == len(c.buf) {
		if err := c.flush(); err != nil {
			return err
		}
	}
	c.buf[c.n] = b
	c.n++
	return nil
}

// Write appends p, flushing as needed. Implements io.ByteWriter-adjacent
// usage from callers that already have a byte slice (e.g. blob chunks).
func (c *PackContext) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	for len(p) > 0 {
		if c.n == len(c.buf) {
			if err := c.flush(); err != nil {
				return 0, err
			}
		}
		k := copy(c.buf[c.n:], p)
		c.n += k
		p = p[k:]
	}
	return len(p), nil
}

func (c *PackContext) flush() error {
	if c.n == 0 {
		return nil
	}
	if c.overflow == nil {
		c.setErr(BufferOverflow, "pack buffer full with no overflow handler")
		return c.err
	}
	if err := c.overflow(c.buf[:c.n]); err != nil {
		c.setErr(BufferOverflow, "overflow: %v", err)
		return c.err
	}
	c.n = 0
	return nil
}

// Finalize flushes any remaining buffered bytes through Overflow. Every
// top-level send_* routine must call Finalize exactly once when it is done
// emitting a message.
func (c *PackContext) Finalize() error {
	if c.err != nil {
		return c.err
	}
	return c.flush()
}
