// Package testmem is an in-memory transport.Transport pair, backed by
// io.Pipe, for exercising pkg/connection and pkg/rpc without a real socket.
// Grounds the reconnect and shutdown-latency tests the reference tcpip
// transport has no deterministic way to drive: unlike tcpip's socket Peek,
// an io.Pipe can't be polled directly, so each Transport runs a background
// goroutine that drains the pipe into a small queue, letting DataReady
// report genuine readiness (and wake promptly on shutdown) instead of
// blocking the caller inside Read.
package testmem

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/silicon-heaven/shvdevice-go/pkg/transport"
)

// Pair returns two linked Transports: writes to one arrive as reads on the
// other, like a socketpair.
func Pair() (a, b *Transport) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	a = newTransport(ar, aw)
	b = newTransport(br, bw)
	return a, b
}

// Transport is one half of a Pair.
type Transport struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu        sync.Mutex
	closed    bool
	initErr   error // returned by the next Init call, then cleared
	initCalls int

	queue   [][]byte
	pumpErr error
	notify  chan struct{} // closed and replaced whenever queue/pumpErr changes
}

func newTransport(r *io.PipeReader, w *io.PipeWriter) *Transport {
	t := &Transport{r: r, w: w, notify: make(chan struct{})}
	go t.pump()
	return t
}

// pump continuously reads from the pipe into t.queue, standing in for the
// "is a read pending" check a real socket's poll/select would answer
// directly.
func (t *Transport) pump() {
	buf := make([]byte, 4096)
	for {
		n, err := t.r.Read(buf)
		t.mu.Lock()
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			t.queue = append(t.queue, chunk)
		}
		if err != nil {
			t.pumpErr = err
		}
		t.signalLocked()
		t.mu.Unlock()
		if err != nil {
			return
		}
	}
}

// signalLocked wakes every goroutine blocked in waitLocked. Caller holds t.mu.
func (t *Transport) signalLocked() {
	close(t.notify)
	t.notify = make(chan struct{})
}

// FailInitOnce arranges for the next call to Init to return err instead of
// succeeding, used to drive the reconnect-retry tests.
func (t *Transport) FailInitOnce(err error) {
	t.mu.Lock()
	t.initErr = err
	t.mu.Unlock()
}

func (t *Transport) InitCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.initCalls
}

func (t *Transport) Init(ctx context.Context) error {
	t.mu.Lock()
	t.initCalls++
	err := t.initErr
	t.initErr = nil
	t.mu.Unlock()
	return err
}

// Read returns whatever the background pump has already queued, blocking
// only if the queue is empty and the pipe hasn't ended yet.
func (t *Transport) Read(buf []byte) (int, error) {
	for {
		t.mu.Lock()
		if len(t.queue) > 0 {
			chunk := t.queue[0]
			n := copy(buf, chunk)
			if n < len(chunk) {
				t.queue[0] = chunk[n:]
			} else {
				t.queue = t.queue[1:]
			}
			t.mu.Unlock()
			return n, nil
		}
		if t.pumpErr != nil {
			err := t.pumpErr
			t.mu.Unlock()
			if err == io.EOF || err == io.ErrClosedPipe {
				return 0, nil
			}
			return 0, err
		}
		ch := t.notify
		t.mu.Unlock()
		<-ch
	}
}

func (t *Transport) Write(p []byte) (int, error) {
	return t.w.Write(p)
}

func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	_ = t.r.Close()
	return t.w.Close()
}

// DataReady reports true as soon as the background pump has something
// queued (or has observed the pipe end), false on timeout, and false with
// transport.ErrClosed if this half has already been closed locally.
func (t *Transport) DataReady(timeoutMs int, shutdown <-chan struct{}) (bool, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false, transport.ErrClosed
	}
	t.mu.Unlock()

	timer := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
	defer timer.Stop()
	for {
		t.mu.Lock()
		ready := len(t.queue) > 0 || t.pumpErr != nil
		ch := t.notify
		t.mu.Unlock()
		if ready {
			return true, nil
		}
		select {
		case <-shutdown:
			return false, nil
		case <-timer.C:
			return false, nil
		case <-ch:
			continue
		}
	}
}
