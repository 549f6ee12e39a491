package connection

import (
	"time"

	"github.com/silicon-heaven/shvdevice-go/pkg/rpc"
	"github.com/silicon-heaven/shvdevice-go/pkg/tree"
)

// pumpResult is the pump loop's outcome, mapped onto the worker's three
// post-pump transitions: a clean shutdown request, a clean EOF (worth
// reconnecting), or a transport-level error (terminal).
type pumpResult int

const (
	pumpShutdown pumpResult = iota
	pumpEOF
	pumpError
)

// pump drives one connected session: dataready/ping/dispatch, in a strict
// loop, until shutdown, a clean peer close, or a transport error. Requests
// are processed strictly sequentially - the next dataready isn't polled
// until the current request's reply has been written in full.
func (c *Connection) pump(sess *unpackerSession) pumpResult {
	halfPeriodMs := int(c.cfg.PingPeriod.Milliseconds() / 2)
	if halfPeriodMs <= 0 {
		halfPeriodMs = 1
	}

	for {
		select {
		case <-c.shutdownCh:
			return pumpShutdown
		default:
		}

		ready, err := c.transport.DataReady(halfPeriodMs, c.shutdownCh)
		if err != nil {
			return pumpError
		}
		if !ready {
			select {
			case <-c.shutdownCh:
				return pumpShutdown
			default:
			}
			if err := c.sendPing(); err != nil {
				return pumpError
			}
			continue
		}

		if !c.readAndDispatch(sess) {
			if sess.readErr != nil {
				return pumpError
			}
			return pumpEOF
		}
	}
}

// sendPing targets .broker/app:ping with the next monotonically increasing
// rid, as if it were any other outgoing request.
func (c *Connection) sendPing() error {
	rid := c.rid
	c.rid++
	return rpc.SendRequest(c.transport, rid, ".broker/app", "ping", nil)
}

// readAndDispatch reads exactly one message. A message carrying a Method is
// a request from the broker and is routed through tree.Dispatch; anything
// else (a reply to one of our own outgoing requests, e.g. a ping ack) is
// drained and ignored. A ShvPath/Method that overflowed its bounded buffer
// is reported back to the broker as MethodCallException without tearing
// the connection down. Returns false on a parse failure, a failed dispatch
// or reply write, or a clean EOF; sess.readErr is set only when the cause
// was a Transport.Read error, and every other cause leaves it nil.
func (c *Connection) readAndDispatch(sess *unpackerSession) bool {
	meta, ok, overflow := rpc.ReadMessage(sess.u)
	if !ok {
		return false
	}
	if overflow != nil {
		if !rpc.DrainPayload(sess.u) {
			return false
		}
		return rpc.SendError(c.transport, meta.RequestID, meta.CallerIDs, overflow) == nil
	}
	if meta.Method == "" {
		return rpc.DrainPayload(sess.u)
	}

	start := time.Now()
	err := tree.Dispatch(c.root, meta, sess.u, c.transport)
	if c.metrics != nil {
		c.metrics.RecordRequest(meta.ShvPath, meta.Method, time.Since(start), dispatchErrorCode(err))
	}
	return err == nil
}

// dispatchErrorCode reduces a Dispatch error into the label RecordRequest
// expects: empty for success, "error" for anything else. Dispatch's errors
// are transport- or codec-level failures (a reply write that failed, or a
// payload the unpacker could not read); the RPC-level
// MethodCallException/InvalidParams replies it sends on a bad path/method
// are not Go errors, so there is no WireError code to surface here.
func dispatchErrorCode(err error) string {
	if err == nil {
		return ""
	}
	return "error"
}
