// Package connection implements the broker connection lifecycle: the
// hello/login handshake, the ping/dispatch pump loop, reconnect-with-backoff
// policy, and cooperative shutdown, all owned by a single worker goroutine
// per Connection. The node tree it dispatches against is built and owned by
// the application; the Connection only reads it.
package connection

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/silicon-heaven/shvdevice-go/internal/logger"
	"github.com/silicon-heaven/shvdevice-go/pkg/metrics"
	"github.com/silicon-heaven/shvdevice-go/pkg/transport"
	"github.com/silicon-heaven/shvdevice-go/pkg/tree"
)

// Connection owns one worker goroutine that dials, logs in, pumps, and
// reconnects against a single Transport. The application thread creates it,
// calls Start once, and calls Close when the device is shutting down; every
// other method is safe to call concurrently with the worker.
type Connection struct {
	cfg       Config
	transport transport.Transport
	root      *tree.Node
	attention AttentionFunc
	metrics   metrics.DeviceMetrics

	running      atomic.Bool
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	mu             sync.Mutex
	state          State
	lastErr        *Error
	reconnectsDone int
	rid            int64
}

// Option configures an optional aspect of a Connection.
type Option func(*Connection)

// WithMetrics makes the connection report lifecycle transitions and
// dispatched requests to m. Passing a nil m (or omitting the option) leaves
// metrics collection off.
func WithMetrics(m metrics.DeviceMetrics) Option {
	return func(c *Connection) { c.metrics = m }
}

// New builds a Connection. t.Init has not been called yet; it runs for the
// first time inside the worker goroutine started by Start. root is the
// dispatch tree served to the broker; it must not be mutated concurrently
// with the worker once Start has been called (see the package's
// concurrency note in the design). attention may be nil.
func New(cfg Config, t transport.Transport, root *tree.Node, attention AttentionFunc, opts ...Option) *Connection {
	c := &Connection{
		cfg:        cfg.withDefaults(),
		transport:  t,
		root:       root,
		attention:  attention,
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics != nil {
		c.transport = newMeteredTransport(c.transport, c.metrics)
	}
	c.running.Store(true)
	return c
}

// Start launches the worker goroutine and returns immediately.
func (c *Connection) Start(ctx context.Context) {
	go c.worker(ctx)
}

// Shutdown requests a cooperative stop: running flips to false and the
// worker's auxiliary wake channel fires, so a blocked dataready returns at
// its next wake-up rather than waiting out the ping period. Idempotent.
func (c *Connection) Shutdown() {
	c.running.Store(false)
	c.shutdownOnce.Do(func() { close(c.shutdownCh) })
}

// Wait blocks until the worker goroutine has returned.
func (c *Connection) Wait() {
	<-c.done
}

// Close requests shutdown, joins the worker, and closes the transport -
// the destroy routine the design calls for. Safe to call once the worker
// has already terminated on its own (transport.Close is idempotent).
func (c *Connection) Close() error {
	c.Shutdown()
	c.Wait()
	return c.transport.Close()
}

// State returns the connection's current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the error that terminated the worker, or nil if it is
// still running or exited via a clean Shutdown.
func (c *Connection) LastError() *Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Connection) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.SetConnectionState(s.String())
	}
}

func (c *Connection) setLastError(e *Error) {
	c.mu.Lock()
	c.lastErr = e
	c.mu.Unlock()
}

// fail records a terminal error and reports it to the attention callback.
func (c *Connection) fail(code ErrorCode, err error) {
	c.setLastError(&Error{Code: code, Err: err})
	c.notify(EventError)
}

func (c *Connection) notify(ev Event) {
	if c.attention == nil {
		return
	}
	c.attention(ev, c.LastError())
}

// worker is the NOT_INIT/INIT_BUT_NO_CONN/CONNECTED state machine: init,
// handshake, pump, and on a reconnect-worthy outcome, loop back to init
// after sleeping reconnect_period.
func (c *Connection) worker(ctx context.Context) {
	defer close(c.done)
	defer c.setState(StateTerminated)

	for c.running.Load() {
		select {
		case <-c.shutdownCh:
			return
		default:
		}

		c.setState(StateNotInit)
		if err := c.transport.Init(ctx); err != nil {
			if transport.IsFatal(err) {
				c.fail(ErrTransportInit, err)
				return
			}
			logger.Warn("transport init failed, will retry", logger.Err(err), logger.Reconnects(c.reconnectsDone))
			c.setState(StateInitButNoConn)
			if !c.sleepReconnect() {
				return
			}
			continue
		}

		sess := newUnpackerSession(c.transport)
		if err := c.handshake(sess); err != nil {
			_ = c.transport.Close()
			c.fail(ErrLogin, err)
			return
		}

		c.reconnectsDone = 0
		c.setState(StateConnected)
		logger.Info("connected to broker", logger.DeviceID(c.cfg.DeviceID))
		if c.metrics != nil {
			c.metrics.RecordConnected()
		}
		c.notify(EventConnected)

		switch c.pump(sess) {
		case pumpShutdown:
			_ = c.transport.Close()
			return
		case pumpEOF:
			logger.Info("broker closed connection, reconnecting")
			if c.metrics != nil {
				c.metrics.RecordDisconnected()
			}
			c.notify(EventDisconnected)
			_ = c.transport.Close()
			if !c.sleepReconnect() {
				return
			}
		case pumpError:
			if c.metrics != nil {
				c.metrics.RecordDisconnected()
			}
			c.notify(EventDisconnected)
			_ = c.transport.Close()
			c.fail(ErrTransportRead, sess.readErr)
			return
		}
	}
}

// sleepReconnect increments the reconnect counter, fails with
// ErrTooManyReconnects once ReconnectRetries is exceeded (ReconnectRetries
// <= 0 means unlimited), and otherwise sleeps ReconnectPeriod, woken early
// by shutdown. Returns false whenever the worker should return immediately
// instead of retrying.
func (c *Connection) sleepReconnect() bool {
	c.reconnectsDone++
	if c.metrics != nil {
		c.metrics.RecordReconnectAttempt()
	}
	if c.cfg.ReconnectRetries > 0 && c.reconnectsDone > c.cfg.ReconnectRetries {
		c.fail(ErrTooManyReconnects, nil)
		return false
	}
	select {
	case <-c.shutdownCh:
		return false
	case <-time.After(c.cfg.ReconnectPeriod):
		return true
	}
}
