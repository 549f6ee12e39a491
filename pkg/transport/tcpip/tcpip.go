// Package tcpip is the reference transport.Transport implementation: it
// dials a broker over TCP and implements DataReady with a short read
// deadline polled in a loop, so a shutdown signal is never blocked on
// longer than one poll interval.
package tcpip

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/silicon-heaven/shvdevice-go/internal/logger"
	"github.com/silicon-heaven/shvdevice-go/pkg/transport"
)

// pollInterval bounds how long DataReady can block before it re-checks the
// shutdown channel, keeping shutdown latency independent of timeoutMs.
const pollInterval = 200 * time.Millisecond

// Transport dials addr on Init and implements transport.Transport over the
// resulting net.Conn. Reads go through a buffered reader so DataReady can
// peek at the next byte (to test readability) without consuming it.
type Transport struct {
	addr string
	conn net.Conn
	br   *bufio.Reader
}

// New returns a Transport that will dial addr (host:port) on Init.
func New(addr string) *Transport {
	return &Transport{addr: addr}
}

func (t *Transport) Init(ctx context.Context) error {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return transport.Retryable(fmt.Errorf("dial %s: %w", t.addr, err))
	}
	t.conn = conn
	t.br = bufio.NewReaderSize(conn, transportReadBufSize)
	logger.Info("tcpip transport connected", logger.BrokerAddr(t.addr))
	return nil
}

const transportReadBufSize = 4096

func (t *Transport) Read(buf []byte) (int, error) {
	n, err := t.br.Read(buf)
	if err != nil {
		if isEOF(err) {
			return n, nil
		}
		return n, err
	}
	return n, nil
}

func (t *Transport) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := t.conn.Write(p[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// DataReady peeks at the connection under a short deadline, looping until
// either a byte shows up, the peer closes, timeoutMs elapses, or shutdown
// fires - whichever comes first. The deadline is reset to zero (no
// deadline) before returning true so the following Read is not cut short
// by a stale deadline.
func (t *Transport) DataReady(timeoutMs int, shutdown <-chan struct{}) (bool, error) {
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	for {
		select {
		case <-shutdown:
			return false, nil
		default:
		}

		step := pollInterval
		if remaining := time.Until(deadline); remaining < step {
			step = remaining
		}
		if step <= 0 {
			return false, nil
		}

		if err := t.conn.SetReadDeadline(time.Now().Add(step)); err != nil {
			return false, err
		}
		_, err := t.br.Peek(1)
		if err == nil {
			_ = t.conn.SetReadDeadline(time.Time{})
			return true, nil
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			continue
		}
		if isEOF(err) {
			_ = t.conn.SetReadDeadline(time.Time{})
			return true, nil // let the next Read observe the clean close
		}
		return false, err
	}
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
