package connection_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/silicon-heaven/shvdevice-go/pkg/chainpack"
	"github.com/silicon-heaven/shvdevice-go/pkg/connection"
	"github.com/silicon-heaven/shvdevice-go/pkg/rpc"
	"github.com/silicon-heaven/shvdevice-go/pkg/transport"
	"github.com/silicon-heaven/shvdevice-go/pkg/transport/testmem"
	"github.com/silicon-heaven/shvdevice-go/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() connection.Config {
	return connection.Config{
		User:             "tester",
		Password:         "secret",
		ReconnectPeriod:  5 * time.Millisecond,
		ReconnectRetries: 2,
	}
}

func emptyRoot() *tree.Node {
	return tree.NewNode("", tree.NewMethodTable(tree.BaseMethods()...), tree.NewChildren())
}

// runFakeBroker services whatever the device sends (hello, login, ping,
// ...) with an empty success reply, mirroring the callerIDs. It returns
// once peer's Read reports a clean close.
func runFakeBroker(peer transport.Transport) {
	go func() {
		ctx := chainpack.NewUnpackContext(rpc.PackBufferSize, peer.Read)
		u := chainpack.NewUnpacker(ctx)
		for {
			meta, ok, _ := rpc.ReadMessage(u)
			if !ok {
				return
			}
			if !rpc.DrainPayload(u) {
				return
			}
			if err := rpc.SendResult(peer, meta.RequestID, meta.CallerIDs, nil); err != nil {
				return
			}
		}
	}()
}

type attentionRecorder struct {
	mu     sync.Mutex
	events []connection.Event
	errs   []*connection.Error
	notify chan struct{}
}

func newAttentionRecorder() *attentionRecorder {
	return &attentionRecorder{notify: make(chan struct{}, 64)}
}

func (r *attentionRecorder) fn(ev connection.Event, err *connection.Error) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *attentionRecorder) count(ev connection.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == ev {
			n++
		}
	}
	return n
}

func (r *attentionRecorder) waitFor(t *testing.T, pred func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		if pred() {
			return
		}
		select {
		case <-r.notify:
		case <-deadline:
			require.FailNow(t, "timed out waiting for attention event")
		}
	}
}

// scriptedTransport wraps a *testmem.Transport, failing Init with the next
// queued error before delegating to the real Init once the queue is empty -
// the reconnect tests' way of simulating "fails N times then succeeds".
type scriptedTransport struct {
	*testmem.Transport
	mu       sync.Mutex
	results  []error
	attempts int
}

func withInitScript(inner *testmem.Transport, results ...error) *scriptedTransport {
	return &scriptedTransport{Transport: inner, results: results}
}

func (s *scriptedTransport) Init(ctx context.Context) error {
	s.mu.Lock()
	s.attempts++
	var err error
	if len(s.results) > 0 {
		err = s.results[0]
		s.results = s.results[1:]
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Transport.Init(ctx)
}

func (s *scriptedTransport) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func TestHandshakeThenDispatchRoundTrip(t *testing.T) {
	device, broker := testmem.Pair()
	defer broker.Close()

	rec := newAttentionRecorder()
	conn := connection.New(testConfig(), device, emptyRoot(), rec.fn)
	conn.Start(context.Background())
	defer conn.Close()

	// Service hello and login manually so we can then issue a real
	// request and inspect the device's reply.
	brokerCtx := chainpack.NewUnpackContext(rpc.PackBufferSize, broker.Read)
	u := chainpack.NewUnpacker(brokerCtx)

	for i := 0; i < 2; i++ { // hello, login
		meta, ok, _ := rpc.ReadMessage(u)
		require.True(t, ok)
		require.True(t, rpc.DrainPayload(u))
		require.NoError(t, rpc.SendResult(broker, meta.RequestID, meta.CallerIDs, nil))
	}

	rec.waitFor(t, func() bool { return rec.count(connection.EventConnected) == 1 }, time.Second)
	assert.Equal(t, connection.StateConnected, conn.State())

	require.NoError(t, rpc.SendRequest(broker, 100, "", "ls", nil))
	meta, ok, _ := rpc.ReadMessage(u)
	require.True(t, ok)
	require.Equal(t, int64(100), meta.RequestID)
	item, ok := u.Next()
	require.True(t, ok)
	require.Equal(t, chainpack.KindIMap, item.Kind)
	key, ok := u.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(2), key.UInt)
	val, ok := u.Next()
	require.True(t, ok)
	assert.Equal(t, chainpack.KindList, val.Kind)
}

func TestReconnectSucceedsAfterRetries(t *testing.T) {
	device, broker := testmem.Pair()
	defer broker.Close()
	runFakeBroker(broker)

	scripted := withInitScript(device, errors.New("boom 1"), errors.New("boom 2"))

	rec := newAttentionRecorder()
	conn := connection.New(testConfig(), scripted, emptyRoot(), rec.fn)
	conn.Start(context.Background())
	defer conn.Close()

	rec.waitFor(t, func() bool { return rec.count(connection.EventConnected) == 1 }, time.Second)
	assert.Equal(t, 1, rec.count(connection.EventConnected))
	assert.Equal(t, 0, rec.count(connection.EventError))
	assert.Equal(t, 3, scripted.Attempts())
}

func TestTooManyReconnectsTerminates(t *testing.T) {
	device, broker := testmem.Pair()
	defer broker.Close()

	scripted := withInitScript(device,
		errors.New("boom 1"), errors.New("boom 2"), errors.New("boom 3"))

	cfg := testConfig()
	cfg.ReconnectRetries = 2

	rec := newAttentionRecorder()
	conn := connection.New(cfg, scripted, emptyRoot(), rec.fn)
	conn.Start(context.Background())
	defer conn.Close()

	rec.waitFor(t, func() bool { return rec.count(connection.EventError) == 1 }, time.Second)
	conn.Wait()
	require.NotNil(t, conn.LastError())
	assert.Equal(t, connection.ErrTooManyReconnects, conn.LastError().Code)
	assert.Equal(t, connection.StateTerminated, conn.State())
}

func TestMissingCredentialsFailsLoginImmediately(t *testing.T) {
	device, broker := testmem.Pair()
	defer broker.Close()

	cfg := testConfig()
	cfg.Password = ""

	rec := newAttentionRecorder()
	conn := connection.New(cfg, device, emptyRoot(), rec.fn)
	conn.Start(context.Background())
	defer conn.Close()

	rec.waitFor(t, func() bool { return rec.count(connection.EventError) == 1 }, time.Second)
	conn.Wait()
	require.NotNil(t, conn.LastError())
	assert.Equal(t, connection.ErrLogin, conn.LastError().Code)
}

func TestShutdownLatencyIsBoundedNotByPingPeriod(t *testing.T) {
	device, broker := testmem.Pair()
	defer broker.Close()
	runFakeBroker(broker)

	cfg := testConfig()
	cfg.PingPeriod = 10 * time.Second // shutdown must not wait anywhere near this

	rec := newAttentionRecorder()
	conn := connection.New(cfg, device, emptyRoot(), rec.fn)
	conn.Start(context.Background())

	rec.waitFor(t, func() bool { return rec.count(connection.EventConnected) == 1 }, time.Second)

	start := time.Now()
	conn.Shutdown()
	conn.Wait()
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 500*time.Millisecond)
}
