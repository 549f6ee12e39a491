package tcpip_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/silicon-heaven/shvdevice-go/pkg/transport"
	"github.com/silicon-heaven/shvdevice-go/pkg/transport/tcpip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) (net.Listener, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return ln, ln.Addr().String()
}

func TestInitDialsAndWriteReadRoundTrips(t *testing.T) {
	ln, addr := listen(t)

	serverDone := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 5)
		n, _ := conn.Read(buf)
		serverDone <- buf[:n]
		_, _ = conn.Write([]byte("pong!"))
	}()

	tr := tcpip.New(addr)
	require.NoError(t, tr.Init(context.Background()))
	defer tr.Close()

	n, err := tr.Write([]byte("ping!"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte("ping!"), <-serverDone)

	buf := make([]byte, 5)
	n, err = tr.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "pong!", string(buf[:n]))
}

func TestInitOnUnreachableAddressIsRetryable(t *testing.T) {
	tr := tcpip.New("127.0.0.1:1") // port 1 is reserved; connection refused
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := tr.Init(ctx)
	require.Error(t, err)
	var ie *transport.InitError
	require.ErrorAs(t, err, &ie)
	assert.False(t, ie.Fatal)
}

func TestDataReadyTimesOutWithNoData(t *testing.T) {
	ln, addr := listen(t)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(500 * time.Millisecond)
	}()

	tr := tcpip.New(addr)
	require.NoError(t, tr.Init(context.Background()))
	defer tr.Close()

	start := time.Now()
	ready, err := tr.DataReady(100, make(chan struct{}))
	require.NoError(t, err)
	assert.False(t, ready)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestDataReadyInterruptedByShutdown(t *testing.T) {
	ln, addr := listen(t)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(2 * time.Second)
	}()

	tr := tcpip.New(addr)
	require.NoError(t, tr.Init(context.Background()))
	defer tr.Close()

	shutdown := make(chan struct{})
	close(shutdown)

	start := time.Now()
	ready, err := tr.DataReady(5000, shutdown)
	require.NoError(t, err)
	assert.False(t, ready)
	assert.Less(t, time.Since(start), 300*time.Millisecond)
}
