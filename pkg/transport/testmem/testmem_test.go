package testmem_test

import (
	"context"
	"errors"
	"testing"

	"github.com/silicon-heaven/shvdevice-go/pkg/transport/testmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairRoundTrips(t *testing.T) {
	a, b := testmem.Pair()
	defer a.Close()
	defer b.Close()

	n, err := a.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestFailInitOnceThenSucceeds(t *testing.T) {
	a, _ := testmem.Pair()
	defer a.Close()

	a.FailInitOnce(errors.New("boom"))
	err := a.Init(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, a.InitCalls())

	err = a.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, a.InitCalls())
}

func TestCloseIsIdempotent(t *testing.T) {
	a, b := testmem.Pair()
	defer b.Close()
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}

func TestDataReadyFalseAfterClose(t *testing.T) {
	a, b := testmem.Pair()
	defer b.Close()
	require.NoError(t, a.Close())

	ready, err := a.DataReady(10, make(chan struct{}))
	assert.False(t, ready)
	assert.Error(t, err)
}
