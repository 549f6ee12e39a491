package tree_test

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/silicon-heaven/shvdevice-go/pkg/chainpack"
	"github.com/silicon-heaven/shvdevice-go/pkg/rpc"
	"github.com/silicon-heaven/shvdevice-go/pkg/tree"
	"github.com/silicon-heaven/shvdevice-go/pkg/tree/methods"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUnpacker(data []byte) *chainpack.Unpacker {
	r := bytes.NewReader(data)
	ctx := chainpack.NewUnpackContext(chainpack.DefaultBufferSize, func(buf []byte) (int, error) {
		n, err := r.Read(buf)
		if err == io.EOF {
			return n, nil
		}
		return n, err
	})
	return chainpack.NewUnpacker(ctx)
}

func buildTree() *tree.Node {
	status := tree.NewTypedValueNode("status", 0, "Double", nil)
	children := tree.NewChildren()
	_ = children.Add(status)
	_ = children.Add(methods.NewAppNode(methods.AppInfo{Name: "shvdevice", Version: "1.0.0"}))
	_ = children.Add(methods.NewDeviceNode(methods.DeviceInfo{Name: "demo", Version: "1.0.0", SerialNumber: "SN1"}))
	return tree.NewNode("", tree.NewMethodTable(tree.BaseMethods()...), children)
}

// dispatchRequest sends a request against root and returns the reply bytes.
func dispatchRequest(t *testing.T, root *tree.Node, shvPath, method string, writeParams func(c *chainpack.PackContext)) []byte {
	t.Helper()
	var reqBuf bytes.Buffer
	require.NoError(t, rpc.SendRequest(&reqBuf, 1, shvPath, method, writeParams))

	u := newUnpacker(reqBuf.Bytes())
	meta, ok, _ := rpc.ReadMessage(u)
	require.True(t, ok)

	var replyBuf bytes.Buffer
	require.NoError(t, tree.Dispatch(root, meta, u, &replyBuf))
	return replyBuf.Bytes()
}

func readResult(t *testing.T, reply []byte) chainpack.Item {
	t.Helper()
	u := newUnpacker(reply)
	_, ok, _ := rpc.ReadMessage(u)
	require.True(t, ok)

	item, ok := u.Next()
	require.True(t, ok)
	require.Equal(t, chainpack.KindIMap, item.Kind)

	key, ok := u.Next()
	require.True(t, ok)
	require.Equal(t, uint64(2), key.UInt) // result key

	val, ok := u.Next()
	require.True(t, ok)
	return val
}

func TestFindResolvesNestedPath(t *testing.T) {
	root := buildTree()
	assert.NotNil(t, tree.Find(root, "status"))
	assert.NotNil(t, tree.Find(root, ".app"))
	assert.Nil(t, tree.Find(root, "nope"))
	assert.Equal(t, root, tree.Find(root, ""))
}

func TestLsListsChildren(t *testing.T) {
	root := buildTree()
	reply := dispatchRequest(t, root, "", "ls", nil)
	val := readResult(t, reply)
	require.Equal(t, chainpack.KindList, val.Kind)

	u := newUnpacker(reply)
	rpc.ReadMessage(u)
	u.Next() // payload IMap
	u.Next() // key
	u.Next() // list open (already have val but re-decode stream cleanly)

	var names []string
	for {
		item, ok := u.Next()
		require.True(t, ok)
		if item.Kind == chainpack.KindContainerEnd {
			break
		}
		names = append(names, string(item.Bytes))
	}
	assert.ElementsMatch(t, []string{"status", ".app", ".device"}, names)
}

func TestDirListsMethodsIncludingBuiltins(t *testing.T) {
	root := buildTree()
	reply := dispatchRequest(t, root, "status", "dir", nil)
	val := readResult(t, reply)
	assert.Equal(t, chainpack.KindList, val.Kind)
}

func TestDispatchUnknownNodeRepliesMethodCallException(t *testing.T) {
	root := buildTree()
	reply := dispatchRequest(t, root, "missing", "ls", nil)

	u := newUnpacker(reply)
	rpc.ReadMessage(u)
	u.Next() // payload imap
	key, ok := u.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(3), key.UInt) // error key
}

func TestDispatchUnknownMethodRepliesMethodCallException(t *testing.T) {
	root := buildTree()
	reply := dispatchRequest(t, root, "status", "frobnicate", nil)

	u := newUnpacker(reply)
	rpc.ReadMessage(u)
	u.Next()
	key, ok := u.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(3), key.UInt)
}

func TestTypedValueGetSetRoundTrips(t *testing.T) {
	root := buildTree()

	setReply := dispatchRequest(t, root, "status", "set", func(c *chainpack.PackContext) {
		chainpack.PackUInt(c, 1)
		chainpack.PackDouble(c, 42.5)
	})
	setVal := readResult(t, setReply)
	assert.Equal(t, chainpack.KindDouble, setVal.Kind)
	assert.Equal(t, 42.5, setVal.Double)

	getReply := dispatchRequest(t, root, "status", "get", nil)
	getVal := readResult(t, getReply)
	assert.Equal(t, 42.5, getVal.Double)
}

func TestAppPingAndName(t *testing.T) {
	root := buildTree()

	pingReply := dispatchRequest(t, root, ".app", "ping", nil)
	pingVal := readResult(t, pingReply)
	assert.Equal(t, chainpack.KindNull, pingVal.Kind)

	nameReply := dispatchRequest(t, root, ".app", "name", nil)
	nameVal := readResult(t, nameReply)
	assert.Equal(t, "shvdevice", string(nameVal.Bytes))
}

func TestAppDateWithoutHookIsNotImplemented(t *testing.T) {
	root := buildTree()
	reply := dispatchRequest(t, root, ".app", "date", nil)

	u := newUnpacker(reply)
	rpc.ReadMessage(u)
	u.Next()
	key, ok := u.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(3), key.UInt)
}

func TestDeviceResetWithoutHookIsNotImplemented(t *testing.T) {
	root := buildTree()
	reply := dispatchRequest(t, root, ".device", "reset", nil)

	u := newUnpacker(reply)
	rpc.ReadMessage(u)
	u.Next()
	key, ok := u.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(3), key.UInt)
}

func TestDeviceResetRunsHookAfterReply(t *testing.T) {
	done := make(chan struct{})
	node := methods.NewDeviceNode(methods.DeviceInfo{
		Name: "demo",
		ResetHook: func() {
			close(done)
		},
	})
	children := tree.NewChildren()
	_ = children.Add(node)
	root := tree.NewNode("", tree.NewMethodTable(tree.BaseMethods()...), children)

	reply := dispatchRequest(t, root, ".device", "reset", nil)
	val := readResult(t, reply)
	assert.Equal(t, int64(0), val.Int)

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("reset hook was not invoked")
	}
}

func TestUnpackDataExtractsFirstNumericFromList(t *testing.T) {
	var buf bytes.Buffer
	c := chainpack.NewPackContext(chainpack.DefaultBufferSize, func(chunk []byte) error {
		buf.Write(chunk)
		return nil
	})
	chainpack.PackIMapBegin(c)
	chainpack.PackUInt(c, 1)
	chainpack.PackListBegin(c)
	chainpack.PackInt(c, 7)
	chainpack.PackString(c, "ignored")
	chainpack.PackContainerEnd(c)
	chainpack.PackContainerEnd(c)
	require.NoError(t, c.Finalize())

	u := newUnpacker(buf.Bytes())
	v, found, err := tree.UnpackData(u)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, float64(7), v)
}
