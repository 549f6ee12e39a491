package file_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/silicon-heaven/shvdevice-go/pkg/chainpack"
	"github.com/silicon-heaven/shvdevice-go/pkg/file"
	"github.com/silicon-heaven/shvdevice-go/pkg/rpc"
	"github.com/silicon-heaven/shvdevice-go/pkg/tree"
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

// replyPayloadKey returns the single key/value pair of a reply's payload
// IMap (2=result or 3=error) and the unpacker positioned right after the
// value, for tests that need to read further into it.
func replyPayloadKey(t *testing.T, reply []byte) (uint64, chainpack.Item, *chainpack.Unpacker) {
	t.Helper()
	u := newUnpacker(reply)
	_, ok, _ := rpc.ReadMessage(u)
	require.True(t, ok)
	item, ok := u.Next()
	require.True(t, ok)
	require.Equal(t, chainpack.KindIMap, item.Kind)
	key, ok := u.Next()
	require.True(t, ok)
	val, ok := u.Next()
	require.True(t, ok)
	return key.UInt, val, u
}

func writeParams(offset int64, data []byte) func(c *chainpack.PackContext) {
	return func(c *chainpack.PackContext) {
		chainpack.PackUInt(c, 1)
		chainpack.PackListBegin(c)
		chainpack.PackInt(c, offset)
		chainpack.PackBlob(c, data)
		chainpack.PackContainerEnd(c)
	}
}

func readParams(offset, size int64) func(c *chainpack.PackContext) {
	return func(c *chainpack.PackContext) {
		chainpack.PackUInt(c, 1)
		chainpack.PackListBegin(c)
		chainpack.PackInt(c, offset)
		chainpack.PackInt(c, size)
		chainpack.PackContainerEnd(c)
	}
}

func crcParams(vals ...int64) func(c *chainpack.PackContext) {
	return func(c *chainpack.PackContext) {
		if len(vals) > 0 {
			chainpack.PackUInt(c, 1)
			chainpack.PackListBegin(c)
			for _, v := range vals {
				chainpack.PackInt(c, v)
			}
			chainpack.PackContainerEnd(c)
		}
	}
}

func buildFileTree(ops *file.MemOps, maxSize, pageSize int64) *tree.Node {
	f := file.New("data", ops, maxSize, pageSize)
	children := tree.NewChildren()
	_ = children.Add(f)
	return tree.NewNode("", tree.NewMethodTable(tree.BaseMethods()...), children)
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	ops := file.NewMemOps(64)
	root := buildFileTree(ops, 64, 16)

	reply := dispatchRequest(t, root, "data", "write", writeParams(0, []byte("hello")))
	key, _, _ := replyPayloadKey(t, reply)
	require.Equal(t, uint64(2), key)
	assert.Equal(t, []byte("hello"), ops.Bytes())

	readReply := dispatchRequest(t, root, "data", "read", readParams(0, 5))
	rkey, rval, _ := replyPayloadKey(t, readReply)
	require.Equal(t, uint64(2), rkey)
	require.Equal(t, chainpack.KindBlob, rval.Kind)
	assert.Equal(t, []byte("hello"), rval.Bytes)
}

func TestWriteClampsAtMaxSize(t *testing.T) {
	ops := file.NewMemOps(10)
	root := buildFileTree(ops, 10, 4)

	reply := dispatchRequest(t, root, "data", "write", writeParams(5, []byte("0123456789")))
	key, _, _ := replyPayloadKey(t, reply)
	assert.Equal(t, uint64(2), key) // still success, just truncated
	assert.Equal(t, 10, len(ops.Bytes()))
	assert.Equal(t, []byte("01234"), ops.Bytes()[5:10])
}

func TestWriteAtOrPastMaxSizeIsNoOp(t *testing.T) {
	ops := file.NewMemOps(10)
	root := buildFileTree(ops, 10, 4)

	reply := dispatchRequest(t, root, "data", "write", writeParams(10, []byte("ignored")))
	key, _, _ := replyPayloadKey(t, reply)
	assert.Equal(t, uint64(2), key)
	assert.Equal(t, 0, len(ops.Bytes()))
}

func TestStatReportsFixedSchema(t *testing.T) {
	ops := file.NewMemOps(100)
	root := buildFileTree(ops, 100, 16)

	reply := dispatchRequest(t, root, "data", "stat", nil)
	_, val, u := replyPayloadKey(t, reply)
	require.Equal(t, chainpack.KindIMap, val.Kind)

	got := map[int64]int64{}
	for {
		keyItem, ok := u.Next()
		require.True(t, ok)
		if keyItem.Kind == chainpack.KindContainerEnd {
			break
		}
		valItem, ok := u.Next()
		require.True(t, ok)
		got[keyItem.Int] = valItem.Int
	}
	assert.Equal(t, int64(1), got[0])   // FN_TYPE == REGULAR
	assert.Equal(t, int64(100), got[1]) // FN_SIZE
	assert.Equal(t, int64(16), got[2])  // FN_PAGESIZE
	assert.Equal(t, int64(64), got[3])  // FN_MAXWRITE == 4*pagesize
}

func TestSizeReturnsMaxSize(t *testing.T) {
	ops := file.NewMemOps(12345)
	root := buildFileTree(ops, 12345, 16)

	reply := dispatchRequest(t, root, "data", "size", nil)
	key, val, _ := replyPayloadKey(t, reply)
	assert.Equal(t, uint64(2), key)
	assert.Equal(t, chainpack.KindUInt, val.Kind)
	assert.Equal(t, uint64(12345), val.UInt)
}

func TestCRCFixedVectorOverWholeFile(t *testing.T) {
	ops := file.NewMemOps(9)
	root := buildFileTree(ops, 9, 4)
	dispatchRequest(t, root, "data", "write", writeParams(0, []byte("123456789")))

	reply := dispatchRequest(t, root, "data", "crc", crcParams())
	key, val, _ := replyPayloadKey(t, reply)
	assert.Equal(t, uint64(2), key)
	assert.Equal(t, uint64(0xCBF43926), val.UInt)
}

func TestCRCWithOffsetOnly(t *testing.T) {
	ops := file.NewMemOps(20)
	root := buildFileTree(ops, 20, 4)
	dispatchRequest(t, root, "data", "write", writeParams(0, []byte("xxxxx123456789")))

	reply := dispatchRequest(t, root, "data", "crc", crcParams(5))
	key, val, _ := replyPayloadKey(t, reply)
	assert.Equal(t, uint64(2), key)
	assert.Equal(t, uint64(0xCBF43926), val.UInt)
}

func TestCRCWithOffsetAndSize(t *testing.T) {
	ops := file.NewMemOps(20)
	root := buildFileTree(ops, 20, 4)
	dispatchRequest(t, root, "data", "write", writeParams(0, []byte("123456789garbage")))

	reply := dispatchRequest(t, root, "data", "crc", crcParams(0, 9))
	key, val, _ := replyPayloadKey(t, reply)
	assert.Equal(t, uint64(2), key)
	assert.Equal(t, uint64(0xCBF43926), val.UInt)
}

func TestWriteMalformedParamsRepliesInvalidParams(t *testing.T) {
	ops := file.NewMemOps(10)
	root := buildFileTree(ops, 10, 4)

	reply := dispatchRequest(t, root, "data", "write", func(c *chainpack.PackContext) {
		chainpack.PackUInt(c, 1)
		chainpack.PackString(c, "not a list")
	})
	key, _, _ := replyPayloadKey(t, reply)
	require.Equal(t, uint64(3), key)
}

// dispatchTwo sends two requests back-to-back on one persistent unpacker,
// the way pkg/connection's pump reuses a single Unpacker for the life of a
// connection, and returns both replies. A handler that fails to drain every
// container it opened on a malformed first request leaves the unpacker
// desynced, corrupting everything dispatchTwo reads for the second.
func dispatchTwo(t *testing.T, root *tree.Node, shvPath, method string, firstParams, secondParams func(c *chainpack.PackContext)) (first, second []byte) {
	t.Helper()
	var stream bytes.Buffer
	require.NoError(t, rpc.SendRequest(&stream, 1, shvPath, method, firstParams))
	require.NoError(t, rpc.SendRequest(&stream, 2, shvPath, method, secondParams))

	u := newUnpacker(stream.Bytes())

	meta1, ok, _ := rpc.ReadMessage(u)
	require.True(t, ok)
	var reply1 bytes.Buffer
	require.NoError(t, tree.Dispatch(root, meta1, u, &reply1))

	meta2, ok, _ := rpc.ReadMessage(u)
	require.True(t, ok)
	var reply2 bytes.Buffer
	require.NoError(t, tree.Dispatch(root, meta2, u, &reply2))

	return reply1.Bytes(), reply2.Bytes()
}

func TestMalformedWriteDoesNotDesyncSubsequentRequests(t *testing.T) {
	ops := file.NewMemOps(10)
	root := buildFileTree(ops, 10, 4)

	garbled := func(c *chainpack.PackContext) {
		chainpack.PackUInt(c, 1)
		chainpack.PackString(c, "not a list")
	}
	reply1, reply2 := dispatchTwo(t, root, "data", "write", garbled, writeParams(0, []byte("hello")))

	key1, _, _ := replyPayloadKey(t, reply1)
	require.Equal(t, uint64(3), key1)

	key2, _, _ := replyPayloadKey(t, reply2)
	require.Equal(t, uint64(2), key2)
	assert.Equal(t, []byte("hello"), ops.Bytes())
}

func TestMalformedCRCDoesNotDesyncSubsequentRequests(t *testing.T) {
	ops := file.NewMemOps(9)
	root := buildFileTree(ops, 9, 4)
	dispatchRequest(t, root, "data", "write", writeParams(0, []byte("123456789")))

	garbled := func(c *chainpack.PackContext) {
		chainpack.PackUInt(c, 1)
		chainpack.PackString(c, "not a list")
	}
	reply1, reply2 := dispatchTwo(t, root, "data", "crc", garbled, crcParams())

	key1, _, _ := replyPayloadKey(t, reply1)
	require.Equal(t, uint64(3), key1)

	key2, val2, _ := replyPayloadKey(t, reply2)
	require.Equal(t, uint64(2), key2)
	assert.Equal(t, uint64(0xCBF43926), val2.UInt)
}

func TestMalformedReadDoesNotDesyncSubsequentRequests(t *testing.T) {
	ops := file.NewMemOps(10)
	root := buildFileTree(ops, 10, 4)
	dispatchRequest(t, root, "data", "write", writeParams(0, []byte("hello")))

	garbled := func(c *chainpack.PackContext) {
		chainpack.PackUInt(c, 1)
		chainpack.PackString(c, "not a list")
	}
	reply1, reply2 := dispatchTwo(t, root, "data", "read", garbled, readParams(0, 5))

	key1, _, _ := replyPayloadKey(t, reply1)
	require.Equal(t, uint64(3), key1)

	key2, val2, _ := replyPayloadKey(t, reply2)
	require.Equal(t, uint64(2), key2)
	require.Equal(t, chainpack.KindBlob, val2.Kind)
	assert.Equal(t, []byte("hello"), val2.Bytes)
}
