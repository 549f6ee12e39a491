package connection

import (
	"github.com/silicon-heaven/shvdevice-go/pkg/chainpack"
	"github.com/silicon-heaven/shvdevice-go/pkg/rpc"
	"github.com/silicon-heaven/shvdevice-go/pkg/transport"
)

// unpackerSession wraps a fresh Unpacker around one Transport connection's
// lifetime. Its underflow callback records whether the last refill failure
// came from a real Transport.Read error or from a clean peer close, since
// chainpack.Error alone doesn't carry that distinction - the pump loop
// needs it to choose between "reconnect" (clean EOF) and "terminate"
// (transport error).
type unpackerSession struct {
	u       *chainpack.Unpacker
	readErr error
}

func newUnpackerSession(t transport.Transport) *unpackerSession {
	s := &unpackerSession{}
	ctx := chainpack.NewUnpackContext(rpc.PackBufferSize, func(buf []byte) (int, error) {
		n, err := t.Read(buf)
		if err != nil {
			s.readErr = err
		}
		return n, err
	})
	s.u = chainpack.NewUnpacker(ctx)
	return s
}
