package connection

import (
	"errors"

	"github.com/silicon-heaven/shvdevice-go/pkg/chainpack"
	"github.com/silicon-heaven/shvdevice-go/pkg/rpc"
)

var errMissingCredentials = errors.New("connection: user and password are required for login")

const (
	helloRid = 1
	loginRid = 2
	firstRid = 3
)

// handshake runs hello then login over an already-Init'd transport,
// discarding both replies: this library doesn't inspect the broker's
// capability list or login result, it only needs hello/login to have
// round-tripped without the peer tearing the connection down. On success
// c.rid is set to the first ping rid.
func (c *Connection) handshake(sess *unpackerSession) error {
	if c.cfg.User == "" || c.cfg.Password == "" {
		return errMissingCredentials
	}

	if err := rpc.SendRequest(c.transport, helloRid, "", "hello", nil); err != nil {
		return err
	}
	if _, ok, _ := rpc.ReadMessage(sess.u); !ok {
		return sess.u.Err()
	}
	if !rpc.DrainPayload(sess.u) {
		return sess.u.Err()
	}

	if err := rpc.SendRequest(c.transport, loginRid, "", "login", c.packLogin); err != nil {
		return err
	}
	if _, ok, _ := rpc.ReadMessage(sess.u); !ok {
		return sess.u.Err()
	}
	if !rpc.DrainPayload(sess.u) {
		return sess.u.Err()
	}

	c.rid = firstRid
	return nil
}

// packLogin writes the login payload IMap's single entry: key 1 maps to a
// Map carrying the "login" credentials sub-map and the "options" sub-map
// (device identity and idle watchdog timeout).
func (c *Connection) packLogin(p *chainpack.PackContext) {
	chainpack.PackUInt(p, 1)
	chainpack.PackMapBegin(p)

	chainpack.PackString(p, "login")
	chainpack.PackMapBegin(p)
	chainpack.PackString(p, "password")
	chainpack.PackString(p, c.cfg.Password)
	chainpack.PackString(p, "type")
	chainpack.PackString(p, "PLAIN")
	chainpack.PackString(p, "user")
	chainpack.PackString(p, c.cfg.User)
	chainpack.PackContainerEnd(p)

	chainpack.PackString(p, "options")
	chainpack.PackMapBegin(p)
	chainpack.PackString(p, "device")
	chainpack.PackMapBegin(p)
	chainpack.PackString(p, "deviceId")
	chainpack.PackString(p, c.cfg.DeviceID)
	chainpack.PackString(p, "mountPoint")
	chainpack.PackString(p, c.cfg.MountPoint)
	chainpack.PackContainerEnd(p)
	chainpack.PackString(p, "idleWatchDogTimeOut")
	chainpack.PackInt(p, int64(c.cfg.IdleWatchDogTimeOut))
	chainpack.PackContainerEnd(p)

	chainpack.PackContainerEnd(p)
}
