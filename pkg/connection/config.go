package connection

import "time"

// Config holds the handshake, timeout and reconnect parameters a
// Connection is built from. Zero-valued fields are filled in by their
// documented default when passed to New.
type Config struct {
	// User and Password authenticate the PLAIN login. Both are required:
	// if either is empty the handshake fails and the worker terminates
	// with ErrLogin.
	User     string
	Password string

	// DeviceID identifies this device to the broker. Defaults to "pysim".
	DeviceID string
	// MountPoint is where the broker grafts this device's tree. Defaults
	// to "test/pysim".
	MountPoint string

	// IdleWatchDogTimeOut is reported to the broker as the login option
	// of the same name, in seconds. Defaults to 360.
	IdleWatchDogTimeOut int

	// PingPeriod is the pump loop's half-period: dataready is polled
	// every PingPeriod/2, and a ping is sent whenever it times out.
	// Defaults to 60s, matching the broker's idle watchdog expectations.
	PingPeriod time.Duration

	// ReconnectPeriod is slept between a failed init or a clean EOF and
	// the next connection attempt. Defaults to 5s.
	ReconnectPeriod time.Duration
	// ReconnectRetries bounds the number of reconnect attempts. <= 0
	// means unlimited. Defaults to 0 (unlimited).
	ReconnectRetries int
}

const (
	defaultDeviceID            = "pysim"
	defaultMountPoint          = "test/pysim"
	defaultIdleWatchDogTimeOut = 360
	defaultPingPeriod          = 60 * time.Second
	defaultReconnectPeriod     = 5 * time.Second
)

func (c Config) withDefaults() Config {
	if c.DeviceID == "" {
		c.DeviceID = defaultDeviceID
	}
	if c.MountPoint == "" {
		c.MountPoint = defaultMountPoint
	}
	if c.IdleWatchDogTimeOut == 0 {
		c.IdleWatchDogTimeOut = defaultIdleWatchDogTimeOut
	}
	if c.PingPeriod == 0 {
		c.PingPeriod = defaultPingPeriod
	}
	if c.ReconnectPeriod == 0 {
		c.ReconnectPeriod = defaultReconnectPeriod
	}
	return c
}
