package connection

import (
	"github.com/silicon-heaven/shvdevice-go/pkg/metrics"
	"github.com/silicon-heaven/shvdevice-go/pkg/transport"
)

// meteredTransport wraps a Transport, reporting every byte moved through
// Read/Write to a DeviceMetrics. Init/Close/DataReady pass straight through
// via the embedded Transport. Used only when a Connection is built with
// WithMetrics, so an uninstrumented connection pays no overhead.
type meteredTransport struct {
	transport.Transport
	metrics metrics.DeviceMetrics
}

func newMeteredTransport(t transport.Transport, m metrics.DeviceMetrics) transport.Transport {
	return &meteredTransport{Transport: t, metrics: m}
}

func (m *meteredTransport) Read(buf []byte) (int, error) {
	n, err := m.Transport.Read(buf)
	if n > 0 {
		m.metrics.RecordBytesTransferred("read", uint64(n))
	}
	return n, err
}

func (m *meteredTransport) Write(p []byte) (int, error) {
	n, err := m.Transport.Write(p)
	if n > 0 {
		m.metrics.RecordBytesTransferred("write", uint64(n))
	}
	return n, err
}
