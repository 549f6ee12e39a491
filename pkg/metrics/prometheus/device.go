// Package prometheus implements pkg/metrics.DeviceMetrics on top of
// github.com/prometheus/client_golang.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/silicon-heaven/shvdevice-go/pkg/metrics"
)

type deviceMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	reconnectAttempt prometheus.Counter
	connectedTotal   prometheus.Counter
	disconnectTotal  prometheus.Counter
	connectionState  *prometheus.GaugeVec
	transportBytes   *prometheus.CounterVec
	fileBytes        *prometheus.CounterVec
}

// NewDeviceMetrics creates a Prometheus-backed metrics.DeviceMetrics.
// Returns nil if metrics are not enabled (metrics.InitRegistry not called),
// so callers can pass the result straight through without branching.
func NewDeviceMetrics() metrics.DeviceMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()
	return &deviceMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "shvdevice_requests_total",
				Help: "Total number of dispatched method calls by path, method, and error code.",
			},
			[]string{"shv_path", "method", "error_code"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shvdevice_request_duration_milliseconds",
				Help:    "Duration of dispatched method calls in milliseconds.",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
			},
			[]string{"shv_path", "method"},
		),
		reconnectAttempt: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "shvdevice_reconnect_attempts_total",
				Help: "Total number of reconnect attempts.",
			},
		),
		connectedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "shvdevice_connected_total",
				Help: "Total number of successful broker handshakes.",
			},
		),
		disconnectTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "shvdevice_disconnected_total",
				Help: "Total number of broker disconnects.",
			},
		),
		connectionState: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shvdevice_connection_state",
				Help: "1 for the connection's current lifecycle state, 0 for every other state.",
			},
			[]string{"state"},
		),
		transportBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "shvdevice_transport_bytes_total",
				Help: "Total bytes moved across the broker transport, by direction.",
			},
			[]string{"direction"},
		),
		fileBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "shvdevice_file_bytes_total",
				Help: "Total bytes moved through file node write/read handlers, by operation.",
			},
			[]string{"operation"},
		),
	}
}

func (m *deviceMetrics) RecordRequest(shvPath, method string, duration time.Duration, errorCode string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(shvPath, method, errorCode).Inc()
	m.requestDuration.WithLabelValues(shvPath, method).Observe(duration.Seconds() * 1000)
}

func (m *deviceMetrics) RecordReconnectAttempt() {
	if m == nil {
		return
	}
	m.reconnectAttempt.Inc()
}

func (m *deviceMetrics) RecordConnected() {
	if m == nil {
		return
	}
	m.connectedTotal.Inc()
}

func (m *deviceMetrics) RecordDisconnected() {
	if m == nil {
		return
	}
	m.disconnectTotal.Inc()
}

// connectionStates lists every value connection.State.String can produce,
// so SetConnectionState can zero out the states the connection just left.
var connectionStates = []string{
	"NotInit", "InitButNoConn", "Connected", "Terminated",
}

func (m *deviceMetrics) SetConnectionState(state string) {
	if m == nil {
		return
	}
	for _, s := range connectionStates {
		if s == state {
			m.connectionState.WithLabelValues(s).Set(1)
		} else {
			m.connectionState.WithLabelValues(s).Set(0)
		}
	}
}

func (m *deviceMetrics) RecordBytesTransferred(direction string, bytes uint64) {
	if m == nil {
		return
	}
	m.transportBytes.WithLabelValues(direction).Add(float64(bytes))
}

func (m *deviceMetrics) RecordFileBytes(operation string, bytes uint64) {
	if m == nil {
		return
	}
	m.fileBytes.WithLabelValues(operation).Add(float64(bytes))
}
