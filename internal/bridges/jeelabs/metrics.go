package jeelabs

import "github.com/prometheus/client_golang/prometheus"

// Frame results for jeelabs_frames_total.
const (
	resultDecoded     = "decoded"
	resultFormatError = "format_error"
	resultUnsupported = "unsupported"
)

// Line discard reasons for jeelabs_lines_discarded_total.
const (
	reasonNoMarker = "no_marker"
	reasonOverflow = "overflow"
)

// Metrics holds the bridge's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	FramesTotal       *prometheus.CounterVec // labels: result=decoded|format_error|unsupported
	LinesDiscarded    *prometheus.CounterVec // labels: reason=no_marker|overflow
	ReadingsPublished prometheus.Counter
	PublishErrors     prometheus.Counter
	PublishDropped    prometheus.Counter
	SerialConnected   prometheus.Gauge
	SerialReconnects  prometheus.Counter
}

// NewMetrics creates the bridge collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jeelabs_frames_total",
			Help: "Frames received from the JeeLink by decode result.",
		}, []string{"result"}),
		LinesDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jeelabs_lines_discarded_total",
			Help: "Serial lines discarded before decoding.",
		}, []string{"reason"}),
		ReadingsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jeelabs_readings_published_total",
			Help: "Readings published to MQTT.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jeelabs_publish_errors_total",
			Help: "Readings whose publish failed.",
		}),
		PublishDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jeelabs_publish_dropped_total",
			Help: "Readings dropped because the publish queue was full.",
		}),
		SerialConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jeelabs_serial_connected",
			Help: "1 while the serial port is open.",
		}),
		SerialReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jeelabs_serial_reconnects_total",
			Help: "Successful serial port reopens after a failure.",
		}),
	}
	reg.MustRegister(m.FramesTotal, m.LinesDiscarded, m.ReadingsPublished, m.PublishErrors,
		m.PublishDropped, m.SerialConnected, m.SerialReconnects)
	return m
}

func (m *Metrics) frame(result string) {
	if m != nil {
		m.FramesTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) discarded(reason string, n uint64) {
	if m != nil && n > 0 {
		m.LinesDiscarded.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) published() {
	if m != nil {
		m.ReadingsPublished.Inc()
	}
}

func (m *Metrics) publishFailed() {
	if m != nil {
		m.PublishErrors.Inc()
	}
}

func (m *Metrics) dropped() {
	if m != nil {
		m.PublishDropped.Inc()
	}
}

func (m *Metrics) serialState(connected, reconnect bool) {
	if m == nil {
		return
	}
	if connected {
		m.SerialConnected.Set(1)
	} else {
		m.SerialConnected.Set(0)
	}
	if reconnect {
		m.SerialReconnects.Inc()
	}
}
