package instrument

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/berfenger/goodwe2prom/pkg/aa55"
	"github.com/berfenger/goodwe2prom/pkg/goodwe"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const NAMESPACE = "goodwe_exporter"

const (
	REASON_CHECKSUM       = "checksum"
	REASON_HEADER         = "header"
	REASON_COMMAND_FAILED = "command_failed"
	REASON_PAYLOAD_LENGTH = "payload_length"
	REASON_OUT_OF_BOUNDS  = "out_of_bounds"
	REASON_TIMEOUT        = "timeout"
	REASON_NETWORK        = "network"
	REASON_OTHER          = "other"
)

// Metrics is the exporter's own instrumentation, kept apart from the inverter
// values so it can be served on its own endpoint.
type Metrics struct {
	registry       *prometheus.Registry
	exchangeTime   *prometheus.HistogramVec
	readErrors     *prometheus.CounterVec
	decodedMetrics *prometheus.GaugeVec
	lastSuccess    *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		exchangeTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: NAMESPACE,
			Name:      "exchange_duration_seconds",
			Help:      "Duration of request/response exchanges with the inverter.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"fn"}),
		readErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "read_errors_total",
			Help:      "Failed metric set reads by reason.",
		}, []string{"set", "reason"}),
		decodedMetrics: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: NAMESPACE,
			Name:      "decoded_metrics",
			Help:      "Metrics holding a value after the last read of a set.",
		}, []string{"set"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: NAMESPACE,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last error free read of a set.",
		}, []string{"set"}),
	}
	m.registry.MustRegister(
		m.exchangeTime,
		m.readErrors,
		m.decodedMetrics,
		m.lastSuccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Instrument feeds reader exchange timings into the histogram.
func (m *Metrics) Instrument() *goodwe.Instrument {
	return &goodwe.Instrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			m.exchangeTime.WithLabelValues(fnName).Observe(readTime.Seconds())
		},
	}
}

func (m *Metrics) ObserveRead(set *goodwe.MetricSet, err error) {
	m.decodedMetrics.WithLabelValues(set.Name).Set(float64(set.Decoded()))
	if err != nil {
		m.readErrors.WithLabelValues(set.Name, ErrorReason(err)).Inc()
		return
	}
	m.lastSuccess.WithLabelValues(set.Name).SetToCurrentTime()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ErrorReason maps a read error to a low cardinality label value.
func ErrorReason(err error) string {
	var netErr *goodwe.NetworkError
	switch {
	case errors.Is(err, aa55.ErrChecksumMismatch):
		return REASON_CHECKSUM
	case errors.Is(err, aa55.ErrInvalidHeader):
		return REASON_HEADER
	case errors.Is(err, aa55.ErrCommandFailed):
		return REASON_COMMAND_FAILED
	case errors.Is(err, aa55.ErrPayloadLength):
		return REASON_PAYLOAD_LENGTH
	case errors.Is(err, goodwe.ErrOutOfBounds):
		return REASON_OUT_OF_BOUNDS
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return REASON_TIMEOUT
		}
		return REASON_NETWORK
	case errors.Is(err, context.DeadlineExceeded):
		return REASON_TIMEOUT
	default:
		return REASON_OTHER
	}
}
