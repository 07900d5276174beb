package metrics

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"emperror.dev/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

type prometheusClient struct {
	registry        *prometheus.Registry
	reqCnt          *prometheus.CounterVec
	reqDur          *prometheus.SummaryVec
	transportErrors *prometheus.CounterVec
	normalizeErrors *prometheus.CounterVec
	queueSize       prometheus.Gauge
}

func (cl *prometheusClient) ObserveRequest(method, host string, statusCode int, elapsed time.Duration) {
	status := strconv.Itoa(statusCode)
	cl.reqCnt.WithLabelValues(status, method, host).Inc()
	cl.reqDur.WithLabelValues(status, method, host).Observe(elapsed.Seconds())
}

func (cl *prometheusClient) IncTransportErrors(method, host string) {
	cl.transportErrors.WithLabelValues(method, host).Inc()
}

func (cl *prometheusClient) IncNormalizeErrors(reason string) {
	cl.normalizeErrors.WithLabelValues(reason).Inc()
}

func (cl *prometheusClient) SetQueueSize(size int) {
	cl.queueSize.Set(float64(size))
}

// GetExposeHandler Get handler to expose metrics of this client only.
func (cl *prometheusClient) GetExposeHandler() http.Handler {
	return promhttp.HandlerFor(cl.registry, promhttp.HandlerOpts{})
}

func (cl *prometheusClient) WriteText(w io.Writer) error {
	families, err := cl.registry.Gather()
	if err != nil {
		return errors.WithStack(err)
	}

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (cl *prometheusClient) register() {
	cl.registry = prometheus.NewRegistry()

	cl.reqCnt = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckreq_requests_total",
			Help: "How many requests got a response ?",
		},
		[]string{"status_code", "method", "host"},
	)
	cl.registry.MustRegister(cl.reqCnt)

	cl.reqDur = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "duckreq_request_duration_seconds",
			Help: "The request latencies in seconds.",
		},
		[]string{"status_code", "method", "host"},
	)
	cl.registry.MustRegister(cl.reqDur)

	cl.transportErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckreq_transport_errors_total",
			Help: "How many requests failed before a response ?",
		},
		[]string{"method", "host"},
	)
	cl.registry.MustRegister(cl.transportErrors)

	cl.normalizeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckreq_normalize_errors_total",
			Help: "How many request descriptors have been rejected ?",
		},
		[]string{"reason"},
	)
	cl.registry.MustRegister(cl.normalizeErrors)

	cl.queueSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "duckreq_queue_size",
			Help: "Descriptors waiting in the engine queue.",
		},
	)
	cl.registry.MustRegister(cl.queueSize)
}
