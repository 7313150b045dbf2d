package interceptors

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/samvad-hq/retrofit-go/pkg/retrofit"
)

// Metrics holds the Prometheus collectors updated by MetricsInterceptor.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil
// registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "retrofit",
				Name:      "requests_total",
				Help:      "Total number of calls by endpoint, method and status",
			},
			[]string{"endpoint", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "retrofit",
				Name:      "request_duration_seconds",
				Help:      "Call latency histogram",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
			},
			[]string{"endpoint", "method"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "retrofit",
				Name:      "requests_in_flight",
				Help:      "Current number of calls being processed",
			},
		),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.RequestsTotal, m.RequestDuration, m.RequestsInFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MetricsInterceptor observes every call passing through it. Failed calls
// are counted with status "error".
type MetricsInterceptor struct {
	metrics *Metrics
}

func NewMetricsInterceptor(m *Metrics) *MetricsInterceptor {
	return &MetricsInterceptor{metrics: m}
}

func (m *MetricsInterceptor) Intercept(chain retrofit.Chain) (*retrofit.Response, error) {
	req := chain.Request()
	endpoint := endpointName(chain)
	method := req.Method.String()

	m.metrics.RequestsInFlight.Inc()
	defer m.metrics.RequestsInFlight.Dec()

	start := time.Now()
	resp, err := chain.Proceed(req)
	m.metrics.RequestDuration.WithLabelValues(endpoint, method).Observe(time.Since(start).Seconds())

	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	m.metrics.RequestsTotal.WithLabelValues(endpoint, method, status).Inc()
	return resp, err
}
