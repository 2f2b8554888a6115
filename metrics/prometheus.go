package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	histogram *prometheus.HistogramVec
}

func NewPrometheusRecorder() Recorder {
	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stabuse",
			Name:      "events_total",
			Help:      "payment engine event counters",
		},
		[]string{"type", "network"},
	)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stabuse",
			Name:      "latency_seconds",
			Help:      "payment engine operation latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "network"},
	)

	prometheus.MustRegister(counters, histogram)

	return &PrometheusRecorder{
		counters:  counters,
		histogram: histogram,
	}
}

func (p *PrometheusRecorder) IncCounter(name string, labels map[string]string) {
	p.counters.With(prometheus.Labels{
		"type":    name,
		"network": labels["network"],
	}).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	p.histogram.With(prometheus.Labels{
		"operation": name,
		"network":   labels["network"],
	}).Observe(d.Seconds())
}
