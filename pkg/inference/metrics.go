package inference

import (
	appmetrics "texttoaudio/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	QueryTime prometheus.Histogram
	Errors    *prometheus.CounterVec
}

var metrics = &Metrics{
	QueryTime: prometheus.NewHistogram(prometheus.HistogramOpts{
		Subsystem: "inference",
		Name:      "request_seconds",
		Buckets:   appmetrics.RequestSecondsBuckets,
	}),
	Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "inference",
		Name:      "errors_total",
	}, []string{"err_code"}),
}

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(metrics.QueryTime)
	reg.MustRegister(metrics.Errors)
}
