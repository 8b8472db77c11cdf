package api

import (
	"net/http"
	"strconv"
	"time"

	appmetrics "texttoaudio/pkg/metrics"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Requests    *prometheus.CounterVec
	RequestTime *prometheus.HistogramVec
}

var metrics = &Metrics{
	Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "api",
		Name:      "requests_total",
	}, []string{"route", "code"}),
	RequestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "api",
		Name:      "request_seconds",
		Buckets:   appmetrics.RequestSecondsBuckets,
	}, []string{"route"}),
}

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(metrics.Requests)
	reg.MustRegister(metrics.RequestTime)
}

func instrument(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			metrics.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
			metrics.RequestTime.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}
