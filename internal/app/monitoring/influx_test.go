package monitoring_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"texttoaudio/internal/app/monitoring"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

type pointRecorder struct {
	mu     sync.Mutex
	points []*write.Point
}

func (r *pointRecorder) WritePoint(point *write.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.points = append(r.points, point)
}

func (r *pointRecorder) names() []string {
	out := make([]string, 0, len(r.points))
	for _, p := range r.points {
		out = append(out, p.Name())
	}

	return out
}

func TestGatherAndSendMetrics(t *testing.T) {
	assert := assert.New(t)

	reg := prometheus.NewRegistry()

	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "inference_errors_total"}, []string{"err_code"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "inference_request_seconds", Buckets: []float64{1, 5}})
	reg.MustRegister(errorsTotal, latency)

	errorsTotal.WithLabelValues("503").Add(2)
	latency.Observe(0.5)

	recorder := &pointRecorder{}
	monitoring.GatherAndSendMetrics(context.Background(), reg, recorder, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.ElementsMatch([]string{
		"inference_errors_total",
		"inference_request_seconds_bucket",
		"inference_request_seconds_bucket",
		"inference_request_seconds_sum",
		"inference_request_seconds_count",
	}, recorder.names())

	counter := recorder.points[0]
	assert.Equal("inference_errors_total", counter.Name())
	assert.Equal("err_code", counter.TagList()[0].Key)
	assert.Equal("503", counter.TagList()[0].Value)
	assert.Equal(2.0, counter.FieldList()[0].Value)
}

func TestGatherStopsOnCanceledContext(t *testing.T) {
	reg := prometheus.NewRegistry()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "in_flight"})
	reg.MustRegister(gauge)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	recorder := &pointRecorder{}
	monitoring.GatherAndSendMetrics(ctx, reg, recorder, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Empty(t, recorder.points)
}
