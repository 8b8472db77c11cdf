package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"texttoaudio/pkg/slg"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

const defaultPushInterval = 10 * time.Second

// PushLoop sends the registry to influx every interval until ctx is done.
func PushLoop(ctx context.Context, interval time.Duration, reg prometheus.Gatherer, influxWriter slg.PointWriter, logger *slog.Logger) {
	if interval <= 0 {
		interval = defaultPushInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			GatherAndSendMetrics(ctx, reg, influxWriter, logger)
		}
	}
}

func GatherAndSendMetrics(ctx context.Context, reg prometheus.Gatherer, influxWriter slg.PointWriter, logger *slog.Logger) {
	families, err := reg.Gather()
	if err != nil {
		logger.Error("Error gathering metrics", "err", err)
		return
	}

	now := time.Now()

	for _, m := range families {
		for _, metric := range m.GetMetric() {
			select {
			case <-ctx.Done():
				logger.Debug("Context canceled, stopping metric processing")
				return
			default:
			}

			labels := make(map[string]string, len(metric.GetLabel()))
			for _, label := range metric.GetLabel() {
				labels[label.GetName()] = label.GetValue()
			}

			switch m.GetType() {
			case io_prometheus_client.MetricType_COUNTER:
				influxWriter.WritePoint(influxdb2.NewPoint(m.GetName(), labels,
					map[string]interface{}{"value": metric.GetCounter().GetValue()}, now))
			case io_prometheus_client.MetricType_GAUGE:
				influxWriter.WritePoint(influxdb2.NewPoint(m.GetName(), labels,
					map[string]interface{}{"value": metric.GetGauge().GetValue()}, now))
			case io_prometheus_client.MetricType_UNTYPED:
				influxWriter.WritePoint(influxdb2.NewPoint(m.GetName(), labels,
					map[string]interface{}{"value": metric.GetUntyped().GetValue()}, now))
			case io_prometheus_client.MetricType_HISTOGRAM, io_prometheus_client.MetricType_GAUGE_HISTOGRAM:
				hist := metric.GetHistogram()
				for _, bucket := range hist.GetBucket() {
					bucketLabels := make(map[string]string, len(labels)+1)
					for k, v := range labels {
						bucketLabels[k] = v
					}
					bucketLabels["le"] = fmt.Sprintf("%f", bucket.GetUpperBound())

					influxWriter.WritePoint(influxdb2.NewPoint(m.GetName()+"_bucket", bucketLabels,
						map[string]interface{}{"count": bucket.GetCumulativeCount()}, now))
				}
				influxWriter.WritePoint(influxdb2.NewPoint(m.GetName()+"_sum", labels,
					map[string]interface{}{"value": hist.GetSampleSum()}, now))
				influxWriter.WritePoint(influxdb2.NewPoint(m.GetName()+"_count", labels,
					map[string]interface{}{"value": hist.GetSampleCount()}, now))
			case io_prometheus_client.MetricType_SUMMARY:
				summary := metric.GetSummary()
				influxWriter.WritePoint(influxdb2.NewPoint(m.GetName()+"_sum", labels,
					map[string]interface{}{"value": summary.GetSampleSum()}, now))
				influxWriter.WritePoint(influxdb2.NewPoint(m.GetName()+"_count", labels,
					map[string]interface{}{"value": summary.GetSampleCount()}, now))
			default:
				logger.Error("Unsupported metric type", "err", m.GetType().String())
			}
		}
	}
}
