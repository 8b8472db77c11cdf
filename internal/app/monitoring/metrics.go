package monitoring

import (
	"time"

	"texttoaudio/internal/app/api"
	"texttoaudio/pkg/inference"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type InfluxConfig struct {
	URL          string        `yaml:"url"`
	Token        string        `yaml:"token"`
	Org          string        `yaml:"org"`
	Bucket       string        `yaml:"bucket"`
	PushInterval time.Duration `yaml:"push_interval"`
}

func (c *InfluxConfig) Enabled() bool {
	return c != nil && c.URL != ""
}

func RegisterMetrics(reg prometheus.Registerer) {
	inference.RegisterMetrics(reg)
	api.RegisterMetrics(reg)

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}
