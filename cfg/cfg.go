package cfg

import (
	"errors"
	"fmt"
	"os"
	"time"

	"texttoaudio/internal/app/announce"
	"texttoaudio/internal/app/api"
	"texttoaudio/internal/app/monitoring"
	"texttoaudio/internal/app/service"
	"texttoaudio/pkg/inference"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Api api.Config `yaml:"api"`

	Inference inference.Config `yaml:"inference"`

	Service  service.Config  `yaml:"service"`
	Announce announce.Config `yaml:"announce"`

	Log LogConfig `yaml:"log"`

	InfluxDB monitoring.InfluxConfig `yaml:"influx"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the yaml file at path. ${VAR} references are expanded from the
// environment first so secrets can stay out of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't open %s file: %w", path, err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("can't unmarshal cfg: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Api.Port == 0 {
		c.Api.Port = 8080
	}
	if c.Api.ReadHeaderTimeout == 0 {
		c.Api.ReadHeaderTimeout = 10 * time.Second
	}
	if c.Inference.URL == "" {
		c.Inference.URL = inference.DefaultURL
	}
	if c.Inference.Timeout == 0 {
		c.Inference.Timeout = 60 * time.Second
	}
	if c.Announce.Retries == 0 {
		c.Announce.Retries = 5
	}
	if c.Announce.RetryDelay == 0 {
		c.Announce.RetryDelay = 3 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.InfluxDB.PushInterval == 0 {
		c.InfluxDB.PushInterval = 10 * time.Second
	}
}

func (c *Config) Validate() error {
	var errs []error

	if c.Inference.Model == "" {
		errs = append(errs, errors.New("inference.model is required"))
	}
	if c.Inference.AccessToken == "" {
		errs = append(errs, errors.New("inference.access_token is required"))
	}
	if c.Api.Port < 0 || c.Api.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port %d is out of range", c.Api.Port))
	}
	if c.InfluxDB.Enabled() && (c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, errors.New("influx.org and influx.bucket are required when influx.url is set"))
	}

	return errors.Join(errs...)
}
