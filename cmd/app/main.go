package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"texttoaudio/cfg"
	"texttoaudio/internal/app/announce"
	"texttoaudio/internal/app/api"
	"texttoaudio/internal/app/monitoring"
	"texttoaudio/internal/app/service"
	"texttoaudio/pkg/inference"
	"texttoaudio/pkg/slg"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxapi "github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "cfg-path", "cfg/cfg.yaml", "path to config file")
	flag.Parse()

	cfg, err := cfg.Load(cfgPath)
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	var influxWriter influxapi.WriteAPI

	if cfg.InfluxDB.Enabled() {
		influxDBClient := influxdb2.NewClient(cfg.InfluxDB.URL, cfg.InfluxDB.Token)
		defer influxDBClient.Close()

		influxCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if ok, err := influxDBClient.Ping(influxCtx); err != nil {
			log.Fatal("failed to ping influxdb: ", err)
		} else if !ok {
			log.Fatal("failed to ping influxdb")
		}
		cancel()

		influxWriter = influxDBClient.WriteAPI(cfg.InfluxDB.Org, cfg.InfluxDB.Bucket)
		defer influxWriter.Flush()
	}

	logger := newLogger(cfg.Log, influxWriter)

	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	monitoring.RegisterMetrics(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpClient := &http.Client{
		Timeout: cfg.Inference.Timeout + 5*time.Second,
	}

	forwarder := inference.New(httpClient, &cfg.Inference)
	descriptor := service.NewDescriptor(&cfg.Service)
	announcer := announce.New(&http.Client{Timeout: 10 * time.Second}, &cfg.Announce, descriptor, logger.WithGroup("announce"))

	router := api.NewAPI(&cfg.Api, logger.WithGroup("api"), forwarder, descriptor, reg).NewRouter()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Api.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Api.ReadHeaderTimeout,
	}

	wg := sync.WaitGroup{}

	if influxWriter != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()

			monitoring.PushLoop(ctx, cfg.InfluxDB.PushInterval, reg, influxWriter, logger.WithGroup("metrics"))
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()

		logger.Info("Starting server", "addr", srv.Addr, "model", cfg.Inference.Model)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ListenAndServe finished", "err", err)
		}
	}()

	announceCtx, announceCancel := context.WithCancel(ctx)
	defer announceCancel()

	announceDone := make(chan struct{})

	go func() {
		defer close(announceDone)

		if err := announcer.Announce(announceCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("service announcement incomplete", "err", err)
		}
	}()

	select {
	case <-ctx.Done():
	case <-stop:
		logger.Info("Interrupt triggerred")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	// a pending announcement must not land after the removal
	announceCancel()
	<-announceDone

	if err := announcer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to remove service from engines", "err", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "err", err)
	}

	cancel()

	wg.Wait()
}

func newLogger(cfg cfg.LogConfig, influxWriter influxapi.WriteAPI) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	if influxWriter != nil {
		handler = &slg.InfluxDBHandler{
			InfluxDBWriter: influxWriter,
			Next:           handler,
			Level:          level,
		}
	}

	return slog.New(handler)
}
