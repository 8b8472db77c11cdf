package announce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"texttoaudio/internal/app/service"
	"texttoaudio/pkg/tools"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	EngineURLs []string      `yaml:"engine_urls"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// Announcer registers the service with its engines on start and removes it on
// shutdown.
type Announcer struct {
	httpClient HTTPClient
	cfg        *Config
	descriptor *service.Descriptor
	logger     *slog.Logger
}

func New(httpClient HTTPClient, cfg *Config, descriptor *service.Descriptor, logger *slog.Logger) *Announcer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Announcer{
		httpClient: httpClient,
		cfg:        cfg,
		descriptor: descriptor,
		logger:     logger,
	}
}

func (a *Announcer) Enabled() bool {
	return a.cfg != nil && len(a.cfg.EngineURLs) > 0
}

// Announce posts the descriptor to every engine. Engines are independent: one
// engine giving up does not stop the others.
func (a *Announcer) Announce(ctx context.Context) error {
	if !a.Enabled() {
		return nil
	}

	data, err := json.Marshal(a.descriptor)
	if err != nil {
		return fmt.Errorf("failed to marshal service descriptor: %w", err)
	}

	var errs []error

	for _, engine := range a.cfg.EngineURLs {
		if err := a.announceWithRetries(ctx, engine, data); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			a.logger.Warn("aborting service announcement", "engine", engine, "retries", a.retries(), "err", err)
			errs = append(errs, fmt.Errorf("engine %s: %w", engine, err))

			continue
		}

		a.logger.Info("service announced", "engine", engine, "slug", a.descriptor.Slug)
	}

	return errors.Join(errs...)
}

func (a *Announcer) retries() int {
	if a.cfg.Retries <= 0 {
		return 1
	}

	return a.cfg.Retries
}

func (a *Announcer) announceWithRetries(ctx context.Context, engine string, data []byte) error {
	var lastErr error

	for attempt := 1; attempt <= a.retries(); attempt++ {
		lastErr = a.send(ctx, http.MethodPost, strings.TrimRight(engine, "/")+"/services", data)
		if lastErr == nil {
			return nil
		}

		a.logger.Debug("service announcement failed", "engine", engine, "attempt", attempt, "err", lastErr)

		if attempt == a.retries() {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.cfg.RetryDelay):
		}
	}

	return lastErr
}

// Shutdown removes the service from every engine, best effort.
func (a *Announcer) Shutdown(ctx context.Context) error {
	if !a.Enabled() {
		return nil
	}

	var errs []error

	for _, engine := range a.cfg.EngineURLs {
		target := strings.TrimRight(engine, "/") + "/services/" + url.PathEscape(a.descriptor.Slug)

		if err := a.send(ctx, http.MethodDelete, target, nil); err != nil {
			a.logger.Warn("failed to remove service from engine", "engine", engine, "err", err)
			errs = append(errs, fmt.Errorf("engine %s: %w", engine, err))

			continue
		}

		a.logger.Info("service removed from engine", "engine", engine)
	}

	return errors.Join(errs...)
}

func (a *Announcer) send(ctx context.Context, method string, target string, data []byte) error {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create engine request: %w", err)
	}

	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call engine: %w", err)
	}
	defer tools.DrainAndClose(resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		respData, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("engine returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respData)))
	}

	return nil
}
