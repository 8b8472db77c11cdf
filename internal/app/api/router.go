package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"texttoaudio/internal/app/service"
	"texttoaudio/pkg/inference"
	"texttoaudio/pkg/slg"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogchi "github.com/samber/slog-chi"
)

type Config struct {
	Port              int           `yaml:"port"`
	Timeout           time.Duration `yaml:"timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

// Forwarder turns text into audio through the hosted model.
type Forwarder interface {
	Invoke(ctx context.Context, req *inference.Request) (*inference.AudioResult, error)
}

type API struct {
	logger *slog.Logger

	cfg *Config

	forwarder  Forwarder
	descriptor *service.Descriptor
	gatherer   prometheus.Gatherer
}

func NewAPI(cfg *Config, logger *slog.Logger, forwarder Forwarder, descriptor *service.Descriptor, gatherer prometheus.Gatherer) *API {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &API{
		cfg: cfg,

		logger: logger,

		forwarder:  forwarder,
		descriptor: descriptor,
		gatherer:   gatherer,
	}
}

func (api *API) NewRouter() *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(slogchi.New(api.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{headerInvocationID, "Retry-After"},
		MaxAge:         300,
	}))
	router.Use(middleware.StripSlashes)

	router.Use(middleware.Recoverer)
	router.Use(api.requestLogger)

	router.Handle("/metrics", promhttp.HandlerFor(api.gatherer, promhttp.HandlerOpts{}))

	router.Get("/", http.RedirectHandler("/service", http.StatusMovedPermanently).ServeHTTP)
	router.Get("/health", api.health)
	router.Get("/service", api.serviceDescription)

	router.Group(func(router chi.Router) {
		if api.cfg != nil && api.cfg.Timeout > 0 {
			router.Use(middleware.Timeout(api.cfg.Timeout))
		}

		router.Use(instrument("tts"))

		router.Post("/tts", api.tts)
	})

	return router
}

func (api *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := api.logger.With("request_id", middleware.GetReqID(r.Context()))

		next.ServeHTTP(w, r.WithContext(slg.WithSlog(r.Context(), logger)))
	})
}
