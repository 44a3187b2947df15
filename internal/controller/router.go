package controller

import (
	"net/http"
	"time"

	"github.com/cassiomorais/payhub/internal/application"
	"github.com/cassiomorais/payhub/internal/infrastructure/config"
	"github.com/cassiomorais/payhub/internal/infrastructure/observability"
	custommw "github.com/cassiomorais/payhub/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RouterDeps collects everything the HTTP surface needs.
type RouterDeps struct {
	Service     *application.Service
	Pool        *pgxpool.Pool
	Redis       *redis.Client
	Metrics     *observability.Metrics
	Registry    prometheus.Gatherer
	Logger      zerolog.Logger
	ServerCfg   config.ServerConfig
	EnableTrace bool
}

// NewRouter builds the chi router with the full middleware stack.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if deps.EnableTrace {
		r.Use(custommw.Tracing("payhub"))
	}
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if deps.Metrics != nil {
		r.Use(custommw.Metrics(deps.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.ServerCfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: deps.ServerCfg.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	if deps.ServerCfg.RateLimitPerMin > 0 {
		r.Use(httprate.LimitByIP(deps.ServerCfg.RateLimitPerMin, time.Minute))
	}

	payments := NewPaymentController(deps.Service, deps.Logger)
	callbacks := NewCallbackController(deps.Service, deps.Logger)
	health := NewHealthController(deps.Pool, deps.Redis)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/payments", func(r chi.Router) {
			r.Post("/", payments.Create)
			r.Get("/", payments.List)
			r.Get("/{id}", payments.Get)
			r.Post("/{id}/refund", payments.Refund)
		})
		r.Get("/payment-settings", payments.Settings)
	})

	// Providers post callbacks to a single shared endpoint.
	r.Post("/callback", callbacks.Handle)

	r.Get("/health", health.Health)
	r.Get("/health/live", health.Live)
	r.Get("/health/ready", health.Ready)

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	} else {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	return r
}

// requestLogger logs one line per request with latency and status.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
