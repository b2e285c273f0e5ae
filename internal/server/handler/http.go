// Package handler assembles the HTTP routing table and its middleware stack.
package handler

import (
	"net/http"

	"github.com/brizzai/mobsq/internal/auth"
	"github.com/brizzai/mobsq/internal/auth/middleware"
	"github.com/brizzai/mobsq/internal/config"
	"github.com/brizzai/mobsq/internal/game"
	"github.com/brizzai/mobsq/internal/logger"
	"github.com/brizzai/mobsq/internal/metrics"
	"github.com/brizzai/mobsq/internal/utils"
	"github.com/gorilla/mux"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const HealthPath = "/healthz"

// Handler manages HTTP request handling and middleware configuration.
type Handler struct {
	auth          *auth.Service
	game          *game.Handler
	metrics       *metrics.Metrics
	metricsConfig *config.MetricsConfig
	limiter       *middleware.RateLimiter
}

// Params are the dependencies of NewHandler
type Params struct {
	fx.In

	Auth          *auth.Service
	Game          *game.Handler
	Metrics       *metrics.Metrics
	MetricsConfig *config.MetricsConfig
	Limiter       *middleware.RateLimiter
}

// NewHandler creates a new HTTP handler.
func NewHandler(p Params) *Handler {
	return &Handler{
		auth:          p.Auth,
		game:          p.Game,
		metrics:       p.Metrics,
		metricsConfig: p.MetricsConfig,
		limiter:       p.Limiter,
	}
}

// CreateHTTPHandler builds the router. Login routes are public and rate
// limited, game routes sit behind the session guard.
func (h *Handler) CreateHTTPHandler() http.Handler {
	router := mux.NewRouter()
	h.metrics.InstrumentRouter(router)

	router.HandleFunc(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	if h.metricsConfig != nil && h.metricsConfig.Enabled {
		router.Handle(h.metricsConfig.Path, h.metrics.Handler()).Methods(http.MethodGet)
		logger.Info("Serving metrics", zap.String("path", h.metricsConfig.Path))
	}

	public := router.NewRoute().Subrouter()
	public.Use(h.limiter.Middleware)
	h.auth.RegisterRoutes(public)

	protected := router.NewRoute().Subrouter()
	protected.Use(h.auth.RequireSession())
	h.game.RegisterRoutes(protected)

	return h.wrap(router)
}

// wrap applies the outer middleware. RequestID runs first so the panic and
// access logs both carry the request id.
func (h *Handler) wrap(next http.Handler) http.Handler {
	return RequestID(Recover(LoggingMiddleware(next)))
}
