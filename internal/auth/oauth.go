package auth

import (
	"net/http"
	"strings"

	"github.com/brizzai/mobsq/internal/auth/constants"
	"github.com/brizzai/mobsq/internal/auth/flow"
	"github.com/brizzai/mobsq/internal/auth/handlers"
	"github.com/brizzai/mobsq/internal/auth/providers"
	"github.com/brizzai/mobsq/internal/auth/session"
	"github.com/brizzai/mobsq/internal/config"
	"github.com/brizzai/mobsq/internal/metrics"
	"github.com/brizzai/mobsq/internal/store"
	"github.com/gorilla/mux"
	"go.uber.org/fx"
)

// Service represents the login service: the provider callback flow plus the
// session cookie and the guard that checks it
type Service struct {
	authProvider providers.Provider
	handler      *handlers.Handler
	codec        *session.Codec
	guard        *session.Guard
}

// ServiceParams are the dependencies of NewService
type ServiceParams struct {
	fx.In

	Facebook *config.FacebookConfig
	Session  *config.SessionConfig
	Provider providers.Provider
	Store    store.Store
	Metrics  *metrics.Metrics
}

// NewService creates a new login service
func NewService(p ServiceParams) *Service {
	secure := strings.HasPrefix(strings.ToLower(p.Facebook.RedirectBaseURL), "https://")
	codec := session.NewCodec(p.Session, secure)
	controller := flow.NewController(p.Provider, p.Store, p.Metrics)

	return &Service{
		authProvider: p.Provider,
		handler:      handlers.NewHandler(p.Provider, controller, codec),
		codec:        codec,
		guard:        session.NewGuard(codec, p.Store, p.Session.VerifyStore, p.Metrics),
	}
}

// RegisterRoutes registers the login and callback routes
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc(constants.LoginPath, s.handler.HandleLogin).Methods(http.MethodGet)
	r.HandleFunc(constants.CallbackPath, s.handler.HandleCallback).Methods(http.MethodGet)
}

// RequireSession returns the session guard middleware
func (s *Service) RequireSession() func(http.Handler) http.Handler {
	return s.guard.RequireSession()
}

// Codec returns the session cookie codec
func (s *Service) Codec() *session.Codec {
	return s.codec
}

// GetProvider returns the configured auth provider
func (s *Service) GetProvider() providers.Provider {
	return s.authProvider
}

// Module provides the identity provider and the login service
var Module = fx.Module("auth",
	providers.Module,
	fx.Provide(NewService),
)
