// Package game serves the signed-in pages: nearby places, a location's page,
// the item store and the landing page.
package game

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/brizzai/mobsq/internal/auth/models"
	"github.com/brizzai/mobsq/internal/auth/providers"
	"github.com/brizzai/mobsq/internal/auth/session"
	"github.com/brizzai/mobsq/internal/config"
	"github.com/brizzai/mobsq/internal/logger"
	"github.com/brizzai/mobsq/internal/store"
	"github.com/brizzai/mobsq/internal/utils"
	"github.com/gorilla/mux"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	NearbyPath   = "/nearby"
	LocationPath = "/location/{id:[0-9]+}"
	StorePath    = "/store"
	MainPath     = "/"
)

var errNoSession = errors.New("no session profile")

// Handler serves the game routes. Every route expects the session guard to
// have run first.
type Handler struct {
	provider providers.Provider
	store    store.Store
	catalog  *Catalog
	views    *Views
	radius   int
}

// HandlerParams are the dependencies of NewHandler
type HandlerParams struct {
	fx.In

	Facebook *config.FacebookConfig
	Provider providers.Provider
	Store    store.Store
	Catalog  *Catalog
	Views    *Views
}

func NewHandler(p HandlerParams) *Handler {
	radius := p.Facebook.PlacesRadius
	if radius <= 0 {
		radius = 1000
	}
	return &Handler{
		provider: p.Provider,
		store:    p.Store,
		catalog:  p.Catalog,
		views:    p.Views,
		radius:   radius,
	}
}

// RegisterRoutes mounts the game routes on r. The caller applies the guard.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc(MainPath, h.HandleMain).Methods(http.MethodGet)
	r.HandleFunc(NearbyPath, h.HandleNearby).Methods(http.MethodGet)
	r.HandleFunc(LocationPath, h.HandleLocation).Methods(http.MethodGet)
	r.HandleFunc(StorePath, h.HandleStore).Methods(http.MethodGet)
}

// profile returns the caller's stored profile. The guard already loaded it
// when it verifies against the store.
func (h *Handler) profile(r *http.Request) (string, models.Profile, error) {
	identity, ok := session.IdentityFromContext(r.Context())
	if !ok {
		return "", nil, errNoSession
	}
	if identity.Profile != nil {
		return identity.SessionID, identity.Profile, nil
	}
	p, err := h.store.Get(r.Context(), identity.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return identity.SessionID, nil, errNoSession
	}
	return identity.SessionID, p, err
}

func (h *Handler) writeProfileError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errNoSession) {
		utils.WriteError(w, "unauthorized", "Session has no stored profile", http.StatusUnauthorized)
		return
	}
	logger.FromContext(r.Context()).Error("Failed to load profile", zap.Error(err))
	utils.WriteError(w, "unavailable", "Session store unavailable", http.StatusServiceUnavailable)
}

func writeProviderError(w http.ResponseWriter, r *http.Request, what string, err error) {
	logger.FromContext(r.Context()).Error("Graph request failed", zap.String("request", what), zap.Error(err))
	utils.WriteError(w, "bad_gateway", "Identity provider request failed", http.StatusBadGateway)
}

// HandleMain renders the landing page.
func (h *Handler) HandleMain(w http.ResponseWriter, r *http.Request) {
	sessionID, profile, err := h.profile(r)
	if err != nil && !errors.Is(err, errNoSession) {
		h.writeProfileError(w, r, err)
		return
	}

	data := struct {
		SessionID string
		Name      string
	}{SessionID: sessionID, Name: profile.Name()}
	if err := h.views.Render(w, http.StatusOK, "main.html", data); err != nil {
		logger.FromContext(r.Context()).Error("Failed to render page", zap.Error(err))
		utils.WriteError(w, "server_error", "Failed to render page", http.StatusInternalServerError)
	}
}

// HandleNearby returns the places around lat/lon as a JSON array.
func (h *Handler) HandleNearby(w http.ResponseWriter, r *http.Request) {
	lat, latErr := coordinate(r, "lat", 90)
	lon, lonErr := coordinate(r, "lon", 180)
	if err := errors.Join(latErr, lonErr); err != nil {
		utils.WriteError(w, "invalid_request", err.Error(), http.StatusBadRequest)
		return
	}

	_, profile, err := h.profile(r)
	if err != nil {
		h.writeProfileError(w, r, err)
		return
	}

	places, err := h.provider.FetchPlaces(r.Context(), lat, lon, h.radius, profile.AccessToken())
	if err != nil {
		writeProviderError(w, r, "places", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, places)
}

func coordinate(r *http.Request, name string, limit float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v < -limit || v > limit {
		return 0, fmt.Errorf("%s must be a number between -%g and %g", name, limit, limit)
	}
	return v, nil
}

// HandleLocation renders the page for one Graph place.
func (h *Handler) HandleLocation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	_, profile, err := h.profile(r)
	if err != nil {
		h.writeProfileError(w, r, err)
		return
	}

	object, err := h.provider.FetchObject(r.Context(), id, profile.AccessToken())
	if err != nil {
		writeProviderError(w, r, "object", err)
		return
	}

	data := struct {
		ID       string
		Location map[string]interface{}
	}{ID: id, Location: object}
	if err := h.views.Render(w, http.StatusOK, "location.html", data); err != nil {
		logger.FromContext(r.Context()).Error("Failed to render page", zap.Error(err))
		utils.WriteError(w, "server_error", "Failed to render page", http.StatusInternalServerError)
	}
}

// HandleStore renders the item catalog.
func (h *Handler) HandleStore(w http.ResponseWriter, r *http.Request) {
	if err := h.views.Render(w, http.StatusOK, "store.html", h.catalog); err != nil {
		logger.FromContext(r.Context()).Error("Failed to render page", zap.Error(err))
		utils.WriteError(w, "server_error", "Failed to render page", http.StatusInternalServerError)
	}
}

// Module provides the game handlers
var Module = fx.Module("game",
	fx.Provide(
		LoadCatalog,
		NewViews,
		NewHandler,
	),
)
