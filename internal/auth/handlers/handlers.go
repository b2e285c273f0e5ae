package handlers

import (
	"errors"
	"net/http"

	"github.com/brizzai/mobsq/internal/auth/constants"
	"github.com/brizzai/mobsq/internal/auth/flow"
	"github.com/brizzai/mobsq/internal/auth/models"
	"github.com/brizzai/mobsq/internal/auth/providers"
	"github.com/brizzai/mobsq/internal/auth/session"
	"github.com/brizzai/mobsq/internal/logger"
	"github.com/brizzai/mobsq/internal/utils"
	"go.uber.org/zap"
)

// Handler handles the login redirect and the provider callback
type Handler struct {
	authProvider providers.Provider
	controller   *flow.Controller
	codec        *session.Codec
}

// NewHandler creates a new Handler instance
func NewHandler(provider providers.Provider, controller *flow.Controller, codec *session.Codec) *Handler {
	return &Handler{
		authProvider: provider,
		controller:   controller,
		codec:        codec,
	}
}

// HandleLogin redirects the browser to the provider's authorization dialog
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.authProvider.AuthURL(), http.StatusFound)
}

// HandleCallback turns the authorization code into a stored profile and a
// session cookie
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	code := r.URL.Query().Get(constants.CodeQueryParam)

	result, err := h.controller.Run(r.Context(), code)
	if err != nil {
		status, errCode, message := callbackError(err)
		utils.WriteError(w, errCode, message, status)
		return
	}

	if err := h.codec.SetCookie(w, result.SessionID); err != nil {
		log.Error("Failed to set session cookie", zap.String("session_id", result.SessionID), zap.Error(err))
		utils.WriteError(w, "server_error", "Failed to issue session", http.StatusInternalServerError)
		return
	}

	log.Info("Session issued",
		zap.String("session_id", result.SessionID),
		zap.String("profile_id", result.Profile.ID()),
	)
	utils.WriteText(w, http.StatusOK, constants.CallbackAck)
}

func callbackError(err error) (int, string, string) {
	switch {
	case errors.Is(err, models.ErrMissingParameter):
		return http.StatusBadRequest, "invalid_request", "Code is required"
	case errors.Is(err, models.ErrMalformedResponse):
		return http.StatusBadGateway, "bad_gateway", "Unexpected response from identity provider"
	case errors.Is(err, models.ErrProvider):
		return http.StatusBadGateway, "bad_gateway", "Identity provider request failed"
	default:
		return http.StatusInternalServerError, "server_error", "Failed to complete login"
	}
}
