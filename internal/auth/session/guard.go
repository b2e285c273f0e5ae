package session

import (
	"errors"
	"net/http"

	"github.com/brizzai/mobsq/internal/auth/constants"
	"github.com/brizzai/mobsq/internal/logger"
	"github.com/brizzai/mobsq/internal/metrics"
	"github.com/brizzai/mobsq/internal/store"
	"github.com/brizzai/mobsq/internal/utils"
	"go.uber.org/zap"
)

// Guard admits requests that carry a valid session cookie.
//
// With verifyStore set, the identifier must also resolve to a stored profile;
// without it only presence and signature are checked and orphaned identifiers
// are admitted.
type Guard struct {
	codec       *Codec
	store       store.Store
	verifyStore bool
	metrics     *metrics.Metrics
}

func NewGuard(codec *Codec, s store.Store, verifyStore bool, m *metrics.Metrics) *Guard {
	return &Guard{codec: codec, store: s, verifyStore: verifyStore, metrics: m}
}

// Admit returns the caller's identity, or an error wrapping ErrDenied when the
// caller has to log in. Any other error is a store failure.
func (g *Guard) Admit(r *http.Request) (*Identity, error) {
	id, err := g.codec.Read(r)
	if err != nil {
		return nil, err
	}
	if !g.verifyStore {
		return &Identity{SessionID: id}, nil
	}

	profile, err := g.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownSession
	}
	if err != nil {
		return nil, err
	}
	return &Identity{SessionID: id, Profile: profile}, nil
}

// RequireSession wraps protected handlers. Denied requests are redirected to
// the login route without running next.
func (g *Guard) RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := g.Admit(r)
			if err != nil {
				log := logger.FromContext(r.Context())
				if errors.Is(err, ErrDenied) {
					g.metrics.ObserveGuard(decision(err))
					log.Debug("Session denied", zap.String("path", r.URL.Path), zap.Error(err))
					http.Redirect(w, r, constants.LoginPath, http.StatusFound)
					return
				}
				g.metrics.ObserveGuard("error")
				log.Error("Session lookup failed", zap.Error(err))
				utils.WriteError(w, "unavailable", "Session store unavailable", http.StatusServiceUnavailable)
				return
			}

			g.metrics.ObserveGuard("admitted")
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func decision(err error) string {
	switch {
	case errors.Is(err, ErrNoCookie):
		return "denied_no_cookie"
	case errors.Is(err, ErrInvalidCookie):
		return "denied_invalid"
	case errors.Is(err, ErrUnknownSession):
		return "denied_unknown"
	default:
		return "denied"
	}
}
