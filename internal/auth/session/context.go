package session

import (
	"context"

	"github.com/brizzai/mobsq/internal/auth/models"
)

type identityKey struct{}

// Identity is what the guard admitted. Profile is nil when the guard runs
// without store verification.
type Identity struct {
	SessionID string
	Profile   models.Profile
}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity admitted for this request.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
