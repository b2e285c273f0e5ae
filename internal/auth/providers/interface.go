package providers

import (
	"context"

	"github.com/brizzai/mobsq/internal/auth/models"
)

// Provider defines the calls this service makes to the identity provider.
// Implementations make exactly one request per call and never retry.
type Provider interface {
	// AuthURL returns the authorization dialog URL the login route redirects to
	AuthURL() string

	// ExchangeCode exchanges an authorization code for an access token
	ExchangeCode(ctx context.Context, code string) (*models.AccessToken, error)

	// FetchProfile returns the profile of the token's owner
	FetchProfile(ctx context.Context, accessToken string) (models.Profile, error)

	// FetchPlaces searches places around a coordinate
	FetchPlaces(ctx context.Context, lat, lon float64, radiusMeters int, accessToken string) ([]models.Place, error)

	// FetchObject returns a generic graph object by id
	FetchObject(ctx context.Context, id, accessToken string) (map[string]interface{}, error)
}
