package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brizzai/mobsq/internal/auth/flow"
	"github.com/brizzai/mobsq/internal/auth/models"
	"github.com/brizzai/mobsq/internal/auth/session"
	"github.com/brizzai/mobsq/internal/config"
	"github.com/brizzai/mobsq/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	exchangeErr error
	profileErr  error
}

func (s *stubProvider) AuthURL() string {
	return "https://www.facebook.com/dialog/oauth?client_id=app-1"
}

func (s *stubProvider) ExchangeCode(context.Context, string) (*models.AccessToken, error) {
	if s.exchangeErr != nil {
		return nil, s.exchangeErr
	}
	return &models.AccessToken{Value: "tok_1", Expires: "5183999"}, nil
}

func (s *stubProvider) FetchProfile(context.Context, string) (models.Profile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return models.Profile{"id": "100000001", "name": "Jane Doe"}, nil
}

func (s *stubProvider) FetchPlaces(context.Context, float64, float64, int, string) ([]models.Place, error) {
	return nil, nil
}

func (s *stubProvider) FetchObject(context.Context, string, string) (map[string]interface{}, error) {
	return nil, nil
}

type brokenStore struct {
	*store.MemoryStore
}

func (brokenStore) Insert(context.Context, models.Profile) (string, error) {
	return "", errors.New("connection refused")
}

func newCodec() *session.Codec {
	return session.NewCodec(&config.SessionConfig{
		CookieName:   "user_id",
		CookieSecret: "s3cret",
		MaxAge:       31 * 24 * time.Hour,
	}, false)
}

func TestHandleLogin(t *testing.T) {
	h := NewHandler(&stubProvider{}, nil, newCodec())
	rec := httptest.NewRecorder()

	h.HandleLogin(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://www.facebook.com/dialog/oauth?client_id=app-1", rec.Header().Get("Location"))
}

func TestHandleCallbackSetsCookie(t *testing.T) {
	profiles := store.NewMemoryStore()
	codec := newCodec()
	provider := &stubProvider{}
	h := NewHandler(provider, flow.NewController(provider, profiles, nil), codec)

	rec := httptest.NewRecorder()
	h.HandleCallback(rec, httptest.NewRequest(http.MethodGet, "/callback?code=abc123", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cookie set.", rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "user_id", cookies[0].Name)

	id, err := codec.Decode(cookies[0].Value)
	require.NoError(t, err)
	stored, err := profiles.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "tok_1", stored.AccessToken())
	assert.Equal(t, "Jane Doe", stored.Name())
}

func TestHandleCallbackErrors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		provider   *stubProvider
		broken     bool
		wantStatus int
		wantBody   string
	}{
		{
			name:       "missing code",
			target:     "/callback",
			provider:   &stubProvider{},
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid_request",
		},
		{
			name:       "empty code",
			target:     "/callback?code=",
			provider:   &stubProvider{},
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid_request",
		},
		{
			name:       "malformed token body",
			target:     "/callback?code=abc123",
			provider:   &stubProvider{exchangeErr: models.ErrMalformedResponse},
			wantStatus: http.StatusBadGateway,
			wantBody:   "bad_gateway",
		},
		{
			name:       "profile fetch fails",
			target:     "/callback?code=abc123",
			provider:   &stubProvider{profileErr: models.ErrProvider},
			wantStatus: http.StatusBadGateway,
			wantBody:   "bad_gateway",
		},
		{
			name:       "store write fails",
			target:     "/callback?code=abc123",
			provider:   &stubProvider{},
			broken:     true,
			wantStatus: http.StatusInternalServerError,
			wantBody:   "server_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			memory := store.NewMemoryStore()
			var s store.Store = memory
			if tt.broken {
				s = brokenStore{memory}
			}
			h := NewHandler(tt.provider, flow.NewController(tt.provider, s, nil), newCodec())

			rec := httptest.NewRecorder()
			h.HandleCallback(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.Empty(t, rec.Result().Cookies())
			assert.Equal(t, 0, memory.Len())
		})
	}
}
