package game

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brizzai/mobsq/internal/auth/models"
	"github.com/brizzai/mobsq/internal/auth/session"
	"github.com/brizzai/mobsq/internal/config"
	"github.com/brizzai/mobsq/internal/store"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGraph struct {
	places    []models.Place
	object    map[string]interface{}
	err       error
	gotRadius int
	gotToken  string
	gotLat    float64
	gotLon    float64
	gotID     string
}

func (f *fakeGraph) AuthURL() string { return "" }

func (f *fakeGraph) ExchangeCode(context.Context, string) (*models.AccessToken, error) {
	return nil, models.ErrProvider
}

func (f *fakeGraph) FetchProfile(context.Context, string) (models.Profile, error) {
	return nil, models.ErrProvider
}

func (f *fakeGraph) FetchPlaces(_ context.Context, lat, lon float64, radius int, token string) ([]models.Place, error) {
	f.gotLat, f.gotLon, f.gotRadius, f.gotToken = lat, lon, radius, token
	return f.places, f.err
}

func (f *fakeGraph) FetchObject(_ context.Context, id, token string) (map[string]interface{}, error) {
	f.gotID, f.gotToken = id, token
	return f.object, f.err
}

type fixture struct {
	graph    *fakeGraph
	profiles *store.MemoryStore
	router   *mux.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog, err := LoadCatalog()
	require.NoError(t, err)
	views, err := NewViews()
	require.NoError(t, err)

	f := &fixture{graph: &fakeGraph{}, profiles: store.NewMemoryStore(), router: mux.NewRouter()}
	h := NewHandler(HandlerParams{
		Facebook: &config.FacebookConfig{PlacesRadius: 1000},
		Provider: f.graph,
		Store:    f.profiles,
		Catalog:  catalog,
		Views:    views,
	})
	h.RegisterRoutes(f.router)
	return f
}

// serve runs target as a signed-in request. A nil profile mimics the guard
// running without store verification.
func (f *fixture) serve(t *testing.T, target string, identity *session.Identity) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if identity != nil {
		req = req.WithContext(session.WithIdentity(req.Context(), identity))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) signIn(t *testing.T) *session.Identity {
	t.Helper()
	profile := models.Profile{"id": "100000001", "name": "Jane Doe", "access_token": "tok_1"}
	id, err := f.profiles.Insert(context.Background(), profile)
	require.NoError(t, err)
	return &session.Identity{SessionID: id, Profile: profile}
}

func TestCatalog(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)
	assert.NotEmpty(t, c.Weapons)
	assert.NotEmpty(t, c.Armor)

	_, err = ParseCatalog([]byte("weapons:\n  - id: a\n    name: A\n    price: -1\n"))
	assert.ErrorContains(t, err, "negative price")

	_, err = ParseCatalog([]byte("weapons:\n  - id: a\n    name: A\narmor:\n  - id: a\n    name: B\n"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = ParseCatalog([]byte("weapons: [\n"))
	assert.Error(t, err)
}

func TestNearby(t *testing.T) {
	f := newFixture(t)
	f.graph.places = []models.Place{{"id": "1", "name": "Ferry Building", "checkins": json.Number("7")}}

	rec := f.serve(t, "/nearby?lat=37.7749&lon=-122.4194", f.signIn(t))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"1","name":"Ferry Building","checkins":7}]`, rec.Body.String())
	assert.Equal(t, 1000, f.graph.gotRadius)
	assert.Equal(t, "tok_1", f.graph.gotToken)
	assert.InDelta(t, 37.7749, f.graph.gotLat, 1e-9)
	assert.InDelta(t, -122.4194, f.graph.gotLon, 1e-9)
}

func TestNearbyEmptyIsArray(t *testing.T) {
	f := newFixture(t)
	f.graph.places = []models.Place{}

	rec := f.serve(t, "/nearby?lat=0&lon=0", f.signIn(t))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestNearbyRejectsBadCoordinates(t *testing.T) {
	for _, target := range []string{
		"/nearby",
		"/nearby?lat=1",
		"/nearby?lat=abc&lon=1",
		"/nearby?lat=91&lon=0",
		"/nearby?lat=0&lon=181",
		"/nearby?lat=NaN&lon=0",
	} {
		t.Run(target, func(t *testing.T) {
			f := newFixture(t)
			rec := f.serve(t, target, f.signIn(t))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, f.graph.gotToken, "provider must not be called")
		})
	}
}

func TestNearbyProviderFailure(t *testing.T) {
	f := newFixture(t)
	f.graph.err = models.ErrProvider

	rec := f.serve(t, "/nearby?lat=1&lon=1", f.signIn(t))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad_gateway")
}

func TestNearbyLoadsProfileWhenGuardSkipsStore(t *testing.T) {
	f := newFixture(t)
	f.graph.places = []models.Place{}
	signed := f.signIn(t)

	rec := f.serve(t, "/nearby?lat=1&lon=1", &session.Identity{SessionID: signed.SessionID})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok_1", f.graph.gotToken)

	rec = f.serve(t, "/nearby?lat=1&lon=1", &session.Identity{SessionID: "01J00000000000000000000000"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLocation(t *testing.T) {
	f := newFixture(t)
	f.graph.object = map[string]interface{}{"id": "110843418940484", "name": "Golden Gate Park", "category": "Park"}

	rec := f.serve(t, "/location/110843418940484", f.signIn(t))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "110843418940484", f.graph.gotID)
	assert.Contains(t, rec.Body.String(), "<h1>Golden Gate Park</h1>")
	assert.Contains(t, rec.Body.String(), "Park")
}

func TestLocationRequiresNumericID(t *testing.T) {
	f := newFixture(t)
	rec := f.serve(t, "/location/abc", f.signIn(t))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, f.graph.gotID)
}

func TestLocationEscapesProviderData(t *testing.T) {
	f := newFixture(t)
	f.graph.object = map[string]interface{}{"name": "<script>alert(1)</script>"}

	rec := f.serve(t, "/location/1", f.signIn(t))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>alert(1)</script>")
}

func TestStore(t *testing.T) {
	f := newFixture(t)
	rec := f.serve(t, "/store", f.signIn(t))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Tommy Gun")
	assert.Contains(t, rec.Body.String(), "Kevlar Vest")

	post := httptest.NewRequest(http.MethodPost, "/store", nil)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, post)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMainPage(t *testing.T) {
	f := newFixture(t)
	identity := f.signIn(t)

	rec := f.serve(t, "/", identity)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome back, Jane Doe.")
	assert.Contains(t, rec.Body.String(), identity.SessionID)
}
