package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/brizzai/mobsq/internal/auth/models"
	"github.com/brizzai/mobsq/internal/config"
	"github.com/brizzai/mobsq/internal/logger"
	"github.com/brizzai/mobsq/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// maxBodyBytes caps how much of a provider response is read.
const maxBodyBytes = 4 << 20

var accessTokenPattern = regexp.MustCompile(`^access_token=([^&]+)&expires=([^&]*)$`)

// FacebookProvider talks to the Graph API using its legacy query-string contract:
// the token endpoint is called with GET and answers access_token=...&expires=...
type FacebookProvider struct {
	oauth2Config *oauth2.Config
	graphURL     string
	client       *http.Client
	metrics      *metrics.Metrics
}

func NewFacebookProvider(cfg *config.FacebookConfig, m *metrics.Metrics) *FacebookProvider {
	graphURL := strings.TrimRight(cfg.GraphURL, "/")
	var scopes []string
	if len(cfg.Scopes) > 0 {
		// The dialog expects a single comma separated scope parameter.
		scopes = []string{strings.Join(cfg.Scopes, ",")}
	}
	return &FacebookProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			RedirectURL:  cfg.CallbackURL(),
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.DialogURL,
				TokenURL: graphURL + "/oauth/access_token",
			},
			Scopes: scopes,
		},
		graphURL: graphURL,
		client:   &http.Client{Timeout: cfg.Timeout},
		metrics:  m,
	}
}

func (p *FacebookProvider) AuthURL() string {
	return p.oauth2Config.AuthCodeURL("")
}

func (p *FacebookProvider) ExchangeCode(ctx context.Context, code string) (*models.AccessToken, error) {
	q := url.Values{}
	q.Set("client_id", p.oauth2Config.ClientID)
	q.Set("redirect_uri", p.oauth2Config.RedirectURL)
	q.Set("client_secret", p.oauth2Config.ClientSecret)
	q.Set("code", code)

	body, err := p.get(ctx, "access_token", p.oauth2Config.Endpoint.TokenURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	matches := accessTokenPattern.FindStringSubmatch(strings.TrimSpace(string(body)))
	if matches == nil {
		return nil, fmt.Errorf("%w: token response does not match access_token=...&expires=...", models.ErrMalformedResponse)
	}
	return &models.AccessToken{Value: matches[1], Expires: matches[2]}, nil
}

func (p *FacebookProvider) FetchProfile(ctx context.Context, accessToken string) (models.Profile, error) {
	q := url.Values{}
	q.Set("access_token", accessToken)

	body, err := p.get(ctx, "me", p.graphURL+"/me?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var profile models.Profile
	if err := decode(body, &profile); err != nil {
		return nil, fmt.Errorf("%w: profile: %w", models.ErrMalformedResponse, err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: profile is not a JSON object", models.ErrMalformedResponse)
	}
	return profile, nil
}

func (p *FacebookProvider) FetchPlaces(ctx context.Context, lat, lon float64, radiusMeters int, accessToken string) ([]models.Place, error) {
	q := url.Values{}
	q.Set("type", "place")
	q.Set("center", strconv.FormatFloat(lat, 'f', -1, 64)+","+strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("distance", strconv.Itoa(radiusMeters))
	q.Set("access_token", accessToken)

	body, err := p.get(ctx, "search", p.graphURL+"/search?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var list models.PlaceList
	if err := decode(body, &list); err != nil {
		return nil, fmt.Errorf("%w: places: %w", models.ErrMalformedResponse, err)
	}
	if list.Data == nil {
		list.Data = []models.Place{}
	}
	return list.Data, nil
}

func (p *FacebookProvider) FetchObject(ctx context.Context, id, accessToken string) (map[string]interface{}, error) {
	q := url.Values{}
	if accessToken != "" {
		q.Set("access_token", accessToken)
	}
	u := p.graphURL + "/" + url.PathEscape(id)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	body, err := p.get(ctx, "object", u)
	if err != nil {
		return nil, err
	}

	var object map[string]interface{}
	if err := decode(body, &object); err != nil {
		return nil, fmt.Errorf("%w: object %s: %w", models.ErrMalformedResponse, id, err)
	}
	if object == nil {
		return nil, fmt.Errorf("%w: object %s is not a JSON object", models.ErrMalformedResponse, id)
	}
	return object, nil
}

// get performs a single GET. Query strings carry credentials, so transport
// errors are reported without the URL.
func (p *FacebookProvider) get(ctx context.Context, endpoint, rawURL string) (body []byte, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		switch {
		case errors.Is(err, models.ErrProvider):
			outcome = "provider_error"
		case err != nil:
			outcome = "error"
		}
		p.metrics.ObserveProvider(endpoint, outcome, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build %s request: %w", models.ErrProvider, endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("%w: %s request failed: %w", models.ErrProvider, endpoint, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("Failed to close response body", zap.String("endpoint", endpoint), zap.Error(err))
		}
	}()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %w", models.ErrProvider, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("Provider returned an error status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(body, 512)),
		)
		return nil, fmt.Errorf("%w: %s request failed with status %d", models.ErrProvider, endpoint, resp.StatusCode)
	}
	return body, nil
}

func decode(body []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
