package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/brizzai/mobsq/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "mobsq"

var (
	// ErrDenied is the parent of every reason a request is not admitted.
	ErrDenied = errors.New("session denied")

	ErrNoCookie       = fmt.Errorf("%w: no session cookie", ErrDenied)
	ErrInvalidCookie  = fmt.Errorf("%w: invalid session cookie", ErrDenied)
	ErrUnknownSession = fmt.Errorf("%w: unknown session", ErrDenied)
)

// Codec signs session identifiers into a tamper-evident cookie value. The value
// is an HS256 JWT whose subject is the session identifier.
type Codec struct {
	name   string
	secret []byte
	maxAge time.Duration
	secure bool
	now    func() time.Time
}

// NewCodec builds a codec from the session config. secure marks the cookie
// Secure, which the caller derives from the public base URL scheme.
func NewCodec(cfg *config.SessionConfig, secure bool) *Codec {
	return &Codec{
		name:   cfg.CookieName,
		secret: []byte(cfg.CookieSecret),
		maxAge: cfg.MaxAge,
		secure: secure,
		now:    time.Now,
	}
}

// Name is the cookie name.
func (c *Codec) Name() string { return c.name }

// Encode signs id.
func (c *Codec) Encode(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", errors.New("session id is required")
	}
	now := c.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return signed, nil
}

// Decode verifies value and returns the session identifier it carries.
func (c *Codec) Decode(value string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(value, &claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidCookie
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidCookie
	}
	return claims.Subject, nil
}

// SetCookie binds id into the response.
func (c *Codec) SetCookie(w http.ResponseWriter, id string) error {
	value, err := c.Encode(id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the verified session identifier carried by r.
func (c *Codec) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(c.name)
	if err != nil || cookie.Value == "" {
		return "", ErrNoCookie
	}
	return c.Decode(cookie.Value)
}
