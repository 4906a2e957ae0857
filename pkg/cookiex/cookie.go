// Package cookiex mints and parses the session cookie. The cookie value is a
// compact HS256-signed JWT carrying only the session id, so the transport
// layer can reject tampered cookies without a cache or store round trip.
package cookiex

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the name of the cookie carrying the session id.
const SessionCookie = "S_ID"

// Lifetime selects one of the three cookie lifetime modes.
type Lifetime int

const (
	// LifetimeDefault keeps the cookie for a normal browsing session.
	LifetimeDefault Lifetime = iota
	// LifetimePermanent is the remember-me mode.
	LifetimePermanent
)

const (
	defaultMaxAge   = 24 * time.Hour
	permanentMaxAge = 10 * 365 * 24 * time.Hour
)

var (
	ErrInvalidCookie = errors.New("cookiex: invalid session cookie")
	ErrExpiredCookie = errors.New("cookiex: expired session cookie")
)

// Signer mints and verifies session cookies with a shared HMAC secret.
type Signer struct {
	secret []byte
	secure bool
	domain string
}

func NewSigner(secret []byte, secure bool, domain string) *Signer {
	return &Signer{secret: secret, secure: secure, domain: domain}
}

// Mint produces the session cookie for the given session id. The signed
// payload expires together with the cookie.
func (s *Signer) Mint(sessionID string, lifetime Lifetime) (*http.Cookie, error) {
	maxAge := defaultMaxAge
	if lifetime == LifetimePermanent {
		maxAge = permanentMaxAge
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(maxAge)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	return s.cookie(signed, int(maxAge.Seconds())), nil
}

// Expire produces an expire-now cookie that removes the session cookie from
// the client.
func (s *Signer) Expire() *http.Cookie {
	return s.cookie("", -1)
}

// Parse verifies the cookie signature and returns the embedded session id.
func (s *Signer) Parse(c *http.Cookie) (string, error) {
	if c == nil || c.Value == "" {
		return "", ErrInvalidCookie
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(c.Value, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredCookie
		}
		return "", ErrInvalidCookie
	}

	if claims.Subject == "" {
		return "", ErrInvalidCookie
	}
	return claims.Subject, nil
}

func (s *Signer) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		Domain:   s.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
