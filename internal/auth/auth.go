// Package auth implements the API's two client credential schemes: static
// API keys presented in a header, and short-lived JWTs exchanged for a key.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultHeader is the API key header when none is configured.
const DefaultHeader = "X-API-Key"

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Authenticator validates API keys and issues/validates bearer tokens.
type Authenticator struct {
	keys      map[string]struct{}
	header    string
	jwtSecret []byte
	jwtExpiry time.Duration
}

// Config carries the credential material for New.
type Config struct {
	// Accepted API keys. Empty means authentication is disabled (dev mode).
	APIKeys []string
	// Header the key is presented in. Defaults to X-API-Key.
	Header string
	// HMAC secret for bearer tokens. Empty disables the token scheme.
	JWTSecret string
	// Token lifetime. Defaults to 30 minutes.
	JWTExpiry time.Duration
}

func New(cfg Config) *Authenticator {
	a := &Authenticator{
		keys:      make(map[string]struct{}, len(cfg.APIKeys)),
		header:    cfg.Header,
		jwtSecret: []byte(cfg.JWTSecret),
		jwtExpiry: cfg.JWTExpiry,
	}
	for _, k := range cfg.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			a.keys[k] = struct{}{}
		}
	}
	if a.header == "" {
		a.header = DefaultHeader
	}
	if a.jwtExpiry <= 0 {
		a.jwtExpiry = 30 * time.Minute
	}
	return a
}

// Enabled reports whether requests must carry credentials. With no keys
// configured the API is open, matching local development setups.
func (a *Authenticator) Enabled() bool { return len(a.keys) > 0 }

// Header returns the configured API key header name.
func (a *Authenticator) Header() string { return a.header }

// CheckKey validates a raw API key value.
func (a *Authenticator) CheckKey(key string) error {
	if key == "" {
		return ErrMissingCredentials
	}
	for k := range a.keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return nil
		}
	}
	return ErrInvalidCredentials
}

// Authenticate validates a request using either the API key header or an
// Authorization: Bearer token. A nil error means the caller is authorized.
func (a *Authenticator) Authenticate(r *http.Request) error {
	if !a.Enabled() {
		return nil
	}
	if key := r.Header.Get(a.header); key != "" {
		return a.CheckKey(key)
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return a.CheckToken(strings.TrimPrefix(h, "Bearer "))
	}
	return ErrMissingCredentials
}

// IssueToken exchanges a valid API key for a signed JWT and its lifetime in
// seconds.
func (a *Authenticator) IssueToken(key string) (string, int64, error) {
	if err := a.CheckKey(key); err != nil {
		return "", 0, err
	}
	if len(a.jwtSecret) == 0 {
		return "", 0, errors.New("token auth not configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   "api-client",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.jwtExpiry)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(a.jwtSecret)
	if err != nil {
		return "", 0, fmt.Errorf("sign token: %w", err)
	}
	return signed, int64(a.jwtExpiry.Seconds()), nil
}

// CheckToken validates a bearer token previously issued by IssueToken.
func (a *Authenticator) CheckToken(raw string) error {
	if raw == "" {
		return ErrMissingCredentials
	}
	if len(a.jwtSecret) == 0 {
		return ErrInvalidCredentials
	}
	_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
