// Package hostauth validates the bearer tokens host consoles present when connecting.
// Validation is optional: with neither a secret nor a JWKS URL configured every host is accepted.
package hostauth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"chosen-one-server/sessionerrors"
)

const bearerPrefix = "Bearer "

// DefaultHostName is used when a token carries no usable name.
const DefaultHostName = "Host"

// Validator checks host tokens signed with a shared HMAC secret or with keys published as a JWKS.
type Validator struct {
	keyfunc jwt.Keyfunc
	methods []string
}

// New returns a validator for the configured source. A JWKS URL takes precedence over the secret.
// With both empty the returned validator is disabled.
func New(secret, jwksURL string) (*Validator, error) {
	switch {
	case jwksURL != "":
		jwks, err := keyfunc.NewDefault([]string{jwksURL})
		if err != nil {
			return nil, fmt.Errorf("load JWKS from %s: %w", jwksURL, err)
		}
		return &Validator{keyfunc: jwks.Keyfunc, methods: []string{"EdDSA", "RS256", "ES256"}}, nil
	case secret != "":
		key := []byte(secret)
		return &Validator{
			keyfunc: func(*jwt.Token) (any, error) { return key, nil },
			methods: []string{"HS256"},
		}, nil
	}
	return &Validator{}, nil
}

// Enabled reports whether tokens are checked at all.
func (v *Validator) Enabled() bool {
	return v != nil && v.keyfunc != nil
}

// Validate parses tokenString and returns the host name it carries. Every failure
// wraps sessionerrors.ErrUnauthorized. A disabled validator accepts any token.
func (v *Validator) Validate(tokenString string) (string, error) {
	if !v.Enabled() {
		return DefaultHostName, nil
	}
	if tokenString == "" {
		return "", fmt.Errorf("%w: missing token", sessionerrors.ErrUnauthorized)
	}
	token, err := jwt.Parse(tokenString, v.keyfunc, jwt.WithValidMethods(v.methods))
	if err != nil {
		return "", fmt.Errorf("%w: %v", sessionerrors.ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: invalid token claims", sessionerrors.ErrUnauthorized)
	}
	return HostNameFromClaims(claims), nil
}

// HostNameFromClaims returns the first word of the "name" claim, then "sub", or DefaultHostName.
func HostNameFromClaims(claims jwt.MapClaims) string {
	name, _ := claims["name"].(string)
	if parts := strings.Fields(name); len(parts) > 0 {
		return parts[0]
	}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	return DefaultHostName
}

// TokenFromRequest returns the bearer token of r, falling back to the "token" query parameter
// (browsers cannot set headers on WebSocket upgrades).
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimSpace(h[len(bearerPrefix):])
	}
	return r.URL.Query().Get("token")
}
