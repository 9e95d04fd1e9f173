// internal/auth/admin.go
// Package auth guards the administrative reset endpoint with HS256 JWTs.
// The booth UI never touches this; only operator tooling holds the secret.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Errors returned by token verification.
var (
	ErrNoToken      = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid admin token")
	ErrNotAdmin     = errors.New("token lacks admin role")
)

// AdminVerifier validates admin bearer tokens.
type AdminVerifier struct {
	secret []byte // Shared HS256 signing secret
}

// NewAdminVerifier creates a verifier for the given shared secret.
// An empty secret yields a nil verifier, which the server treats as
// "admin endpoint disabled".
func NewAdminVerifier(secret string) *AdminVerifier {
	if secret == "" {
		return nil
	}
	return &AdminVerifier{secret: []byte(secret)}
}

// adminClaims are the claims expected on an admin token.
type adminClaims struct {
	Role string `json:"role"` // Must be "admin"
	jwt.RegisteredClaims
}

// VerifyAuthorization checks an Authorization header value and returns the
// token subject on success.
// Parameters:
//   - header: Raw Authorization header ("Bearer <token>")
// Returns:
//   - string: Token subject (operator identity)
//   - error: ErrNoToken, ErrInvalidToken, or ErrNotAdmin
func (v *AdminVerifier) VerifyAuthorization(header string) (string, error) {
	if header == "" {
		return "", ErrNoToken
	}
	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return "", ErrNoToken
	}

	claims := &adminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		// Only HS256 is accepted; reject any other signing method
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	if claims.Role != "admin" {
		return "", ErrNotAdmin
	}

	return claims.Subject, nil
}
