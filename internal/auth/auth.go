// Package auth verifies candidate bearer tokens for interview sessions.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail signature or claim checks.
var ErrInvalidToken = errors.New("auth: invalid token")

// Verifier extracts a user identity from a bearer credential.
type Verifier interface {
	// Verify validates token and returns the user ID it asserts.
	Verify(token string) (string, error)
}

// JWTVerifier validates HS256-signed JWTs carrying a user_id claim, matching
// the tokens the account service issues.
type JWTVerifier struct {
	secret []byte
}

// Compile-time assertion that JWTVerifier satisfies the Verifier interface.
var _ Verifier = (*JWTVerifier)(nil)

// NewJWTVerifier constructs a verifier over the shared HMAC secret.
func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("auth: secret must not be empty")
	}
	return &JWTVerifier{secret: []byte(secret)}, nil
}

// Verify implements Verifier. A "Bearer " prefix is tolerated since browser
// clients pass the credential verbatim as a query parameter.
func (v *JWTVerifier) Verify(token string) (string, error) {
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		return "", fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: unexpected claims type", ErrInvalidToken)
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: missing user_id claim", ErrInvalidToken)
	}
	return userID, nil
}
