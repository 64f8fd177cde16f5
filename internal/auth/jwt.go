// Package auth verifies the HMAC-signed tokens issued by the rental backend.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Verifier validates tokens and extracts the user id. The issuing backend
// signs the user object, so the id lives in the "id" claim; "sub" is
// accepted as a fallback.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a Verifier for the shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses token and returns the user id it was issued for.
func (v *Verifier) Verify(token string) (int, error) {
	if token == "" {
		return 0, ErrMissingToken
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return 0, ErrInvalidToken
	}

	for _, name := range []string{"id", "sub"} {
		if id, ok := claimID(claims[name]); ok {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: no user id claim", ErrInvalidToken)
}

func claimID(v any) (int, bool) {
	switch id := v.(type) {
	case float64:
		if id > 0 && id == float64(int(id)) {
			return int(id), true
		}
	case string:
		if n, err := strconv.Atoi(id); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", fmt.Errorf("%w: malformed authorization header", ErrInvalidToken)
	}
	return parts[1], nil
}
