package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verifier validates bearer tokens issued by the auth provider (Supabase,
// HS256 with the project JWT secret) and extracts the user id. The id is an
// opaque foreign key; nothing beyond UUID shape is inspected.
type Verifier struct {
	Secret string
}

// TokenFromHeader extracts the token from an Authorization header value.
func TokenFromHeader(authorization string) (string, error) {
	if authorization == "" {
		return "", ErrMissingAuthHeader
	}
	parts := strings.Fields(authorization)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMalformedAuthHeader
	}
	return parts[1], nil
}

// UserIDFromToken verifies the token and returns the subject claim.
func (v *Verifier) UserIDFromToken(tokenString string) (string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(v.Secret), nil
	}, jwt.WithAudience("authenticated"))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrTokenMissingSubject
	}
	if _, err := uuid.Parse(sub); err != nil {
		return "", ErrInvalidUserID
	}
	return sub, nil
}
