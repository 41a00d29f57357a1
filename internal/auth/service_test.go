package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "550e8400-e29b-41d4-a716-446655440000",
		"aud": "authenticated",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
}

func TestTokenFromHeader_Missing(t *testing.T) {
	_, err := TokenFromHeader("")
	assert.Equal(t, ErrMissingAuthHeader, err)
}

func TestTokenFromHeader_Malformed(t *testing.T) {
	for _, header := range []string{"abc123", "Basic abc123", "Bearer", "Bearer a b"} {
		_, err := TokenFromHeader(header)
		assert.Equal(t, ErrMalformedAuthHeader, err, header)
	}
}

func TestTokenFromHeader_Valid(t *testing.T) {
	token, err := TokenFromHeader("Bearer abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	// Scheme is case-insensitive.
	token, err = TokenFromHeader("bearer abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
}

func TestUserIDFromToken_Valid(t *testing.T) {
	v := &Verifier{Secret: testSecret}
	userID, err := v.UserIDFromToken(signToken(t, testSecret, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", userID)
}

func TestUserIDFromToken_WrongSecret(t *testing.T) {
	v := &Verifier{Secret: testSecret}
	_, err := v.UserIDFromToken(signToken(t, "other-secret", validClaims()))
	assert.Equal(t, ErrInvalidToken, err)
}

func TestUserIDFromToken_Expired(t *testing.T) {
	v := &Verifier{Secret: testSecret}
	claims := validClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	_, err := v.UserIDFromToken(signToken(t, testSecret, claims))
	assert.Equal(t, ErrTokenExpired, err)
}

func TestUserIDFromToken_WrongAudience(t *testing.T) {
	v := &Verifier{Secret: testSecret}
	claims := validClaims()
	claims["aud"] = "anon"
	_, err := v.UserIDFromToken(signToken(t, testSecret, claims))
	assert.Equal(t, ErrInvalidToken, err)
}

func TestUserIDFromToken_MissingSubject(t *testing.T) {
	v := &Verifier{Secret: testSecret}
	claims := validClaims()
	delete(claims, "sub")
	_, err := v.UserIDFromToken(signToken(t, testSecret, claims))
	assert.Equal(t, ErrTokenMissingSubject, err)
}

func TestUserIDFromToken_NonUUIDSubject(t *testing.T) {
	v := &Verifier{Secret: testSecret}
	claims := validClaims()
	claims["sub"] = "not-a-uuid"
	_, err := v.UserIDFromToken(signToken(t, testSecret, claims))
	assert.Equal(t, ErrInvalidUserID, err)
}

func TestUserIDFromToken_Garbage(t *testing.T) {
	v := &Verifier{Secret: testSecret}
	_, err := v.UserIDFromToken("not.a.jwt")
	assert.Equal(t, ErrInvalidToken, err)
}
