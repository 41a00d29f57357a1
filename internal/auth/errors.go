package auth

import "errors"

var (
	ErrMissingAuthHeader   = errors.New("Missing authorization header")
	ErrMalformedAuthHeader = errors.New("Invalid authorization header format. Expected 'Bearer <token>'")
	ErrInvalidToken        = errors.New("Invalid token")
	ErrTokenExpired        = errors.New("Token has expired")
	ErrTokenMissingSubject = errors.New("Token missing user ID")
	ErrInvalidUserID       = errors.New("Invalid user ID in token")
)
