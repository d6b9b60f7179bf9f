package auth

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken covers every refresh failure.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrWeakPassword        = errors.New("password must be between 6 and 72 characters")
)
