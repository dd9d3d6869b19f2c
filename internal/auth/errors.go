package auth

import "errors"

var (
	// ErrValidation signals missing or blank login input.
	ErrValidation = errors.New("auth: rut and password are required")
	// ErrNotFound signals that no user exists for the normalized RUT.
	ErrNotFound = errors.New("auth: user not found")
	// ErrBadCredentials signals a password mismatch for an existing user.
	ErrBadCredentials = errors.New("auth: invalid credentials")
	// ErrConfiguration signals a missing signing key. Fatal server
	// misconfiguration, never silently defaulted.
	ErrConfiguration = errors.New("auth: signing key is not configured")
	// ErrInvalidToken indicates a bearer token failed validation.
	ErrInvalidToken = errors.New("auth: invalid token")
)
