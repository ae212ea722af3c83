package auth

import "errors"

// Errors returned by JWTService and the auth middleware.
var (
	// ErrInvalidToken covers malformed tokens, bad signatures and unexpected algorithms.
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken is returned once exp has passed, beyond the allowed leeway.
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid is returned while nbf is still in the future.
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrMissingToken is returned for an empty token string.
	ErrMissingToken = errors.New("authentication token is missing")

	// ErrInsufficientScope is returned when a valid token lacks the scope a route requires.
	ErrInsufficientScope = errors.New("authentication token lacks required scope")

	// ErrUnknownScope is returned when a token is requested with a scope outside AllScopes.
	ErrUnknownScope = errors.New("unknown scope")
)
