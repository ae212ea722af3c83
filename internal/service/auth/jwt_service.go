package auth

import (
	"context"
	"slices"
	"time"
)

// Scopes understood by the task API.
const (
	ScopeTasksRead  = "tasks:read"
	ScopeTasksWrite = "tasks:write"
)

// AllScopes lists every scope a token may carry.
var AllScopes = []string{ScopeTasksRead, ScopeTasksWrite}

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed access token for subject carrying scopes.
	// Returns ErrUnknownScope if any scope is not in AllScopes.
	GenerateToken(ctx context.Context, subject string, scopes []string) (string, error)

	// ValidateToken validates the provided access token string and extracts the claims.
	// Returns the claims if the token is valid, or an error if validation fails
	// (expired, invalid signature, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the validated content of an access token.
type Claims struct {
	// Subject identifies the caller the token was issued to.
	Subject string `json:"sub,omitempty"`

	// Scopes lists the capabilities granted to the caller.
	Scopes []string `json:"scopes,omitempty"`

	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}

// HasScope reports whether the claims grant scope.
func (c *Claims) HasScope(scope string) bool {
	return c != nil && slices.Contains(c.Scopes, scope)
}
