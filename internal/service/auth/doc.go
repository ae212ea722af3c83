// Package auth issues and validates the HMAC-signed JWT access tokens that
// guard the task API. Tokens carry a subject and a list of scopes
// (tasks:read, tasks:write) checked by the HTTP middleware.
package auth
