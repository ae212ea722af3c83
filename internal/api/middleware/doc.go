// Package middleware provides the HTTP middleware of the task API: trace IDs
// with request-scoped loggers, JWT authentication with scope checks, and
// per-client rate limiting.
package middleware
