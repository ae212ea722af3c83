// Package shared holds the request decoding, error envelope and request
// context helpers used by both the handlers and the middleware.
package shared
