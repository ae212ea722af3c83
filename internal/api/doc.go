// Package api exposes the task service over HTTP. Handlers decode and
// validate requests, call the service, and translate its error kinds into
// status codes and the shared error envelope.
package api
