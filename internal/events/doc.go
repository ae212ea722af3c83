// Package events defines the notification channel contract.
//
// Producers build an Event (a typed envelope around a JSON payload) and hand
// it to an EventEmitter; consumers implement EventHandler. The Redis-backed
// emitter lives in internal/platform/queue, and InMemoryEventEmitter delivers
// in-process for development and tests.
package events
