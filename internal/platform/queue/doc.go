// Package queue implements the notification channel on top of asynq and Redis.
//
// Emitter is the producing side: it serializes an events.Event envelope as the
// asynq task payload, using the event type as the task type, and enqueues it
// on the configured queue. Processor is the consuming side: it runs an asynq
// server and routes each task to the events.EventHandler registered for its
// type. Delivery is at-least-once, so handlers must be idempotent.
package queue
