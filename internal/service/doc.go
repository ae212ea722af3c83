// Package service contains the task lifecycle use cases.
//
// TaskService persists task mutations through a TaskRepository and announces
// status transitions through an events.EventEmitter. The store write always
// commits first; enqueueing happens afterwards as a single attempt. When the
// enqueue fails the committed change stays in place and the caller receives a
// *NotificationDispatchError, so a reported failure never means the store was
// left untouched.
//
// Bulk operations run one set-based statement and then fan out one
// notification per changed task. Reads (List, Stats) go straight to the store.
//
// The service depends on repository interfaces, never on a concrete database,
// so it can be exercised against the in-memory repository in internal/mocks.
package service
