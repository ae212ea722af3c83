// Package mocks provides centralized test doubles shared across packages.
//
// TaskRepository is an in-memory service.TaskRepository with real
// transaction semantics (commit replaces state, failure discards it) and
// per-operation error injection. MockEventEmitter records every notification
// attempt and can be told to fail for selected tasks.
//
// Usage:
//
//	repo := mocks.NewTaskRepository()
//	emitter := &mocks.MockEventEmitter{}
//	svc, _ := service.NewTaskService(repo, emitter, nil)
package mocks
