// Package task holds the background side of task lifecycle notifications:
// the consumers that act on task-status-update and task-overdue events and
// the scheduled scanner that produces task-overdue events.
//
// Consumers are at-least-once. Every handler re-reads the task before acting
// and acknowledges notifications that no longer match the stored state.
package task
