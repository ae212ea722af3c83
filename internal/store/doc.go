// Package store defines the persistence contract for tasks and the
// transaction helper shared by every implementation. The task store is the
// single source of truth for task state: callers commit here first and only
// then announce changes on the notification channel.
package store
