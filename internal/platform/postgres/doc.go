// Package postgres provides the PostgreSQL implementation of store.TaskStore
// together with the embedded goose migrations that create its schema. It
// handles query construction, row mapping between tasks and database records,
// and translation of driver errors into store errors.
package postgres
