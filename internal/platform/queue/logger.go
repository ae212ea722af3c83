package queue

import (
	"fmt"
	"log/slog"
	"os"
)

// asynqLogger adapts slog to the asynq.Logger interface.
type asynqLogger struct {
	l *slog.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }

func (a asynqLogger) Info(args ...interface{}) { a.l.Info(fmt.Sprint(args...)) }

func (a asynqLogger) Warn(args ...interface{}) { a.l.Warn(fmt.Sprint(args...)) }

func (a asynqLogger) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }

// Fatal logs and exits, as asynq expects.
func (a asynqLogger) Fatal(args ...interface{}) {
	a.l.Error(fmt.Sprint(args...), "fatal", true)
	os.Exit(1)
}
