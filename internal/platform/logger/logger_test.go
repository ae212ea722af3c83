package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, "warn")

	log.Info("dropped")
	log.Warn("kept", "task_id", "abc")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "abc", entry["task_id"])
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"Error": slog.LevelError,
	}
	for in, want := range cases {
		got, ok := logger.ParseLevel(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	got, ok := logger.ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, slog.LevelInfo, got)
}

func TestContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	scoped := logger.New(&buf, "debug").With("trace_id", "t-1")
	fallback := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	t.Run("empty context", func(t *testing.T) {
		ctx := context.Background()
		assert.Same(t, slog.Default(), logger.FromContext(ctx))
		assert.Same(t, fallback, logger.FromContextOrDefault(ctx, fallback))
		assert.Same(t, slog.Default(), logger.FromContextOrDefault(ctx, nil))
	})

	t.Run("context logger wins", func(t *testing.T) {
		ctx := logger.WithLogger(context.Background(), scoped)
		assert.Same(t, scoped, logger.FromContext(ctx))
		assert.Same(t, scoped, logger.FromContextOrDefault(ctx, fallback))

		logger.FromContext(ctx).Info("hello")
		assert.Contains(t, buf.String(), `"trace_id":"t-1"`)
	})
}
