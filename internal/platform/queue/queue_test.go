package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/phrazzld/taskflow/internal/config"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testQueue = config.QueueConfig{
	Driver:      config.QueueDriverRedis,
	Name:        "task-processing",
	Concurrency: 2,
	MaxRetry:    3,
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func statusEvent(t *testing.T) *events.Event {
	t.Helper()
	event, err := events.NewStatusChangedEvent(uuid.New(), domain.TaskStatusCompleted, time.Now().UTC())
	require.NoError(t, err)
	return event
}

func TestEmitterEnqueuesEnvelope(t *testing.T) {
	s := miniredis.RunT(t)
	redisOpt := asynq.RedisClientOpt{Addr: s.Addr()}

	emitter := NewEmitter(redisOpt, testQueue, discardLogger())
	defer func() { _ = emitter.Close() }()

	event := statusEvent(t)
	require.NoError(t, emitter.EmitEvent(context.Background(), event))

	inspector := asynq.NewInspector(redisOpt)
	defer func() { _ = inspector.Close() }()

	pending, err := inspector.ListPendingTasks(testQueue.Name)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	info := pending[0]
	assert.Equal(t, events.TypeTaskStatusUpdate, info.Type)
	assert.Equal(t, event.ID.String(), info.ID)
	assert.Equal(t, testQueue.MaxRetry, info.MaxRetry)

	var got events.Event
	require.NoError(t, json.Unmarshal(info.Payload, &got))
	assert.Equal(t, event.ID, got.ID)
	assert.JSONEq(t, string(event.Payload), string(got.Payload))
}

func TestEmitterRejectsDuplicateEvent(t *testing.T) {
	s := miniredis.RunT(t)
	emitter := NewEmitter(asynq.RedisClientOpt{Addr: s.Addr()}, testQueue, discardLogger())
	defer func() { _ = emitter.Close() }()

	event := statusEvent(t)
	require.NoError(t, emitter.EmitEvent(context.Background(), event))

	err := emitter.EmitEvent(context.Background(), event)
	assert.ErrorIs(t, err, asynq.ErrTaskIDConflict)
}

func TestEmitterReportsUnavailableRedis(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	emitter := NewEmitter(asynq.RedisClientOpt{Addr: addr}, testQueue, discardLogger())
	defer func() { _ = emitter.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := emitter.EmitEvent(ctx, statusEvent(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to enqueue task-status-update event")
}

func TestDecodeEvent(t *testing.T) {
	event := statusEvent(t)
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	t.Run("valid envelope", func(t *testing.T) {
		got, err := DecodeEvent(asynq.NewTask(events.TypeTaskStatusUpdate, payload))
		require.NoError(t, err)
		assert.Equal(t, event.ID, got.ID)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := DecodeEvent(asynq.NewTask(events.TypeTaskStatusUpdate, []byte("{")))
		assert.ErrorIs(t, err, events.ErrMalformedPayload)
	})

	t.Run("type mismatch", func(t *testing.T) {
		_, err := DecodeEvent(asynq.NewTask(events.TypeTaskOverdue, payload))
		assert.ErrorIs(t, err, events.ErrMalformedPayload)
	})
}

func TestProcessorHandlerRetryPolicy(t *testing.T) {
	event := statusEvent(t)
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	handlerErr := errors.New("store unavailable")
	cases := []struct {
		name      string
		payload   []byte
		handler   events.EventHandlerFunc
		wantErr   error
		skipRetry bool
	}{
		{
			name:    "success",
			payload: payload,
			handler: func(ctx context.Context, e *events.Event) error { return nil },
		},
		{
			name:      "malformed envelope",
			payload:   []byte("not json"),
			handler:   func(ctx context.Context, e *events.Event) error { return nil },
			wantErr:   events.ErrMalformedPayload,
			skipRetry: true,
		},
		{
			name:    "malformed payload reported by handler",
			payload: payload,
			handler: func(ctx context.Context, e *events.Event) error {
				var v struct{ TaskID int }
				return e.UnmarshalPayload(&v)
			},
			wantErr:   events.ErrMalformedPayload,
			skipRetry: true,
		},
		{
			name:    "transient handler failure is retried",
			payload: payload,
			handler: func(ctx context.Context, e *events.Event) error { return handlerErr },
			wantErr: handlerErr,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewProcessor(asynq.RedisClientOpt{Addr: "localhost:0"}, testQueue, discardLogger())
			p.Handle(events.TypeTaskStatusUpdate, tc.handler)

			err := p.Handler().ProcessTask(context.Background(),
				asynq.NewTask(events.TypeTaskStatusUpdate, tc.payload))

			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, tc.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestProcessorDeliversEnqueuedEvents(t *testing.T) {
	s := miniredis.RunT(t)
	redisOpt := asynq.RedisClientOpt{Addr: s.Addr()}

	received := make(chan *events.Event, 1)
	p := NewProcessor(redisOpt, testQueue, discardLogger())
	p.Handle(events.TypeTaskStatusUpdate, events.EventHandlerFunc(
		func(ctx context.Context, e *events.Event) error {
			received <- e
			return nil
		}))
	require.NoError(t, p.Start())
	defer p.Shutdown()

	emitter := NewEmitter(redisOpt, testQueue, discardLogger())
	defer func() { _ = emitter.Close() }()

	event := statusEvent(t)
	require.NoError(t, emitter.EmitEvent(context.Background(), event))

	select {
	case got := <-received:
		assert.Equal(t, event.ID, got.ID)
		var payload events.TaskStatusChanged
		require.NoError(t, got.UnmarshalPayload(&payload))
		assert.Equal(t, domain.TaskStatusCompleted, payload.Status)
	case <-time.After(10 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestPing(t *testing.T) {
	s := miniredis.RunT(t)

	client := NewRedisClient(config.RedisConfig{Addr: s.Addr()})
	defer func() { _ = client.Close() }()
	assert.NoError(t, Ping(context.Background(), client))

	s.Close()
	assert.Error(t, Ping(context.Background(), client))
}

func TestRedisClientOpt(t *testing.T) {
	opt := RedisClientOpt(config.RedisConfig{Addr: "cache:6380", Password: "pw", DB: 2})
	assert.Equal(t, asynq.RedisClientOpt{Addr: "cache:6380", Password: "pw", DB: 2}, opt)
}
