package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/phrazzld/taskflow/internal/config"
	"github.com/phrazzld/taskflow/internal/events"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/redact"
)

// Emitter publishes events onto an asynq queue.
// It implements events.EventEmitter.
type Emitter struct {
	client   *asynq.Client
	queue    string
	maxRetry int
	logger   *slog.Logger
}

var _ events.EventEmitter = (*Emitter)(nil)

// NewEmitter creates an Emitter that enqueues onto cfg.Name.
func NewEmitter(redisOpt asynq.RedisConnOpt, cfg config.QueueConfig, log *slog.Logger) *Emitter {
	if log == nil {
		log = slog.Default()
	}
	return &Emitter{
		client:   asynq.NewClient(redisOpt),
		queue:    cfg.Name,
		maxRetry: cfg.MaxRetry,
		logger:   log.With("component", "queue_emitter", "queue", cfg.Name),
	}
}

// EmitEvent enqueues the event as a single attempt. The event ID doubles as
// the asynq task ID, so re-emitting the same envelope is rejected by Redis
// rather than delivered twice. Any failure is returned to the caller.
func (e *Emitter) EmitEvent(ctx context.Context, event *events.Event) error {
	log := logger.FromContextOrDefault(ctx, e.logger)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}

	task := asynq.NewTask(event.Type, payload)
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(e.queue),
		asynq.MaxRetry(e.maxRetry),
		asynq.TaskID(event.ID.String()),
	)
	if err != nil {
		log.Error("failed to enqueue event",
			redact.ErrorAttr(err),
			slog.String("event_id", event.ID.String()),
			slog.String("event_type", event.Type))
		return fmt.Errorf("failed to enqueue %s event %s: %w", event.Type, event.ID, err)
	}

	log.Debug("event enqueued",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type),
		slog.String("asynq_task_id", info.ID))
	return nil
}

// Close releases the Redis connection.
func (e *Emitter) Close() error {
	return e.client.Close()
}
