package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/phrazzld/taskflow/internal/config"
	"github.com/phrazzld/taskflow/internal/events"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/redact"
)

// Processor consumes events from an asynq queue and dispatches them to
// registered handlers.
type Processor struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// NewProcessor creates a Processor that consumes cfg.Name with cfg.Concurrency workers.
func NewProcessor(redisOpt asynq.RedisConnOpt, cfg config.QueueConfig, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "queue_processor", "queue", cfg.Name)

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}

	p := &Processor{
		mux:    asynq.NewServeMux(),
		logger: log,
	}
	p.server = asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:  concurrency,
		Queues:       map[string]int{cfg.Name: 1},
		Logger:       asynqLogger{l: log},
		ErrorHandler: asynq.ErrorHandlerFunc(p.reportFailure),
	})
	return p
}

// Handle registers handler for events of the given type.
func (p *Processor) Handle(eventType string, handler events.EventHandler) {
	p.mux.Handle(eventType, eventHandlerAdapter(handler))
}

// Handler returns the fully wrapped asynq handler. It is exposed so the
// dispatch path can be exercised without a running server.
func (p *Processor) Handler() asynq.Handler {
	return p.loggingMiddleware(p.mux)
}

// Start begins processing in the background. Use Shutdown to stop.
func (p *Processor) Start() error {
	if err := p.server.Start(p.Handler()); err != nil {
		return fmt.Errorf("failed to start queue processor: %w", err)
	}
	p.logger.Info("queue processor started")
	return nil
}

// Shutdown stops fetching new tasks and waits for active ones to finish.
func (p *Processor) Shutdown() {
	p.server.Shutdown()
	p.logger.Info("queue processor stopped")
}

// DecodeEvent extracts the event envelope from an asynq task.
// A payload that is not a valid envelope wraps events.ErrMalformedPayload.
func DecodeEvent(t *asynq.Task) (*events.Event, error) {
	var event events.Event
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return nil, fmt.Errorf("%w: %s task: %v", events.ErrMalformedPayload, t.Type(), err)
	}
	if event.Type != t.Type() {
		return nil, fmt.Errorf("%w: envelope type %q does not match task type %q",
			events.ErrMalformedPayload, event.Type, t.Type())
	}
	return &event, nil
}

// eventHandlerAdapter decodes the envelope and hands it to h. Malformed
// events are marked with asynq.SkipRetry so they are archived at once.
func eventHandlerAdapter(h events.EventHandler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		event, err := DecodeEvent(t)
		if err == nil {
			err = h.HandleEvent(ctx, event)
		}
		if err != nil && errors.Is(err, events.ErrMalformedPayload) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	})
}

// loggingMiddleware puts a task-scoped logger in the context and logs the outcome.
func (p *Processor) loggingMiddleware(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		log := p.logger.With(slog.String("task_type", t.Type()))
		if id, ok := asynq.GetTaskID(ctx); ok {
			log = log.With(slog.String("asynq_task_id", id))
		}
		if retried, ok := asynq.GetRetryCount(ctx); ok && retried > 0 {
			log = log.With(slog.Int("retry", retried))
		}
		ctx = logger.WithLogger(ctx, log)

		start := time.Now()
		err := next.ProcessTask(ctx, t)
		if err != nil {
			log.Warn("task processing failed",
				redact.ErrorAttr(err),
				slog.Duration("duration", time.Since(start)))
			return err
		}
		log.Debug("task processed", slog.Duration("duration", time.Since(start)))
		return nil
	})
}

// reportFailure logs tasks that will not be retried again. asynq archives
// them, which is where operators look for undelivered notifications.
func (p *Processor) reportFailure(ctx context.Context, t *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if retried < maxRetry && !errors.Is(err, asynq.SkipRetry) {
		return
	}
	id, _ := asynq.GetTaskID(ctx)
	p.logger.Error("task archived after final failure",
		redact.ErrorAttr(err),
		slog.String("task_type", t.Type()),
		slog.String("asynq_task_id", id),
		slog.Int("retried", retried))
}
