package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskflow/internal/config"
	"github.com/phrazzld/taskflow/internal/events"
	"github.com/phrazzld/taskflow/internal/platform/postgres"
	"github.com/phrazzld/taskflow/internal/platform/queue"
	"github.com/phrazzld/taskflow/internal/redact"
	"github.com/phrazzld/taskflow/internal/service"
	"github.com/phrazzld/taskflow/internal/service/auth"
	"github.com/phrazzld/taskflow/internal/task"
	"github.com/redis/go-redis/v9"
)

// application holds the wired dependencies of the server.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Redis-backed notification channel; nil with the memory driver
	redis     *redis.Client
	producer  *queue.Emitter
	processor *queue.Processor

	emitter     events.EventEmitter
	taskStore   *postgres.PostgresTaskStore
	taskService service.TaskService
	jwtService  auth.JWTService
	scanner     *task.OverdueScanner
}

// newApplication creates a new application instance with all dependencies initialized.
// It accepts core dependencies like configuration, logger, and database connection that
// must be established before application initialization.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	statusHandler := task.NewStatusChangeHandler(app.taskStore, logger)
	overdueHandler := task.NewOverdueHandler(app.taskStore, logger)

	switch cfg.Queue.Driver {
	case config.QueueDriverMemory:
		emitter := events.NewInMemoryEventEmitter(logger)
		emitter.RegisterHandler(statusHandler, events.TypeTaskStatusUpdate)
		emitter.RegisterHandler(overdueHandler, events.TypeTaskOverdue)
		app.emitter = emitter
		logger.Warn("using in-process notification delivery; notifications are not durable")

	case config.QueueDriverRedis:
		redisOpt := queue.RedisClientOpt(cfg.Redis)
		app.redis = queue.NewRedisClient(cfg.Redis)
		app.producer = queue.NewEmitter(redisOpt, cfg.Queue, logger)
		app.emitter = app.producer

		if cfg.Worker.Enabled {
			app.processor = queue.NewProcessor(redisOpt, cfg.Queue, logger)
			app.processor.Handle(events.TypeTaskStatusUpdate, statusHandler)
			app.processor.Handle(events.TypeTaskOverdue, overdueHandler)
		}

	default:
		return nil, fmt.Errorf("unsupported queue driver %q", cfg.Queue.Driver)
	}

	repo := service.NewTaskRepositoryAdapter(app.taskStore, db)
	app.taskService, err = service.NewTaskService(repo, app.emitter, logger)
	if err != nil {
		app.closeQueue()
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.scanner, err = task.NewOverdueScanner(app.taskStore, app.emitter, cfg.Scheduler.BatchSize, logger)
	if err != nil {
		app.closeQueue()
		return nil, fmt.Errorf("failed to create overdue scanner: %w", err)
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// Run starts the background workers and the HTTP server, and stops all of
// them when ctx is canceled or the server fails.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if app.processor != nil {
		if err := app.processor.Start(); err != nil {
			return err
		}
	}
	if err := app.scanner.Start(app.config.Scheduler); err != nil {
		return fmt.Errorf("failed to start overdue scanner: %w", err)
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	stopCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	if err := app.scanner.Stop(stopCtx); err != nil {
		app.logger.Error("error stopping overdue scanner", redact.ErrorAttr(err))
	}
	if app.processor != nil {
		app.processor.Shutdown()
	}
	app.closeQueue()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", redact.ErrorAttr(err))
		}
	}

	app.logger.Info("application shutdown completed")
}

func (app *application) closeQueue() {
	var errs []error
	if app.producer != nil {
		errs = append(errs, app.producer.Close())
	}
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if err := errors.Join(errs...); err != nil {
		app.logger.Error("error closing queue connections", redact.ErrorAttr(err))
	}
}
