package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/taskflow/internal/config"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/events"
	"github.com/phrazzld/taskflow/internal/redact"
	"github.com/robfig/cron/v3"
)

// DefaultScanBatchSize bounds how many overdue tasks one scan announces.
const DefaultScanBatchSize = 100

// defaultScanTimeout caps a scheduled scan run.
const defaultScanTimeout = 2 * time.Minute

// OverdueFinder lists tasks whose due date has passed.
type OverdueFinder interface {
	FindOverdue(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error)
}

// ScanResult summarizes one scan.
type ScanResult struct {
	Found   int
	Emitted int
	Failed  int
}

// OverdueScanner periodically announces overdue tasks on the notification channel.
type OverdueScanner struct {
	finder    OverdueFinder
	emitter   events.EventEmitter
	batchSize int
	now       func() time.Time
	logger    *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewOverdueScanner creates a scanner. A non-positive batchSize falls back
// to DefaultScanBatchSize.
func NewOverdueScanner(
	finder OverdueFinder,
	emitter events.EventEmitter,
	batchSize int,
	logger *slog.Logger,
) (*OverdueScanner, error) {
	if finder == nil {
		return nil, errors.New("overdue finder cannot be nil")
	}
	if emitter == nil {
		return nil, errors.New("event emitter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = DefaultScanBatchSize
	}
	return &OverdueScanner{
		finder:    finder,
		emitter:   emitter,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger.With("component", "overdue_scanner"),
	}, nil
}

// Scan emits one task-overdue event per overdue task, up to the batch size.
// Emission failures are counted and logged; only a failed lookup aborts the scan.
func (s *OverdueScanner) Scan(ctx context.Context) (ScanResult, error) {
	var result ScanResult

	tasks, err := s.finder.FindOverdue(ctx, s.now().UTC(), s.batchSize)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to find overdue tasks", redact.ErrorAttr(err))
		return result, fmt.Errorf("failed to find overdue tasks: %w", err)
	}
	result.Found = len(tasks)

	for _, t := range tasks {
		event, err := events.NewTaskOverdueEvent(t)
		if err == nil {
			err = s.emitter.EmitEvent(ctx, event)
		}
		if err != nil {
			result.Failed++
			s.logger.ErrorContext(ctx, "failed to announce overdue task",
				slog.String("task_id", t.ID.String()),
				redact.ErrorAttr(err))
			continue
		}
		result.Emitted++
	}

	s.logger.InfoContext(ctx, "overdue scan finished",
		slog.Int("found", result.Found),
		slog.Int("emitted", result.Emitted),
		slog.Int("failed", result.Failed))
	return result, nil
}

// Start schedules Scan on cfg.OverdueCron. It is a no-op when the scheduler
// is disabled.
func (s *OverdueScanner) Start(cfg config.SchedulerConfig) error {
	if !cfg.Enabled {
		s.logger.Info("overdue scanner disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("overdue scanner already started")
	}

	cl := cronLogger{l: s.logger}
	c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := c.AddFunc(cfg.OverdueCron, s.runScheduled); err != nil {
		return fmt.Errorf("invalid overdue cron schedule %q: %w", cfg.OverdueCron, err)
	}
	c.Start()
	s.cron = c

	s.logger.Info("overdue scanner started", slog.String("schedule", cfg.OverdueCron))
	return nil
}

// Stop halts the schedule and waits for a running scan, bounded by ctx.
func (s *OverdueScanner) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		s.logger.Info("overdue scanner stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("overdue scanner did not stop in time: %w", ctx.Err())
	}
}

func (s *OverdueScanner) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultScanTimeout)
	defer cancel()
	_, _ = s.Scan(ctx)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, redact.ErrorAttr(err))...)
}
