// Package scheduler runs the periodic archive sweep that catches terminal
// tasks whose trajectory was never archived.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jengzang/dispatch-backend-go/internal/models"
	"github.com/jengzang/dispatch-backend-go/internal/service"
)

// TaskFinder lists tasks that still need an archive
type TaskFinder interface {
	FindUnarchivedTerminal(ctx context.Context, afterID int64, limit uint64) ([]models.Task, error)
}

// Archiver archives one task
type Archiver interface {
	TriggerArchive(ctx context.Context, agentID, taskID int64) (*service.ArchiveOutcome, error)
}

// SweepResult counts what one sweep did
type SweepResult struct {
	Scanned       int
	Created       int
	AlreadyExists int
	NoLocations   int
	Failed        int
}

// Sweeper archives finished tasks on a cron schedule
type Sweeper struct {
	cron     *cron.Cron
	tasks    TaskFinder
	archiver Archiver
	batch    int
	timeout  time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	started bool

	sweepMu sync.Mutex
	cursor  int64 // last task id scanned, 0 restarts from the lowest id
}

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NewSweeper creates a sweeper handling up to batch tasks per run
func NewSweeper(tasks TaskFinder, archiver Archiver, batch int, log *zap.Logger) *Sweeper {
	if batch <= 0 {
		batch = 100
	}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.Recover(cronLogger{log.Sugar()}), cron.SkipIfStillRunning(cronLogger{log.Sugar()})),
	)
	return &Sweeper{cron: c, tasks: tasks, archiver: archiver, batch: batch, timeout: 5 * time.Minute, log: log}
}

// Start schedules the sweep. An empty schedule leaves the sweeper idle.
func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		s.log.Info("Archive sweeper disabled")
		return nil
	}
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return fmt.Errorf("failed to schedule archive sweep: %w", err)
	}

	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	s.cron.Start()
	s.log.Info("Archive sweeper started", zap.String("schedule", schedule))
	return nil
}

// Stop stops scheduling and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()

	if started {
		<-s.cron.Stop().Done()
		s.log.Info("Archive sweeper stopped")
	}
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.SweepOnce(ctx)
	if err != nil {
		s.log.Error("Archive sweep failed", zap.Error(err))
		return
	}
	if result.Scanned > 0 {
		s.log.Info("Archive sweep finished",
			zap.Int("scanned", result.Scanned),
			zap.Int("created", result.Created),
			zap.Int("already_exists", result.AlreadyExists),
			zap.Int("no_locations", result.NoLocations),
			zap.Int("failed", result.Failed))
	}
}

// SweepOnce archives one batch of unarchived terminal tasks. A failure on one
// task is logged and does not stop the batch. Batches walk the tasks in id
// order so tasks that keep failing cannot hold back the rest; a short batch
// wraps the walk back to the start.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	var result SweepResult

	tasks, err := s.tasks.FindUnarchivedTerminal(ctx, s.cursor, uint64(s.batch))
	if err != nil {
		return result, fmt.Errorf("failed to list unarchived tasks: %w", err)
	}

	if len(tasks) < s.batch {
		s.cursor = 0
	} else {
		s.cursor = tasks[len(tasks)-1].ID
	}

	for _, task := range tasks {
		result.Scanned++

		outcome, err := s.archiver.TriggerArchive(ctx, task.AgentID, task.ID)
		if err != nil {
			result.Failed++
			s.log.Warn("Failed to archive task",
				zap.Int64("agent_id", task.AgentID),
				zap.Int64("task_id", task.ID),
				zap.Error(err))
			continue
		}

		switch outcome.Status {
		case service.ArchiveCreated:
			result.Created++
		case service.ArchiveAlreadyExists:
			result.AlreadyExists++
		case service.ArchiveNoLocations:
			result.NoLocations++
		}
	}

	return result, nil
}

// cronLogger routes cron's own logging to zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
