package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jengzang/dispatch-backend-go/internal/apperr"
	"github.com/jengzang/dispatch-backend-go/internal/database"
	"github.com/jengzang/dispatch-backend-go/internal/models"
	"github.com/jengzang/dispatch-backend-go/internal/repository"
	"github.com/jengzang/dispatch-backend-go/internal/spatial"
	"github.com/jengzang/dispatch-backend-go/internal/trajectory"
)

// ArchiveStatus is the result of a manual archive request
type ArchiveStatus string

// ArchiveStatus constants
const (
	ArchiveCreated       ArchiveStatus = "created"
	ArchiveAlreadyExists ArchiveStatus = "already_exists"
	ArchiveNoLocations   ArchiveStatus = "no_locations"
)

// ArchiveOutcome reports what TriggerArchive did
type ArchiveOutcome struct {
	Status  ArchiveStatus
	Archive *models.TrajectoryArchive // set when Status is ArchiveCreated or ArchiveAlreadyExists
}

// ArchiveService builds and reads trajectory archives
type ArchiveService struct {
	db    *database.DB
	repos *repository.Repositories
	now   func() time.Time
	log   *zap.Logger
}

// NewArchiveService creates a new archive service
func NewArchiveService(db *database.DB, repos *repository.Repositories, log *zap.Logger) *ArchiveService {
	return &ArchiveService{
		db:    db,
		repos: repos,
		now:   time.Now,
		log:   log,
	}
}

// CreateTaskArchive summarizes every raw location of the task into one
// archive. It returns nil without error when the task has no locations yet.
func (s *ArchiveService) CreateTaskArchive(ctx context.Context, agent *models.Agent, task *models.Task) (*models.TrajectoryArchive, error) {
	var archive *models.TrajectoryArchive

	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		repos := s.repos.WithTx(tx)

		raws, err := repos.Locations.ListRawByTask(ctx, agent.ID, task.ID)
		if err != nil {
			return err
		}
		if len(raws) == 0 {
			s.log.Warn("No locations to archive",
				zap.Int64("agent_id", agent.ID),
				zap.Int64("task_id", task.ID))
			return nil
		}

		samples := make([]trajectory.Sample, len(raws))
		for i, raw := range raws {
			p, err := spatial.ParsePoint(raw.Point)
			if err != nil {
				return apperr.InvalidGeometry(fmt.Errorf("raw location %d: %w", raw.ID, err))
			}
			samples[i] = trajectory.Sample{Point: p, RecordedAt: raw.RecordedAt, Speed: raw.Speed}
		}

		summary, err := trajectory.Summarize(samples)
		if err != nil {
			return err
		}

		path, err := spatial.EncodeLineString(summary.Points)
		if err != nil {
			return apperr.InvalidGeometry(err)
		}

		candidate := &models.TrajectoryArchive{
			AgentID:    agent.ID,
			TaskID:     task.ID,
			Path:       path,
			StartTime:  summary.StartTime,
			EndTime:    summary.EndTime,
			PointCount: summary.PointCount,
			PathLength: summary.PathLength,
			AvgSpeed:   summary.AvgSpeed,
			CreatedAt:  s.now().UTC(),
		}
		if err := repos.Archives.Insert(ctx, candidate); err != nil {
			return err
		}
		archive = candidate
		return nil
	})
	if err != nil {
		s.log.Error("Failed to archive task trajectory",
			zap.Int64("agent_id", agent.ID),
			zap.Int64("task_id", task.ID),
			zap.Error(err))
		return nil, err
	}

	if archive != nil {
		s.log.Info("Archived task trajectory",
			zap.Int64("agent_id", agent.ID),
			zap.Int64("task_id", task.ID),
			zap.Int("point_count", archive.PointCount),
			zap.Float64("path_length", archive.PathLength))
	}
	return archive, nil
}

// ArchiveExistsForTask reports whether the task has been archived
func (s *ArchiveService) ArchiveExistsForTask(ctx context.Context, taskID int64) (bool, error) {
	exists, err := s.repos.Archives.ExistsForTask(ctx, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to check archive: %w", err)
	}
	return exists, nil
}

// GetTaskArchive returns the archive of a task, or ARCHIVE_NOT_FOUND
func (s *ArchiveService) GetTaskArchive(ctx context.Context, taskID int64) (*models.TrajectoryArchive, error) {
	archive, err := s.repos.Archives.GetByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get archive: %w", err)
	}
	if archive == nil {
		return nil, apperr.ArchiveNotFound(taskID)
	}
	return archive, nil
}

// GetAgentTaskArchive returns the archive of a task owned by the agent linked
// to userID
func (s *ArchiveService) GetAgentTaskArchive(ctx context.Context, userID, taskID int64) (*models.TrajectoryArchive, error) {
	if _, _, err := resolveAgentTask(ctx, s.repos, userID, taskID); err != nil {
		return nil, err
	}
	return s.GetTaskArchive(ctx, taskID)
}

// TriggerArchive archives a task on demand. The task must belong to the agent.
func (s *ArchiveService) TriggerArchive(ctx context.Context, agentID, taskID int64) (*ArchiveOutcome, error) {
	agent, err := s.repos.Agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, apperr.New(apperr.CodeAgentNotFound, fmt.Sprintf("agent %d not found", agentID))
	}

	task, err := s.repos.Tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apperr.TaskNotFound(taskID)
	}
	if task.AgentID != agent.ID {
		return nil, apperr.TaskNotOwned(task.ID, agent.ID)
	}

	if existing, err := s.repos.Archives.GetByTask(ctx, taskID); err != nil {
		return nil, fmt.Errorf("failed to check archive: %w", err)
	} else if existing != nil {
		return &ArchiveOutcome{Status: ArchiveAlreadyExists, Archive: existing}, nil
	}

	archive, err := s.CreateTaskArchive(ctx, agent, task)
	switch {
	case errors.Is(err, repository.ErrArchiveExists):
		existing, err := s.repos.Archives.GetByTask(ctx, taskID)
		if err != nil {
			return nil, fmt.Errorf("failed to get archive: %w", err)
		}
		return &ArchiveOutcome{Status: ArchiveAlreadyExists, Archive: existing}, nil
	case err != nil:
		return nil, err
	case archive == nil:
		return &ArchiveOutcome{Status: ArchiveNoLocations}, nil
	default:
		return &ArchiveOutcome{Status: ArchiveCreated, Archive: archive}, nil
	}
}
