package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/jengzang/dispatch-backend-go/internal/database"
	"github.com/jengzang/dispatch-backend-go/internal/models"
)

// ErrArchiveExists is returned by Insert when the task already has an archive
var ErrArchiveExists = errors.New("trajectory archive already exists for task")

// ArchiveRepository handles database operations for trajectory archives
type ArchiveRepository struct {
	base
}

// NewArchiveRepository creates a new archive repository
func NewArchiveRepository(db *database.DB) *ArchiveRepository {
	return &ArchiveRepository{base: newBase(db)}
}

// WithTx returns a copy of the repository bound to tx
func (r *ArchiveRepository) WithTx(tx *sql.Tx) *ArchiveRepository {
	return &ArchiveRepository{base: r.withTx(tx)}
}

// Insert stores a trajectory archive and sets its ID. The unique index on
// task_id turns a concurrent second archive into ErrArchiveExists.
func (r *ArchiveRepository) Insert(ctx context.Context, archive *models.TrajectoryArchive) error {
	query, args, err := r.sb.
		Insert("trajectory_archives").
		Columns("agent_id", "task_id", "path", "start_time", "end_time", "point_count", "path_length", "avg_speed", "created_at").
		Values(
			archive.AgentID,
			archive.TaskID,
			archive.Path,
			toMillis(archive.StartTime),
			toMillis(archive.EndTime),
			archive.PointCount,
			archive.PathLength,
			nullFloat(archive.AvgSpeed),
			toMillis(archive.CreatedAt),
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build archive insert: %w", err)
	}

	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&archive.ID); err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("task %d: %w", archive.TaskID, ErrArchiveExists)
		}
		return fmt.Errorf("failed to insert archive: %w", err)
	}
	return nil
}

// ExistsForTask reports whether the task already has an archive
func (r *ArchiveRepository) ExistsForTask(ctx context.Context, taskID int64) (bool, error) {
	query, args, err := r.sb.
		Select("COUNT(*)").
		From("trajectory_archives").
		Where(squirrel.Eq{"task_id": taskID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build archive count: %w", err)
	}

	var count int
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count archives: %w", err)
	}
	return count > 0, nil
}

// GetByTask retrieves the archive of a task. It returns nil when the task has
// not been archived.
func (r *ArchiveRepository) GetByTask(ctx context.Context, taskID int64) (*models.TrajectoryArchive, error) {
	query, args, err := r.sb.
		Select("id", "agent_id", "task_id", "path", "start_time", "end_time", "point_count", "path_length", "avg_speed", "created_at").
		From("trajectory_archives").
		Where(squirrel.Eq{"task_id": taskID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build archive query: %w", err)
	}

	archive := &models.TrajectoryArchive{}
	var startTime, endTime, createdAt int64
	var avgSpeed sql.NullFloat64

	err = r.q.QueryRowContext(ctx, query, args...).Scan(
		&archive.ID,
		&archive.AgentID,
		&archive.TaskID,
		&archive.Path,
		&startTime,
		&endTime,
		&archive.PointCount,
		&archive.PathLength,
		&avgSpeed,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get archive: %w", err)
	}

	archive.StartTime = fromMillis(startTime)
	archive.EndTime = fromMillis(endTime)
	archive.CreatedAt = fromMillis(createdAt)
	archive.AvgSpeed = floatPtr(avgSpeed)
	return archive, nil
}
