package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/jengzang/dispatch-backend-go/internal/database"
	"github.com/jengzang/dispatch-backend-go/internal/models"
)

var taskColumns = []string{
	"id", "service_order_id", "agent_id", "status", "description", "start_time", "end_time",
	"assign_longitude", "assign_latitude", "created_at", "updated_at",
}

// TaskRepository handles database operations for tasks
type TaskRepository struct {
	base
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.DB) *TaskRepository {
	return &TaskRepository{base: newBase(db)}
}

// WithTx returns a copy of the repository bound to tx
func (r *TaskRepository) WithTx(tx *sql.Tx) *TaskRepository {
	return &TaskRepository{base: r.withTx(tx)}
}

// Create inserts a new task and sets its ID
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}

	query, args, err := r.sb.
		Insert("tasks").
		Columns(taskColumns[1:]...).
		Values(
			task.ServiceOrderID,
			task.AgentID,
			string(task.Status),
			task.Description,
			nullMillis(task.StartTime),
			nullMillis(task.EndTime),
			task.AssignLongitude,
			task.AssignLatitude,
			toMillis(task.CreatedAt),
			toMillis(task.UpdatedAt),
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build task insert: %w", err)
	}

	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&task.ID); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by ID. It returns nil when the task does not exist.
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	query, args, err := r.sb.
		Select(taskColumns...).
		From("tasks").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build task query: %w", err)
	}

	task, err := scanTask(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// FindUnarchivedTerminal returns up to limit terminal tasks with id greater
// than afterID that have raw locations of their own agent but no trajectory
// archive, in id order
func (r *TaskRepository) FindUnarchivedTerminal(ctx context.Context, afterID int64, limit uint64) ([]models.Task, error) {
	statuses := make([]string, len(models.TerminalTaskStatuses))
	for i, s := range models.TerminalTaskStatuses {
		statuses[i] = string(s)
	}

	columns := make([]string, len(taskColumns))
	for i, c := range taskColumns {
		columns[i] = "t." + c
	}

	query, args, err := r.sb.
		Select(columns...).
		From("tasks t").
		Where(squirrel.Eq{"t.status": statuses}).
		Where(squirrel.Gt{"t.id": afterID}).
		Where("EXISTS (SELECT 1 FROM raw_locations rl WHERE rl.task_id = t.id AND rl.agent_id = t.agent_id)").
		Where("NOT EXISTS (SELECT 1 FROM trajectory_archives ta WHERE ta.task_id = t.id)").
		OrderBy("t.id").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build unarchived task query: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query unarchived tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}

	return tasks, rows.Err()
}

// UpdateStatus changes the status of a task
func (r *TaskRepository) UpdateStatus(ctx context.Context, id int64, status models.TaskStatus, at time.Time) error {
	query, args, err := r.sb.
		Update("tasks").
		Set("status", string(status)).
		Set("updated_at", toMillis(at)).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build task update: %w", err)
	}

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("task not found: %d", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var startTime, endTime sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(
		&task.ID,
		&task.ServiceOrderID,
		&task.AgentID,
		&task.Status,
		&task.Description,
		&startTime,
		&endTime,
		&task.AssignLongitude,
		&task.AssignLatitude,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.StartTime = timePtr(startTime)
	task.EndTime = timePtr(endTime)
	task.CreatedAt = fromMillis(createdAt)
	task.UpdatedAt = fromMillis(updatedAt)
	return task, nil
}
