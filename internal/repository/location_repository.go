package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/jengzang/dispatch-backend-go/internal/database"
	"github.com/jengzang/dispatch-backend-go/internal/models"
)

// LocationRepository handles database operations for raw and significant locations
type LocationRepository struct {
	base
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *database.DB) *LocationRepository {
	return &LocationRepository{base: newBase(db)}
}

// WithTx returns a copy of the repository bound to tx
func (r *LocationRepository) WithTx(tx *sql.Tx) *LocationRepository {
	return &LocationRepository{base: r.withTx(tx)}
}

// InsertRaw stores a raw location sample and sets its ID
func (r *LocationRepository) InsertRaw(ctx context.Context, loc *models.RawLocation) error {
	query, args, err := r.sb.
		Insert("raw_locations").
		Columns("agent_id", "task_id", "point", "recorded_at", "accuracy", "speed", "battery_level", "is_significant").
		Values(
			loc.AgentID,
			loc.TaskID,
			loc.Point,
			toMillis(loc.RecordedAt),
			loc.Accuracy,
			nullFloat(loc.Speed),
			nullFloat(loc.BatteryLevel),
			loc.IsSignificant,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build raw location insert: %w", err)
	}

	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&loc.ID); err != nil {
		return fmt.Errorf("failed to insert raw location: %w", err)
	}
	return nil
}

// InsertSignificant stores a significant location event and sets its ID
func (r *LocationRepository) InsertSignificant(ctx context.Context, loc *models.SignificantLocation) error {
	query, args, err := r.sb.
		Insert("significant_locations").
		Columns("agent_id", "task_id", "point", "recorded_at", "reason").
		Values(loc.AgentID, loc.TaskID, loc.Point, toMillis(loc.RecordedAt), string(loc.Reason)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build significant location insert: %w", err)
	}

	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&loc.ID); err != nil {
		return fmt.Errorf("failed to insert significant location: %w", err)
	}
	return nil
}

// ListRawByTask returns the raw locations an agent reported for a task,
// ordered by recorded time then insertion order
func (r *LocationRepository) ListRawByTask(ctx context.Context, agentID, taskID int64) ([]models.RawLocation, error) {
	query, args, err := r.sb.
		Select("id", "agent_id", "task_id", "point", "recorded_at", "accuracy", "speed", "battery_level", "is_significant").
		From("raw_locations").
		Where(squirrel.Eq{"agent_id": agentID, "task_id": taskID}).
		OrderBy("recorded_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build raw location query: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query raw locations: %w", err)
	}
	defer rows.Close()

	var locations []models.RawLocation
	for rows.Next() {
		var loc models.RawLocation
		var recordedAt int64
		var speed, battery sql.NullFloat64

		if err := rows.Scan(
			&loc.ID,
			&loc.AgentID,
			&loc.TaskID,
			&loc.Point,
			&recordedAt,
			&loc.Accuracy,
			&speed,
			&battery,
			&loc.IsSignificant,
		); err != nil {
			return nil, fmt.Errorf("failed to scan raw location: %w", err)
		}

		loc.RecordedAt = fromMillis(recordedAt)
		loc.Speed = floatPtr(speed)
		loc.BatteryLevel = floatPtr(battery)
		locations = append(locations, loc)
	}

	return locations, rows.Err()
}

// ListSignificantByTask returns the significant events of a task in recorded order
func (r *LocationRepository) ListSignificantByTask(ctx context.Context, taskID int64) ([]models.SignificantLocation, error) {
	query, args, err := r.sb.
		Select("id", "agent_id", "task_id", "point", "recorded_at", "reason").
		From("significant_locations").
		Where(squirrel.Eq{"task_id": taskID}).
		OrderBy("recorded_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build significant location query: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query significant locations: %w", err)
	}
	defer rows.Close()

	var locations []models.SignificantLocation
	for rows.Next() {
		var loc models.SignificantLocation
		var recordedAt int64
		if err := rows.Scan(&loc.ID, &loc.AgentID, &loc.TaskID, &loc.Point, &recordedAt, &loc.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan significant location: %w", err)
		}
		loc.RecordedAt = fromMillis(recordedAt)
		locations = append(locations, loc)
	}

	return locations, rows.Err()
}
