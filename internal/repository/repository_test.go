package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jengzang/dispatch-backend-go/internal/database"
	"github.com/jengzang/dispatch-backend-go/internal/models"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "repo.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrationManager(db, zap.NewNop()).RunMigrations(ctx))
	return db
}

func seedAgentAndTask(t *testing.T, db *database.DB, status models.TaskStatus) (*models.Agent, *models.Task) {
	t.Helper()
	ctx := context.Background()

	agent := &models.Agent{UserID: 42, Address: "1 Rue de Rivoli", Gender: models.GenderFemale, CreatedAt: t0}
	require.NoError(t, NewAgentRepository(db).Create(ctx, agent))

	task := &models.Task{
		ServiceOrderID:  9,
		AgentID:         agent.ID,
		Status:          status,
		Description:     "patrol",
		AssignLongitude: 2.35,
		AssignLatitude:  48.85,
		CreatedAt:       t0,
	}
	require.NoError(t, NewTaskRepository(db).Create(ctx, task))
	return agent, task
}

func TestAgentRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewAgentRepository(db)
	ctx := context.Background()

	agent, _ := seedAgentAndTask(t, db, models.TaskStatusPending)
	assert.NotZero(t, agent.ID)

	byUser, err := repo.GetByUserID(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, byUser)
	assert.Equal(t, agent.ID, byUser.ID)
	assert.Equal(t, models.GenderFemale, byUser.Gender)
	assert.True(t, t0.Equal(byUser.CreatedAt))

	byID, err := repo.GetByID(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), byID.UserID)

	missing, err := repo.GetByUserID(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTaskRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	agent, task := seedAgentAndTask(t, db, models.TaskStatusInProgress)

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, agent.ID, got.AgentID)
	assert.Equal(t, models.TaskStatusInProgress, got.Status)
	assert.Nil(t, got.StartTime)
	assert.InDelta(t, 48.85, got.AssignLatitude, 1e-9)

	require.NoError(t, repo.UpdateStatus(ctx, task.ID, models.TaskStatusCompleted, t0.Add(time.Hour)))
	got, err = repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)

	assert.Error(t, repo.UpdateStatus(ctx, 999, models.TaskStatusCompleted, t0))

	missing, err := repo.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLocationRepositoryOrdersByRecordedAt(t *testing.T) {
	db := openTestDB(t)
	repo := NewLocationRepository(db)
	ctx := context.Background()

	agent, task := seedAgentAndTask(t, db, models.TaskStatusInProgress)
	speed := 3.5

	// inserted out of order on purpose
	for i, offset := range []time.Duration{2 * time.Minute, 0, time.Minute} {
		loc := &models.RawLocation{
			AgentID:    agent.ID,
			TaskID:     task.ID,
			Point:      "POINT(2.350000 48.850000)",
			RecordedAt: t0.Add(offset),
			Accuracy:   10,
		}
		if i == 0 {
			loc.Speed = &speed
			loc.IsSignificant = true
		}
		require.NoError(t, repo.InsertRaw(ctx, loc))
		assert.NotZero(t, loc.ID)
	}

	locations, err := repo.ListRawByTask(ctx, agent.ID, task.ID)
	require.NoError(t, err)
	require.Len(t, locations, 3)
	assert.True(t, t0.Equal(locations[0].RecordedAt))
	assert.True(t, t0.Add(2*time.Minute).Equal(locations[2].RecordedAt))
	require.NotNil(t, locations[2].Speed)
	assert.Equal(t, 3.5, *locations[2].Speed)
	assert.True(t, locations[2].IsSignificant)
	assert.Nil(t, locations[0].Speed)
	assert.Nil(t, locations[0].BatteryLevel)

	other, err := repo.ListRawByTask(ctx, agent.ID+1, task.ID)
	require.NoError(t, err)
	assert.Empty(t, other)

	sig := &models.SignificantLocation{
		AgentID:    agent.ID,
		TaskID:     task.ID,
		Point:      "POINT(2.350000 48.850000)",
		RecordedAt: t0,
		Reason:     models.ReasonCheckpoint,
	}
	require.NoError(t, repo.InsertSignificant(ctx, sig))

	events, err := repo.ListSignificantByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.ReasonCheckpoint, events[0].Reason)
}

func TestArchiveRepositoryUniquePerTask(t *testing.T) {
	db := openTestDB(t)
	repo := NewArchiveRepository(db)
	ctx := context.Background()

	agent, task := seedAgentAndTask(t, db, models.TaskStatusCompleted)

	exists, err := repo.ExistsForTask(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	avg := 4.0
	archive := &models.TrajectoryArchive{
		AgentID:    agent.ID,
		TaskID:     task.ID,
		Path:       "LINESTRING(2.350000 48.850000,2.351000 48.851000)",
		StartTime:  t0,
		EndTime:    t0.Add(10 * time.Minute),
		PointCount: 2,
		PathLength: 133.2,
		AvgSpeed:   &avg,
		CreatedAt:  t0.Add(11 * time.Minute),
	}
	require.NoError(t, repo.Insert(ctx, archive))
	assert.NotZero(t, archive.ID)

	exists, err = repo.ExistsForTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	dup := *archive
	dup.ID = 0
	err = repo.Insert(ctx, &dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrArchiveExists))

	got, err := repo.GetByTask(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.PointCount)
	assert.Equal(t, 10*time.Minute, got.Duration())
	require.NotNil(t, got.AvgSpeed)
	assert.Equal(t, 4.0, *got.AvgSpeed)

	none, err := repo.GetByTask(ctx, task.ID+1)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestFindUnarchivedTerminal(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tasks := NewTaskRepository(db)
	locations := NewLocationRepository(db)

	agent, done := seedAgentAndTask(t, db, models.TaskStatusCompleted)

	active := &models.Task{ServiceOrderID: 9, AgentID: agent.ID, Status: models.TaskStatusInProgress, CreatedAt: t0}
	require.NoError(t, tasks.Create(ctx, active))
	empty := &models.Task{ServiceOrderID: 9, AgentID: agent.ID, Status: models.TaskStatusCancelled, CreatedAt: t0}
	require.NoError(t, tasks.Create(ctx, empty))

	for _, id := range []int64{done.ID, active.ID} {
		require.NoError(t, locations.InsertRaw(ctx, &models.RawLocation{
			AgentID: agent.ID, TaskID: id, Point: "POINT(0.000000 0.000000)", RecordedAt: t0, Accuracy: 5,
		}))
	}

	found, err := tasks.FindUnarchivedTerminal(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, done.ID, found[0].ID)

	require.NoError(t, NewArchiveRepository(db).Insert(ctx, &models.TrajectoryArchive{
		AgentID: agent.ID, TaskID: done.ID, Path: "LINESTRING(0 0,0 0)", StartTime: t0, EndTime: t0, PointCount: 1, CreatedAt: t0,
	}))

	found, err = tasks.FindUnarchivedTerminal(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFindUnarchivedTerminalCursorAndOwnership(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tasks := NewTaskRepository(db)
	locations := NewLocationRepository(db)

	agent, first := seedAgentAndTask(t, db, models.TaskStatusCompleted)
	other := &models.Agent{UserID: 99, CreatedAt: t0}
	require.NoError(t, NewAgentRepository(db).Create(ctx, other))

	second := &models.Task{ServiceOrderID: 9, AgentID: agent.ID, Status: models.TaskStatusCompleted, CreatedAt: t0}
	require.NoError(t, tasks.Create(ctx, second))
	foreign := &models.Task{ServiceOrderID: 9, AgentID: agent.ID, Status: models.TaskStatusCompleted, CreatedAt: t0}
	require.NoError(t, tasks.Create(ctx, foreign))

	for _, loc := range []struct{ agentID, taskID int64 }{
		{agent.ID, first.ID}, {agent.ID, second.ID}, {other.ID, foreign.ID},
	} {
		require.NoError(t, locations.InsertRaw(ctx, &models.RawLocation{
			AgentID: loc.agentID, TaskID: loc.taskID, Point: "POINT(0.000000 0.000000)", RecordedAt: t0, Accuracy: 5,
		}))
	}

	found, err := tasks.FindUnarchivedTerminal(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, first.ID, found[0].ID)

	found, err = tasks.FindUnarchivedTerminal(ctx, first.ID, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, second.ID, found[0].ID)

	found, err = tasks.FindUnarchivedTerminal(ctx, second.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestWithTxRollsBackRepositoryWrites(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	agents := NewAgentRepository(db)

	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := agents.WithTx(tx).Create(ctx, &models.Agent{UserID: 1, CreatedAt: t0}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	got, err := agents.GetByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}
