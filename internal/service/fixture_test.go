package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jengzang/dispatch-backend-go/internal/database"
	"github.com/jengzang/dispatch-backend-go/internal/identity"
	"github.com/jengzang/dispatch-backend-go/internal/models"
	"github.com/jengzang/dispatch-backend-go/internal/realtime"
	"github.com/jengzang/dispatch-backend-go/internal/repository"
	"github.com/jengzang/dispatch-backend-go/internal/validation"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

// fixture is a location pipeline over a temp-file sqlite database with a
// clock that advances one minute per reading
type fixture struct {
	db         *database.DB
	repos      *repository.Repositories
	codec      *identity.Codec
	archives   *ArchiveService
	locations  *LocationService
	dispatcher *realtime.Dispatcher
	publisher  *recordingPublisher

	mu    sync.Mutex
	ticks int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "svc.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrationManager(db, zap.NewNop()).RunMigrations(ctx))

	codec, err := identity.NewCodec("test-secret")
	require.NoError(t, err)
	v, err := validation.New()
	require.NoError(t, err)

	f := &fixture{db: db, repos: repository.NewRepositories(db), codec: codec, publisher: &recordingPublisher{}}
	f.archives = NewArchiveService(db, f.repos, zap.NewNop())
	f.archives.now = func() time.Time { return t0.Add(24 * time.Hour) }
	f.dispatcher = realtime.NewDispatcher(f.publisher, realtime.RetryPolicy{Retries: 3}, time.Second, zap.NewNop())
	f.locations = NewLocationService(db, f.repos, codec, v, f.archives, f.dispatcher, zap.NewNop(),
		WithClock(f.clock),
		WithWriteTimeout(5*time.Second),
	)
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := t0.Add(time.Duration(f.ticks) * time.Minute)
	f.ticks++
	return now
}

func (f *fixture) seedAgent(t *testing.T, userID int64) *models.Agent {
	t.Helper()
	agent := &models.Agent{UserID: userID, CreatedAt: t0}
	require.NoError(t, f.repos.Agents.Create(context.Background(), agent))
	return agent
}

func (f *fixture) seedTask(t *testing.T, agent *models.Agent, status models.TaskStatus) *models.Task {
	t.Helper()
	task := &models.Task{ServiceOrderID: 1, AgentID: agent.ID, Status: status, CreatedAt: t0}
	require.NoError(t, f.repos.Tasks.Create(context.Background(), task))
	return task
}

func (f *fixture) userToken(t *testing.T, agent *models.Agent) string {
	t.Helper()
	token, err := f.codec.Encode(agent.UserID, identity.KindUser)
	require.NoError(t, err)
	return token
}

func (f *fixture) taskToken(t *testing.T, task *models.Task) string {
	t.Helper()
	token, err := f.codec.Encode(task.ID, identity.KindTask)
	require.NoError(t, err)
	return token
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func ptr(v float64) *float64 { return &v }
