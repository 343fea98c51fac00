package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jengzang/dispatch-backend-go/internal/apperr"
	"github.com/jengzang/dispatch-backend-go/internal/database"
	"github.com/jengzang/dispatch-backend-go/internal/identity"
	"github.com/jengzang/dispatch-backend-go/internal/models"
	"github.com/jengzang/dispatch-backend-go/internal/realtime"
	"github.com/jengzang/dispatch-backend-go/internal/repository"
	"github.com/jengzang/dispatch-backend-go/internal/spatial"
	"github.com/jengzang/dispatch-backend-go/internal/validation"
)

// DefaultWriteTimeout bounds the transactional part of RecordLocation
const DefaultWriteTimeout = 5 * time.Second

// LocationService ingests agent location events
type LocationService struct {
	db         *database.DB
	repos      *repository.Repositories
	codec      *identity.Codec
	validator  *validation.Validator
	archiver   *ArchiveService
	dispatcher *realtime.Dispatcher
	log        *zap.Logger

	rules        CredibilityRules
	writeTimeout time.Duration
	now          func() time.Time
}

// LocationOption customizes a LocationService
type LocationOption func(*LocationService)

// WithClock replaces the clock that stamps recorded locations
func WithClock(now func() time.Time) LocationOption {
	return func(s *LocationService) { s.now = now }
}

// WithWriteTimeout bounds the location write transaction
func WithWriteTimeout(d time.Duration) LocationOption {
	return func(s *LocationService) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithCredibilityRules replaces DefaultCredibilityRules
func WithCredibilityRules(r CredibilityRules) LocationOption {
	return func(s *LocationService) { s.rules = r }
}

// NewLocationService creates a new location service
func NewLocationService(
	db *database.DB,
	repos *repository.Repositories,
	codec *identity.Codec,
	validator *validation.Validator,
	archiver *ArchiveService,
	dispatcher *realtime.Dispatcher,
	log *zap.Logger,
	opts ...LocationOption,
) *LocationService {
	s := &LocationService{
		db:           db,
		repos:        repos,
		codec:        codec,
		validator:    validator,
		archiver:     archiver,
		dispatcher:   dispatcher,
		log:          log,
		rules:        DefaultCredibilityRules,
		writeTimeout: DefaultWriteTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessLocationRequest validates a raw request body and records it
func (s *LocationService) ProcessLocationRequest(ctx context.Context, encryptedUserID string, body []byte) (*models.LocationRecord, error) {
	req, err := s.validator.DecodeLocationRequest(body)
	if err != nil {
		return nil, err
	}
	return s.RecordLocation(ctx, encryptedUserID, req)
}

// RecordLocation stores one location event for the agent behind
// encryptedUserID. The raw sample and its optional significant event are
// written in one transaction. Archival and realtime publishing run after the
// commit and never fail the call.
func (s *LocationService) RecordLocation(ctx context.Context, encryptedUserID string, req models.RecordLocationRequest) (*models.LocationRecord, error) {
	userID, err := s.codec.Decode(encryptedUserID, identity.KindUser)
	if err != nil {
		return nil, apperr.InvalidIdentifier("user", err)
	}

	var reason models.LocationReason
	if req.Reason != "" {
		if reason, err = models.ParseLocationReason(req.Reason); err != nil {
			return nil, apperr.ValidationFailed(map[string]string{"reason": err.Error()})
		}
	}

	wctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	var taskID int64
	record := &models.LocationRecord{TaskToken: req.TaskID}
	err = s.db.Transaction(wctx, func(tx *sql.Tx) error {
		repos := s.repos.WithTx(tx)

		agent, err := resolveAgent(wctx, repos, userID)
		if err != nil {
			return err
		}
		if taskID, err = s.codec.Decode(req.TaskID, identity.KindTask); err != nil {
			return apperr.InvalidIdentifier("task", err)
		}
		task, err := resolveOwnedTask(wctx, repos, agent, taskID)
		if err != nil {
			return err
		}
		if !task.Status.AcceptsLocations() {
			return apperr.TaskNotActive(task.ID, string(task.Status))
		}

		if !s.rules.IsCredible(LocationCandidate{
			Accuracy:      req.Accuracy,
			Speed:         req.Speed,
			BatteryLevel:  req.BatteryLevel,
			IsSignificant: req.IsSignificant,
			Reason:        req.Reason,
		}) {
			return apperr.ImplausibleLocation()
		}

		// one timestamp for both rows of the same physical event
		recordedAt := s.now().UTC().Truncate(time.Millisecond)
		point := spatial.EncodePoint(req.Longitude, req.Latitude)

		raw := &models.RawLocation{
			AgentID:       agent.ID,
			TaskID:        task.ID,
			Point:         point,
			RecordedAt:    recordedAt,
			Accuracy:      req.Accuracy,
			Speed:         req.Speed,
			BatteryLevel:  req.BatteryLevel,
			IsSignificant: req.IsSignificant,
		}
		if err := repos.Locations.InsertRaw(wctx, raw); err != nil {
			return err
		}

		var significant *models.SignificantLocation
		if req.IsSignificant && reason != "" {
			significant = &models.SignificantLocation{
				AgentID:    agent.ID,
				TaskID:     task.ID,
				Point:      point,
				RecordedAt: recordedAt,
				Reason:     reason,
			}
			if err := repos.Locations.InsertSignificant(wctx, significant); err != nil {
				return err
			}
		}

		record.Agent = agent
		record.Task = task
		record.Raw = raw
		record.Significant = significant
		return nil
	})
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			s.log.Error("Failed to record location", zap.Int64("user_id", userID), zap.Int64("task_id", taskID), zap.Error(err))
		}
		return nil, err
	}

	// The write is committed. What follows must not outlive the caller's
	// cancellation nor fail the call.
	bg := context.WithoutCancel(ctx)

	if reason.TriggersArchive() {
		record.Archive = s.archiveAfterCommit(bg, record.Agent, record.Task)
	}

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(realtime.NewLocationUpdate(record.Raw, record.Significant))
	}

	return record, nil
}

func (s *LocationService) archiveAfterCommit(ctx context.Context, agent *models.Agent, task *models.Task) *models.TrajectoryArchive {
	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	exists, err := s.archiver.ArchiveExistsForTask(ctx, task.ID)
	if err != nil {
		s.log.Error("Failed to check trajectory archive",
			zap.Int64("agent_id", agent.ID),
			zap.Int64("task_id", task.ID),
			zap.Error(err))
		return nil
	}
	if exists {
		s.log.Debug("Task already archived, skipping", zap.Int64("task_id", task.ID))
		return nil
	}

	archive, err := s.archiver.CreateTaskArchive(ctx, agent, task)
	if errors.Is(err, repository.ErrArchiveExists) {
		s.log.Info("Task archived concurrently, skipping", zap.Int64("task_id", task.ID))
		return nil
	}
	if err != nil {
		// already logged by the archiver; the location write stands
		return nil
	}
	return archive
}
