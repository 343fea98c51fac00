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

var agentColumns = []string{"id", "user_id", "address", "gender", "profile_picture_url", "created_at"}

// AgentRepository handles database operations for agents
type AgentRepository struct {
	base
}

// NewAgentRepository creates a new agent repository
func NewAgentRepository(db *database.DB) *AgentRepository {
	return &AgentRepository{base: newBase(db)}
}

// WithTx returns a copy of the repository bound to tx
func (r *AgentRepository) WithTx(tx *sql.Tx) *AgentRepository {
	return &AgentRepository{base: r.withTx(tx)}
}

// Create inserts a new agent and sets its ID
func (r *AgentRepository) Create(ctx context.Context, agent *models.Agent) error {
	if agent.Gender == "" {
		agent.Gender = models.GenderUnspecified
	}

	query, args, err := r.sb.
		Insert("agents").
		Columns("user_id", "address", "gender", "profile_picture_url", "created_at").
		Values(agent.UserID, agent.Address, string(agent.Gender), agent.ProfilePictureURL, toMillis(agent.CreatedAt)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build agent insert: %w", err)
	}

	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&agent.ID); err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

// GetByUserID retrieves the agent linked to a platform user. It returns nil
// when no agent is linked.
func (r *AgentRepository) GetByUserID(ctx context.Context, userID int64) (*models.Agent, error) {
	return r.getOne(ctx, "user_id", userID)
}

// GetByID retrieves an agent by ID. It returns nil when the agent does not exist.
func (r *AgentRepository) GetByID(ctx context.Context, id int64) (*models.Agent, error) {
	return r.getOne(ctx, "id", id)
}

func (r *AgentRepository) getOne(ctx context.Context, column string, value int64) (*models.Agent, error) {
	query, args, err := r.sb.
		Select(agentColumns...).
		From("agents").
		Where(squirrel.Eq{column: value}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build agent query: %w", err)
	}

	agent := &models.Agent{}
	var createdAt int64
	err = r.q.QueryRowContext(ctx, query, args...).Scan(
		&agent.ID,
		&agent.UserID,
		&agent.Address,
		&agent.Gender,
		&agent.ProfilePictureURL,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent by %s: %w", column, err)
	}

	agent.CreatedAt = fromMillis(createdAt)
	return agent, nil
}
