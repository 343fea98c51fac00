package service

import (
	"context"

	"github.com/jengzang/dispatch-backend-go/internal/apperr"
	"github.com/jengzang/dispatch-backend-go/internal/models"
	"github.com/jengzang/dispatch-backend-go/internal/repository"
)

// resolveAgent loads the agent linked to userID
func resolveAgent(ctx context.Context, repos *repository.Repositories, userID int64) (*models.Agent, error) {
	agent, err := repos.Agents.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, apperr.AgentNotFound(userID)
	}
	return agent, nil
}

// resolveOwnedTask loads task taskID and checks that it is assigned to agent
func resolveOwnedTask(ctx context.Context, repos *repository.Repositories, agent *models.Agent, taskID int64) (*models.Task, error) {
	task, err := repos.Tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apperr.TaskNotFound(taskID)
	}
	if task.AgentID != agent.ID {
		return nil, apperr.TaskNotOwned(task.ID, agent.ID)
	}
	return task, nil
}

// resolveAgentTask loads the agent linked to userID and its task taskID
func resolveAgentTask(ctx context.Context, repos *repository.Repositories, userID, taskID int64) (*models.Agent, *models.Task, error) {
	agent, err := resolveAgent(ctx, repos, userID)
	if err != nil {
		return nil, nil, err
	}
	task, err := resolveOwnedTask(ctx, repos, agent, taskID)
	if err != nil {
		return nil, nil, err
	}
	return agent, task, nil
}
