package models

import "time"

// TaskStatus is the lifecycle state of a task
type TaskStatus string

// TaskStatus constants
const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusIncident   TaskStatus = "INCIDENT"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

// AcceptsLocations reports whether location events may be recorded against a task
// in this state
func (s TaskStatus) AcceptsLocations() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the task has ended
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusIncident, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// TerminalTaskStatuses lists every terminal status
var TerminalTaskStatuses = []TaskStatus{TaskStatusCompleted, TaskStatusIncident, TaskStatusCancelled}

// Task represents a unit of work under a service order, assigned to one agent
type Task struct {
	ID             int64      `json:"id" db:"id"`
	ServiceOrderID int64      `json:"serviceOrderId" db:"service_order_id"`
	AgentID        int64      `json:"agentId" db:"agent_id"`
	Status         TaskStatus `json:"status" db:"status"`
	Description    string     `json:"description,omitempty" db:"description"`
	StartTime      *time.Time `json:"startTime,omitempty" db:"start_time"`
	EndTime        *time.Time `json:"endTime,omitempty" db:"end_time"`

	// Assignment point
	AssignLongitude float64 `json:"assignLongitude" db:"assign_longitude"`
	AssignLatitude  float64 `json:"assignLatitude" db:"assign_latitude"`

	// Metadata
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
