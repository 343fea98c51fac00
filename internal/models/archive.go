package models

import "time"

// TrajectoryArchive is the finalized per-task trajectory summary
type TrajectoryArchive struct {
	ID         int64     `json:"id" db:"id"`
	AgentID    int64     `json:"agentId" db:"agent_id"`
	TaskID     int64     `json:"taskId" db:"task_id"`
	Path       string    `json:"path" db:"path"` // LINESTRING(...)
	StartTime  time.Time `json:"startTime" db:"start_time"`
	EndTime    time.Time `json:"endTime" db:"end_time"`
	PointCount int       `json:"pointCount" db:"point_count"`
	PathLength float64   `json:"pathLength" db:"path_length"`       // meters
	AvgSpeed   *float64  `json:"avgSpeed,omitempty" db:"avg_speed"` // m/s
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// Duration returns the time covered by the archive
func (a *TrajectoryArchive) Duration() time.Duration {
	return a.EndTime.Sub(a.StartTime)
}
