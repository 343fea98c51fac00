package models

import (
	"fmt"
	"time"
)

// LocationReason explains why a reading was flagged as significant
type LocationReason string

// LocationReason constants. Only ReasonEndTask drives behaviour today; the rest are
// recorded as-is.
const (
	ReasonStartTask      LocationReason = "start_task"
	ReasonEndTask        LocationReason = "end_task"
	ReasonGeofenceBreach LocationReason = "geofence_breach"
	ReasonIncident       LocationReason = "incident"
	ReasonCheckpoint     LocationReason = "checkpoint"
)

// LocationReasons lists every accepted reason
var LocationReasons = []LocationReason{
	ReasonStartTask,
	ReasonEndTask,
	ReasonGeofenceBreach,
	ReasonIncident,
	ReasonCheckpoint,
}

// ParseLocationReason converts a wire value into a LocationReason
func ParseLocationReason(s string) (LocationReason, error) {
	for _, r := range LocationReasons {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown location reason %q", s)
}

// TriggersArchive reports whether a committed event with this reason finalizes
// the task trajectory
func (r LocationReason) TriggersArchive() bool {
	return r == ReasonEndTask
}

// RawLocation is one GPS sample reported by an agent while working a task
type RawLocation struct {
	ID            int64     `json:"id" db:"id"`
	AgentID       int64     `json:"agentId" db:"agent_id"`
	TaskID        int64     `json:"taskId" db:"task_id"`
	Point         string    `json:"point" db:"point"` // POINT(lon lat)
	RecordedAt    time.Time `json:"recordedAt" db:"recorded_at"`
	Accuracy      float64   `json:"accuracy" db:"accuracy"`                    // meters
	Speed         *float64  `json:"speed,omitempty" db:"speed"`                // m/s
	BatteryLevel  *float64  `json:"batteryLevel,omitempty" db:"battery_level"` // 0-100
	IsSignificant bool      `json:"isSignificant" db:"is_significant"`
}

// SignificantLocation marks a raw sample as a notable event
type SignificantLocation struct {
	ID         int64          `json:"id" db:"id"`
	AgentID    int64          `json:"agentId" db:"agent_id"`
	TaskID     int64          `json:"taskId" db:"task_id"`
	Point      string         `json:"point" db:"point"`
	RecordedAt time.Time      `json:"recordedAt" db:"recorded_at"`
	Reason     LocationReason `json:"reason" db:"reason"`
}
