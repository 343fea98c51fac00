package models

import (
	"time"

	"github.com/jengzang/dispatch-backend-go/internal/spatial"
)

// RecordLocationRequest is the body of POST /api/agent/:encryptedUserId/locations
type RecordLocationRequest struct {
	Longitude     float64  `json:"longitude" validate:"gte=-180,lte=180"`
	Latitude      float64  `json:"latitude" validate:"gte=-90,lte=90"`
	Accuracy      float64  `json:"accuracy"`
	Speed         *float64 `json:"speed,omitempty"`
	BatteryLevel  *float64 `json:"batteryLevel,omitempty"`
	IsSignificant bool     `json:"isSignificant"`
	Reason        string   `json:"reason,omitempty" validate:"omitempty,oneof=start_task end_task geofence_breach incident checkpoint"`
	TaskID        string   `json:"taskId" validate:"required"`
}

// LocationRecord is the outcome of one ingested location event
type LocationRecord struct {
	TaskToken   string // opaque task identifier as sent by the client
	Agent       *Agent
	Task        *Task
	Raw         *RawLocation
	Significant *SignificantLocation
	Archive     *TrajectoryArchive // set when this event finalized the task
}

// LocationRecordedSummary is the data payload returned after a location is recorded
type LocationRecordedSummary struct {
	LocationID    int64          `json:"locationId"`
	TaskID        string         `json:"taskId"`
	RecordedAt    time.Time      `json:"recordedAt"`
	Longitude     float64        `json:"longitude"`
	Latitude      float64        `json:"latitude"`
	IsSignificant bool           `json:"isSignificant"`
	Reason        LocationReason `json:"reason,omitempty"`
	Archived      bool           `json:"archived"`
}

// ArchiveSummary is the read model of a trajectory archive
type ArchiveSummary struct {
	TaskID          int64     `json:"taskId"`
	AgentID         int64     `json:"agentId"`
	PointCount      int       `json:"pointCount"`
	PathLength      float64   `json:"pathLength"`
	AvgSpeed        *float64  `json:"avgSpeed"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationSeconds float64   `json:"durationSeconds"`
	Path            string    `json:"path"`

	Bounds *spatial.Bounds `json:"bounds,omitempty"`
}

// NewArchiveSummary builds the read model of an archive
func NewArchiveSummary(a *TrajectoryArchive) *ArchiveSummary {
	s := &ArchiveSummary{
		TaskID:          a.TaskID,
		AgentID:         a.AgentID,
		PointCount:      a.PointCount,
		PathLength:      a.PathLength,
		AvgSpeed:        a.AvgSpeed,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		DurationSeconds: a.Duration().Seconds(),
		Path:            a.Path,
	}
	if points, err := spatial.ParseLineString(a.Path); err == nil {
		b := spatial.BoundingBox(points)
		s.Bounds = &b
	}
	return s
}

// Summary builds the response payload of a recorded location
func (r *LocationRecord) Summary(lon, lat float64) *LocationRecordedSummary {
	s := &LocationRecordedSummary{
		LocationID:    r.Raw.ID,
		TaskID:        r.TaskToken,
		RecordedAt:    r.Raw.RecordedAt,
		Longitude:     lon,
		Latitude:      lat,
		IsSignificant: r.Raw.IsSignificant,
		Archived:      r.Archive != nil,
	}
	if r.Significant != nil {
		s.Reason = r.Significant.Reason
	}
	return s
}
