// Package realtime pushes location updates to live subscribers. Delivery is
// best effort: failures are retried, logged and dropped, never surfaced to the
// request that produced the update.
package realtime

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jengzang/dispatch-backend-go/internal/config"
	"github.com/jengzang/dispatch-backend-go/internal/models"
	"github.com/jengzang/dispatch-backend-go/internal/spatial"
)

// Publisher delivers a payload to every subscriber of topic
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Noop discards every message
type Noop struct{}

// Publish implements Publisher
func (Noop) Publish(context.Context, string, []byte) error { return nil }

// Topic is the channel a task's location updates are published on
func Topic(agentID, taskID int64) string {
	return fmt.Sprintf("agents/%d/tasks/%d/locations", agentID, taskID)
}

// LocationUpdate is the message published after a location is recorded
type LocationUpdate struct {
	MessageID     string                `json:"messageId"`
	AgentID       int64                 `json:"agentId"`
	TaskID        int64                 `json:"taskId"`
	LocationID    int64                 `json:"locationId"`
	Longitude     float64               `json:"longitude"`
	Latitude      float64               `json:"latitude"`
	Accuracy      float64               `json:"accuracy"`
	Speed         *float64              `json:"speed,omitempty"`
	BatteryLevel  *float64              `json:"batteryLevel,omitempty"`
	IsSignificant bool                  `json:"isSignificant"`
	Reason        models.LocationReason `json:"reason,omitempty"`
	RecordedAt    time.Time             `json:"recordedAt"`
}

// NewLocationUpdate builds the message for a recorded location
func NewLocationUpdate(raw *models.RawLocation, significant *models.SignificantLocation) LocationUpdate {
	lon, lat := spatial.DecodePoint(raw.Point)
	update := LocationUpdate{
		AgentID:       raw.AgentID,
		TaskID:        raw.TaskID,
		LocationID:    raw.ID,
		Longitude:     lon,
		Latitude:      lat,
		Accuracy:      raw.Accuracy,
		Speed:         raw.Speed,
		BatteryLevel:  raw.BatteryLevel,
		IsSignificant: raw.IsSignificant,
		RecordedAt:    raw.RecordedAt,
	}
	if significant != nil {
		update.Reason = significant.Reason
	}
	return update
}

// New builds the publisher selected by cfg.Driver. An empty driver or "none"
// yields Noop.
func New(cfg config.RealtimeConfig, log *zap.Logger) (Publisher, error) {
	switch cfg.Driver {
	case "", "none":
		return Noop{}, nil
	case "redis":
		return NewRedisPublisher(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB), nil
	case "amqp":
		return NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
	case "mercure":
		return NewMercurePublisher(cfg.Mercure.URL, cfg.Mercure.JWTKey, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown realtime driver: %s", cfg.Driver)
	}
}
