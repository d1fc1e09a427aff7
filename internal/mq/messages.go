package mq

import (
	"encoding/json"
	"time"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/anomaly"
)

// Reading event types
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

const eventRoutingPrefix = "energy.reading."

// IngestMessage carries one reading submitted over the broker instead of HTTP
type IngestMessage struct {
	RequestID  string          `json:"request_id"`
	Source     string          `json:"source,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
	Reading    json.RawMessage `json:"reading"`
}

// ReadingEvent is published after a reading is created, updated or deleted
type ReadingEvent struct {
	Type        string              `json:"type"`
	ReadingID   string              `json:"reading_id"`
	SensorID    string              `json:"sensor_id,omitempty"`
	PowerOutput *float64            `json:"power_output,omitempty"`
	Temperature *float64            `json:"temperature,omitempty"`
	Location    *string             `json:"location,omitempty"`
	OccurredAt  string              `json:"occurred_at"`
	Anomaly     *anomaly.Assessment `json:"anomaly,omitempty"`
}

// RoutingKey returns the topic key for the event, e.g. energy.reading.created
func (e ReadingEvent) RoutingKey() string {
	return eventRoutingPrefix + e.Type
}
