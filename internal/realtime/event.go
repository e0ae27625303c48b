// Package realtime carries job and pipeline status events to subscribers.
package realtime

import "time"

type EventType string

const (
	EventJobCreated    EventType = "job_created"
	EventJobProgress   EventType = "job_progress"
	EventJobFailed     EventType = "job_failed"
	EventJobDone       EventType = "job_done"
	EventStatusChanged EventType = "status_changed"
)

// Event is the wire form published on the bus. Channel is the assignment id
// for pipeline events and the owner id for job events.
type Event struct {
	Channel string         `json:"channel"`
	Type    EventType      `json:"type"`
	Data    map[string]any `json:"data,omitempty"`
	At      time.Time      `json:"at"`
}
