package models

import "time"

// EventType enumerates the engine notifications exposed to the UI layer.
// These are observation points only; the UI reads snapshots and issues writes
// through the service layer, never by driving queue internals.
type EventType string

const (
	EventQueueLengthChanged EventType = "queue_length_changed"
	EventSyncStarted        EventType = "sync_started"
	EventSyncCompleted      EventType = "sync_completed"
	EventSyncFailed         EventType = "sync_failed"
	EventConflictDetected   EventType = "conflict_detected"
	EventItemParked         EventType = "item_parked"
)

// Event is a single engine notification.
type Event struct {
	Type EventType `json:"type"`
	At   time.Time `json:"at"`

	// QueueLength is set on EventQueueLengthChanged.
	QueueLength int `json:"queue_length,omitempty"`

	// Delivered/Deferred/Parked summarise a finished drain cycle on
	// EventSyncCompleted.
	Delivered int `json:"delivered,omitempty"`
	Deferred  int `json:"deferred,omitempty"`
	Parked    int `json:"parked,omitempty"`

	// Error carries the failure summary on EventSyncFailed and EventItemParked.
	Error string `json:"error,omitempty"`

	// Conflict is set on EventConflictDetected.
	Conflict *SyncConflict `json:"conflict,omitempty"`

	// QueueItemID is set on EventItemParked.
	QueueItemID string `json:"queue_item_id,omitempty"`
}
