package models

import (
	"encoding/json"
	"time"
)

// ConflictStatus tracks whether a detected conflict still needs attention.
type ConflictStatus string

const (
	ConflictPending  ConflictStatus = "pending"
	ConflictResolved ConflictStatus = "resolved"
)

// ConflictResolution names the whole-record policy applied to a conflict.
// There is deliberately no field-level merge option.
type ConflictResolution string

const (
	ResolutionLocalWins  ConflictResolution = "local_wins"
	ResolutionRemoteWins ConflictResolution = "remote_wins"
	ResolutionManual     ConflictResolution = "manual"
)

// EntityType names a cached-entity collection. Collections double as the
// namespaced cache keys in the durable store.
type EntityType string

const (
	EntityItems      EntityType = "items"
	EntitySessions   EntityType = "sessions"
	EntityCountLines EntityType = "count_lines"
	EntityUnknown    EntityType = "unknown_items"
)

// SyncConflict is a queued mutation whose assumed prior server state no
// longer matches reality. Local and Remote hold whole-record snapshots at
// detection time; QueueItemID links back to the held mutation while the
// conflict is pending manual resolution.
type SyncConflict struct {
	ID          string             `json:"id"`
	EntityType  EntityType         `json:"entity_type"`
	EntityID    string             `json:"entity_id"`
	QueueItemID string             `json:"queue_item_id"`
	Local       json.RawMessage    `json:"local"`
	Remote      json.RawMessage    `json:"remote"`
	DetectedAt  time.Time          `json:"detected_at"`
	Status      ConflictStatus     `json:"status"`
	Resolution  ConflictResolution `json:"resolution,omitempty"`
	ResolvedAt  *time.Time         `json:"resolved_at,omitempty"`
}
