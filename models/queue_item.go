// SPDX-License-Identifier: Apache-2.0

package models

import (
	"errors"
	"fmt"
	"time"
)

// MutationKind identifies the remote operation a queue item represents.
// The set is closed: the drain loop switches over every kind and treats an
// unknown value as a programming error rather than skipping it.
type MutationKind string

const (
	MutationCreateSession   MutationKind = "create_session"
	MutationReopenSession   MutationKind = "reopen_session"
	MutationCreateCountLine MutationKind = "create_count_line"
	MutationUpdateCountLine MutationKind = "update_count_line"
	MutationCreateUnknown   MutationKind = "create_unknown_item"
)

// ErrUnknownMutationKind is returned when a queue item carries a kind the
// engine does not recognise (e.g. written by a newer client version).
var ErrUnknownMutationKind = errors.New("unknown mutation kind")

// ErrorSummary is the compact, typed record of a delivery failure kept on a
// queue item across process restarts. Raw transport errors never persist.
type ErrorSummary struct {
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	At         time.Time `json:"at"`
}

// SessionMutation is the payload of session-kind queue items. BaseVersion is
// the server version the mutation was generated against; the server rejects
// the delivery with a conflict when its current version has moved past it.
type SessionMutation struct {
	Session     Session `json:"session"`
	BaseVersion int64   `json:"base_version"`
}

// CountLineMutation is the payload of count-line-kind queue items.
// PreviousQty is what the operator saw before editing; it is informational
// only and never merged field-by-field.
type CountLineMutation struct {
	Line        CountLine `json:"line"`
	PreviousQty int64     `json:"previous_qty,omitempty"`
	BaseVersion int64     `json:"base_version"`
}

// UnknownItemMutation is the payload of unknown-item queue items.
type UnknownItemMutation struct {
	Item UnknownItem `json:"item"`
}

// QueueItem is one durable pending mutation awaiting remote confirmation.
//
// ID is generated client-side (UUIDv7: timestamp + random suffix) at enqueue
// time and carried on every delivery attempt, so the server can deduplicate
// replays of the same logical mutation. Exactly one payload pointer matching
// Kind is non-nil; Validate enforces this before the item is persisted.
type QueueItem struct {
	ID            string       `json:"id"`
	Kind          MutationKind `json:"kind"`
	CreatedAt     time.Time    `json:"created_at"`
	AttemptCount  int          `json:"attempt_count"`
	NextAttemptAt time.Time    `json:"next_attempt_at,omitempty"`
	LastError     *ErrorSummary `json:"last_error,omitempty"`

	SessionPayload   *SessionMutation   `json:"session_payload,omitempty"`
	CountLinePayload *CountLineMutation `json:"count_line_payload,omitempty"`
	UnknownPayload   *UnknownItemMutation `json:"unknown_payload,omitempty"`
}

// Validate checks that the item carries exactly the payload its kind requires.
func (q *QueueItem) Validate() error {
	if q.ID == "" {
		return errors.New("queue item has no id")
	}

	switch q.Kind {
	case MutationCreateSession, MutationReopenSession:
		if q.SessionPayload == nil {
			return fmt.Errorf("queue item %s: kind %s requires a session payload", q.ID, q.Kind)
		}
	case MutationCreateCountLine, MutationUpdateCountLine:
		if q.CountLinePayload == nil {
			return fmt.Errorf("queue item %s: kind %s requires a count line payload", q.ID, q.Kind)
		}
	case MutationCreateUnknown:
		if q.UnknownPayload == nil {
			return fmt.Errorf("queue item %s: kind %s requires an unknown item payload", q.ID, q.Kind)
		}
	default:
		return fmt.Errorf("queue item %s: %w: %q", q.ID, ErrUnknownMutationKind, q.Kind)
	}

	if n := boolToInt(q.SessionPayload != nil) +
		boolToInt(q.CountLinePayload != nil) +
		boolToInt(q.UnknownPayload != nil); n != 1 {
		return fmt.Errorf("queue item %s: kind %s carries %d payloads", q.ID, q.Kind, n)
	}

	return nil
}

// EntityID returns the natural id of the entity the mutation targets.
func (q *QueueItem) EntityID() string {
	switch q.Kind {
	case MutationCreateSession, MutationReopenSession:
		if q.SessionPayload != nil {
			return q.SessionPayload.Session.ID
		}
	case MutationCreateCountLine, MutationUpdateCountLine:
		if q.CountLinePayload != nil {
			return q.CountLinePayload.Line.ID
		}
	case MutationCreateUnknown:
		if q.UnknownPayload != nil {
			return q.UnknownPayload.Item.ID
		}
	}
	return ""
}

// Ready reports whether the item may be attempted at the given moment, i.e.
// it is not deferred behind a backoff deadline.
func (q *QueueItem) Ready(now time.Time) bool {
	return q.NextAttemptAt.IsZero() || !now.Before(q.NextAttemptAt)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
