// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"encoding/json"
	"errors"
	"time"
)

// Sentinel errors produced by mapHTTPError. Callers match them with
// [errors.Is]; raw transport errors never cross the adapter boundary.
var (
	// ErrUnavailable covers the transient class: network unreachable,
	// timeouts and 5xx responses. Deliveries failing this way are retried.
	ErrUnavailable = errors.New("remote service unavailable")

	// ErrThrottled is returned for 429 responses. The wrapped
	// [ThrottledError] may carry a server-supplied delay hint.
	ErrThrottled = errors.New("remote service throttled request")

	// ErrConflict is returned for 409 responses. The wrapped
	// [ConflictError] carries the server's current record for the
	// conflict resolver.
	ErrConflict = errors.New("version conflict")

	// ErrUnauthorized is returned for 401 responses that persist after a
	// single token refresh and replay.
	ErrUnauthorized = errors.New("client unauthorized")

	// ErrRejected covers the permanent class: 4xx responses other than
	// 401/409/429. Deliveries failing this way are never retried.
	ErrRejected = errors.New("request rejected")
)

// ConflictError is returned when the server refuses a mutation because the
// target entity's version has advanced past what the mutation assumed.
// Remote holds the server's current record as sent in the conflict body.
type ConflictError struct {
	Remote json.RawMessage
}

func (e *ConflictError) Error() string { return ErrConflict.Error() }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// ThrottledError is returned for 429 responses. RetryAfter is zero when the
// server supplied no hint.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string { return ErrThrottled.Error() }

func (e *ThrottledError) Unwrap() error { return ErrThrottled }

// RejectedError is returned for permanent 4xx rejections and preserves the
// server's reason so it can be surfaced to the operator.
type RejectedError struct {
	StatusCode int
	Reason     string
}

func (e *RejectedError) Error() string {
	return ErrRejected.Error() + ": " + e.Reason
}

func (e *RejectedError) Unwrap() error { return ErrRejected }
