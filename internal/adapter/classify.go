package adapter

import (
	"errors"
	"time"

	"github.com/mknoufi/stockverify/models"
)

// ErrorKind is the engine-wide failure taxonomy. Every remote-call error is
// classified into exactly one kind at the adapter boundary so that the
// orchestrator and retry policy branch on kind, never on transport details.
type ErrorKind string

const (
	// KindTransient failures (network, timeout, 5xx, 429) are retried.
	KindTransient ErrorKind = "transient"
	// KindConflict failures (409 or stale version detected pre-send) are
	// routed to the conflict resolver.
	KindConflict ErrorKind = "conflict"
	// KindPermanent failures (4xx other than 409/429) are parked and
	// surfaced; retrying them would loop forever on bad data.
	KindPermanent ErrorKind = "permanent"
)

// Classify maps an adapter error onto the taxonomy. Unrecognised errors are
// treated as transient: with human-paced queue volumes, a spurious retry is
// cheaper than wrongly discarding an operator's count.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrRejected), errors.Is(err, ErrUnauthorized):
		return KindPermanent
	default:
		return KindTransient
	}
}

// RetryAfterHint extracts the server-supplied delay of a throttled error,
// reporting ok == false when the error carries none.
func RetryAfterHint(err error) (time.Duration, bool) {
	var throttled *ThrottledError
	if errors.As(err, &throttled) && throttled.RetryAfter > 0 {
		return throttled.RetryAfter, true
	}
	return 0, false
}

// Summarize converts an adapter error into the compact typed form persisted
// on queue items across restarts.
func Summarize(err error, at time.Time) *models.ErrorSummary {
	if err == nil {
		return nil
	}

	summary := &models.ErrorSummary{
		Kind:    string(Classify(err)),
		Message: err.Error(),
		At:      at,
	}

	var rejected *RejectedError
	if errors.As(err, &rejected) {
		summary.StatusCode = rejected.StatusCode
	}

	return summary
}
