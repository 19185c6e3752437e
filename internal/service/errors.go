package service

import "errors"

var (
	// ErrQueueItemNotFound indicates an id that matches neither the active
	// queue nor the parked list.
	ErrQueueItemNotFound = errors.New("queue item not found")

	// ErrConflictNotFound indicates an unknown conflict id, or one that was
	// already resolved.
	ErrConflictNotFound = errors.New("conflict not found")

	// ErrDrainInProgress is returned when a drain is requested while one is
	// already running. At most one drain runs at a time.
	ErrDrainInProgress = errors.New("drain already in progress")

	// ErrCacheMiss indicates a read-through lookup found nothing locally.
	ErrCacheMiss = errors.New("not in local cache")
)
