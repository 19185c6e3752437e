// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mknoufi/stockverify/internal/logger"
	"github.com/mknoufi/stockverify/internal/store"
	"github.com/mknoufi/stockverify/internal/utils"
	"github.com/mknoufi/stockverify/models"
)

// OfflineQueue is the durable FIFO of pending mutations. Items are appended
// at enqueue time, delivered strictly oldest-first, and removed only after
// the server confirms them. There is no coalescing: two edits to the same
// count line stay two queue items, replayed in order.
//
// The working copy lives in memory and is written through to the durable
// store after every change. When the store fails the queue keeps operating
// in memory so an operator's counts are never refused mid-shift; durability
// resumes on the next write that succeeds.
type OfflineQueue struct {
	kv       store.KVStore
	notifier *Notifier
	logger   *logger.Logger
	ids      *utils.UUIDGenerator
	now      func() time.Time

	mu     sync.Mutex
	items  []models.QueueItem
	parked []models.QueueItem
}

// NewOfflineQueue loads the persisted queue and parked list and returns the
// working queue. A corrupt or missing snapshot starts empty rather than
// failing client startup.
func NewOfflineQueue(ctx context.Context, kv store.KVStore, notifier *Notifier, log *logger.Logger) *OfflineQueue {
	q := &OfflineQueue{
		kv:       kv,
		notifier: notifier,
		logger:   log,
		ids:      utils.NewUUIDGenerator(),
		now:      time.Now,
	}

	q.items = q.loadList(ctx, store.KeyQueue)
	q.parked = q.loadList(ctx, store.KeyParked)

	return q
}

func (q *OfflineQueue) loadList(ctx context.Context, key string) []models.QueueItem {
	raw, found, err := q.kv.Get(ctx, key)
	if err != nil {
		q.logger.Err(err).Str("func", "loadList").Str("key", key).Msg("reading persisted queue failed, starting empty")
		return nil
	}
	if !found {
		return nil
	}

	var items []models.QueueItem
	if err = json.Unmarshal(raw, &items); err != nil {
		q.logger.Err(err).Str("func", "loadList").Str("key", key).Msg("persisted queue is corrupt, starting empty")
		return nil
	}

	return items
}

// Enqueue validates item, assigns its id and creation time when absent, and
// appends it to the tail of the queue.
func (q *OfflineQueue) Enqueue(ctx context.Context, item models.QueueItem) (models.QueueItem, error) {
	if item.ID == "" {
		item.ID = q.ids.Generate()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = q.now()
	}
	if err := item.Validate(); err != nil {
		return models.QueueItem{}, fmt.Errorf("enqueue: %w", err)
	}

	q.mu.Lock()
	q.items = append(q.items, item)
	length := len(q.items)
	q.persistLocked(ctx, store.KeyQueue, q.items)
	q.mu.Unlock()

	q.notifier.Publish(models.Event{Type: models.EventQueueLengthChanged, QueueLength: length})

	return item, nil
}

// PeekOldest returns the head of the queue without removing it.
func (q *OfflineQueue) PeekOldest() (models.QueueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return models.QueueItem{}, false
	}
	return q.items[0], true
}

// Remove deletes a confirmed item from the queue.
func (q *OfflineQueue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	idx := indexOf(q.items, id)
	if idx < 0 {
		q.mu.Unlock()
		return fmt.Errorf("remove %s: %w", id, ErrQueueItemNotFound)
	}
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	length := len(q.items)
	q.persistLocked(ctx, store.KeyQueue, q.items)
	q.mu.Unlock()

	q.notifier.Publish(models.Event{Type: models.EventQueueLengthChanged, QueueLength: length})

	return nil
}

// Update replaces the stored item with the same id. Used when a resolved
// conflict rewrites a payload's base version in place, preserving the item's
// queue position.
func (q *OfflineQueue) Update(ctx context.Context, item models.QueueItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	idx := indexOf(q.items, item.ID)
	if idx < 0 {
		return fmt.Errorf("update %s: %w", item.ID, ErrQueueItemNotFound)
	}
	q.items[idx] = item
	q.persistLocked(ctx, store.KeyQueue, q.items)

	return nil
}

// RecordFailure increments the item's attempt count, stores the failure
// summary and defers the item until nextAttemptAt. The item keeps its queue
// position; items behind it wait.
func (q *OfflineQueue) RecordFailure(ctx context.Context, id string, summary *models.ErrorSummary, nextAttemptAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := indexOf(q.items, id)
	if idx < 0 {
		return fmt.Errorf("record failure %s: %w", id, ErrQueueItemNotFound)
	}

	q.items[idx].AttemptCount++
	q.items[idx].LastError = summary
	q.items[idx].NextAttemptAt = nextAttemptAt
	q.persistLocked(ctx, store.KeyQueue, q.items)

	return nil
}

// Park moves an item out of the active queue into the parked list, where it
// no longer blocks drains and waits for an operator decision.
func (q *OfflineQueue) Park(ctx context.Context, id string, summary *models.ErrorSummary) error {
	q.mu.Lock()
	idx := indexOf(q.items, id)
	if idx < 0 {
		q.mu.Unlock()
		return fmt.Errorf("park %s: %w", id, ErrQueueItemNotFound)
	}

	item := q.items[idx]
	item.LastError = summary
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	q.parked = append(q.parked, item)
	length := len(q.items)
	q.persistLocked(ctx, store.KeyQueue, q.items)
	q.persistLocked(ctx, store.KeyParked, q.parked)
	q.mu.Unlock()

	errMsg := ""
	if summary != nil {
		errMsg = summary.Message
	}
	q.notifier.Publish(models.Event{Type: models.EventItemParked, QueueItemID: id, Error: errMsg})
	q.notifier.Publish(models.Event{Type: models.EventQueueLengthChanged, QueueLength: length})

	return nil
}

// RetryParked moves a parked item back to the tail of the active queue with
// a clean retry state.
func (q *OfflineQueue) RetryParked(ctx context.Context, id string) error {
	q.mu.Lock()
	idx := indexOf(q.parked, id)
	if idx < 0 {
		q.mu.Unlock()
		return fmt.Errorf("retry parked %s: %w", id, ErrQueueItemNotFound)
	}

	item := q.parked[idx]
	item.AttemptCount = 0
	item.LastError = nil
	item.NextAttemptAt = time.Time{}
	q.parked = append(q.parked[:idx], q.parked[idx+1:]...)
	q.items = append(q.items, item)
	length := len(q.items)
	q.persistLocked(ctx, store.KeyQueue, q.items)
	q.persistLocked(ctx, store.KeyParked, q.parked)
	q.mu.Unlock()

	q.notifier.Publish(models.Event{Type: models.EventQueueLengthChanged, QueueLength: length})

	return nil
}

// DiscardParked drops a parked item permanently.
func (q *OfflineQueue) DiscardParked(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := indexOf(q.parked, id)
	if idx < 0 {
		return fmt.Errorf("discard parked %s: %w", id, ErrQueueItemNotFound)
	}
	q.parked = append(q.parked[:idx], q.parked[idx+1:]...)
	q.persistLocked(ctx, store.KeyParked, q.parked)

	return nil
}

// GetParked returns the parked item with the given id.
func (q *OfflineQueue) GetParked(id string) (models.QueueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := indexOf(q.parked, id)
	if idx < 0 {
		return models.QueueItem{}, false
	}
	return q.parked[idx], true
}

// ListAll returns a copy of the active queue, oldest first.
func (q *OfflineQueue) ListAll() []models.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.QueueItem, len(q.items))
	copy(out, q.items)
	return out
}

// ListParked returns a copy of the parked list.
func (q *OfflineQueue) ListParked() []models.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.QueueItem, len(q.parked))
	copy(out, q.parked)
	return out
}

// Len returns the number of pending (non-parked) items.
func (q *OfflineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *OfflineQueue) persistLocked(ctx context.Context, key string, items []models.QueueItem) {
	raw, err := json.Marshal(items)
	if err != nil {
		q.logger.Err(err).Str("func", "persistLocked").Str("key", key).Msg("marshalling queue failed, continuing in memory")
		return
	}

	if err = q.kv.Set(ctx, key, raw); err != nil {
		q.logger.Err(err).Str("func", "persistLocked").Str("key", key).Msg("persisting queue failed, continuing in memory")
	}
}

func indexOf(items []models.QueueItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
