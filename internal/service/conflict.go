// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mknoufi/stockverify/internal/logger"
	"github.com/mknoufi/stockverify/internal/store"
	"github.com/mknoufi/stockverify/internal/utils"
	"github.com/mknoufi/stockverify/models"
)

// ConflictOutcome tells the drain loop what happened to the conflicting item.
type ConflictOutcome int

const (
	// OutcomeRetry means the local mutation won: its payload was rebased
	// onto the server's current version and the item stays queued for
	// immediate redelivery.
	OutcomeRetry ConflictOutcome = iota
	// OutcomeDropped means the server's record won: the local mutation was
	// discarded and the cache updated from the remote snapshot.
	OutcomeDropped
	// OutcomeParked means neither side wins automatically: the item was
	// parked and a pending conflict awaits an operator decision.
	OutcomeParked
)

// ConflictResolver applies whole-record resolution policy when the server
// rejects a queued mutation with a version conflict:
//
//   - count line quantities: the operator physically counted the shelf, so
//     the local quantity wins and is rebased onto the server's version;
//   - session status: the server is authoritative for administrative state,
//     so the remote record wins and the local mutation is dropped;
//   - anything else: parked pending a manual decision.
//
// Every detection is recorded in a durable conflict ledger for audit.
type ConflictResolver struct {
	kv       store.KVStore
	queue    *OfflineQueue
	cache    *LocalCache
	notifier *Notifier
	logger   *logger.Logger
	ids      *utils.UUIDGenerator
	now      func() time.Time
}

func NewConflictResolver(kv store.KVStore, queue *OfflineQueue, cache *LocalCache, notifier *Notifier, log *logger.Logger) *ConflictResolver {
	return &ConflictResolver{
		kv:       kv,
		queue:    queue,
		cache:    cache,
		notifier: notifier,
		logger:   log,
		ids:      utils.NewUUIDGenerator(),
		now:      time.Now,
	}
}

// Resolve handles a version conflict reported by the server for the given
// queued item. remote is the server's current record from the 409 body.
func (r *ConflictResolver) Resolve(ctx context.Context, item models.QueueItem, remote json.RawMessage) (ConflictOutcome, error) {
	switch item.Kind {
	case models.MutationCreateCountLine, models.MutationUpdateCountLine:
		return r.resolveCountLine(ctx, item, remote)
	case models.MutationCreateSession, models.MutationReopenSession:
		return r.resolveSession(ctx, item, remote)
	default:
		return r.parkForManual(ctx, item, remote)
	}
}

// resolveCountLine applies local-wins: the counted quantity stands, rebased
// onto the version the server reported so the redelivery is accepted.
func (r *ConflictResolver) resolveCountLine(ctx context.Context, item models.QueueItem, remote json.RawMessage) (ConflictOutcome, error) {
	var current models.CountLine
	if err := json.Unmarshal(remote, &current); err != nil {
		r.logger.Err(err).Str("func", "resolveCountLine").Str("queue_item", item.ID).Msg("conflict body is not a count line, parking")
		return r.parkForManual(ctx, item, remote)
	}

	local, _ := json.Marshal(item.CountLinePayload.Line)

	item.CountLinePayload.BaseVersion = current.Version
	item.CountLinePayload.Line.Version = current.Version
	if item.CountLinePayload.Line.ID == "" {
		item.CountLinePayload.Line.ID = current.ID
	}
	item.NextAttemptAt = time.Time{}
	item.LastError = nil

	if err := r.queue.Update(ctx, item); err != nil {
		return OutcomeParked, fmt.Errorf("rebase count line %s: %w", item.ID, err)
	}

	r.record(ctx, item, models.EntityCountLines, local, remote, models.ConflictResolved, models.ResolutionLocalWins)

	return OutcomeRetry, nil
}

// resolveSession applies remote-wins: the local status change is dropped and
// the cache adopts the server's record.
func (r *ConflictResolver) resolveSession(ctx context.Context, item models.QueueItem, remote json.RawMessage) (ConflictOutcome, error) {
	var current models.Session
	if err := json.Unmarshal(remote, &current); err != nil {
		r.logger.Err(err).Str("func", "resolveSession").Str("queue_item", item.ID).Msg("conflict body is not a session, parking")
		return r.parkForManual(ctx, item, remote)
	}

	local, _ := json.Marshal(item.SessionPayload.Session)

	if current.ID != "" {
		if err := r.cache.Put(ctx, models.EntitySessions, current.ID, current); err != nil {
			r.logger.Err(err).Str("func", "resolveSession").Str("session", current.ID).Msg("caching remote session failed")
		}
	}

	if err := r.queue.Remove(ctx, item.ID); err != nil {
		return OutcomeParked, fmt.Errorf("drop session mutation %s: %w", item.ID, err)
	}

	r.record(ctx, item, models.EntitySessions, local, remote, models.ConflictResolved, models.ResolutionRemoteWins)

	return OutcomeDropped, nil
}

// parkForManual holds both versions and takes the item out of the drain path
// until an operator picks a side.
func (r *ConflictResolver) parkForManual(ctx context.Context, item models.QueueItem, remote json.RawMessage) (ConflictOutcome, error) {
	summary := &models.ErrorSummary{
		Kind:    "conflict",
		Message: "version conflict awaiting manual resolution",
		At:      r.now(),
	}
	if err := r.queue.Park(ctx, item.ID, summary); err != nil {
		return OutcomeParked, fmt.Errorf("park conflicting item %s: %w", item.ID, err)
	}

	var local json.RawMessage
	switch {
	case item.SessionPayload != nil:
		local, _ = json.Marshal(item.SessionPayload.Session)
	case item.CountLinePayload != nil:
		local, _ = json.Marshal(item.CountLinePayload.Line)
	case item.UnknownPayload != nil:
		local, _ = json.Marshal(item.UnknownPayload.Item)
	}

	r.record(ctx, item, entityTypeFor(item.Kind), local, remote, models.ConflictPending, "")

	return OutcomeParked, nil
}

// record appends one entry to the durable conflict ledger and notifies
// subscribers.
func (r *ConflictResolver) record(ctx context.Context, item models.QueueItem, entity models.EntityType, local, remote json.RawMessage, status models.ConflictStatus, resolution models.ConflictResolution) {
	conflict := models.SyncConflict{
		ID:          r.ids.Generate(),
		EntityType:  entity,
		EntityID:    item.EntityID(),
		QueueItemID: item.ID,
		Local:       local,
		Remote:      remote,
		DetectedAt:  r.now(),
		Status:      status,
		Resolution:  resolution,
	}
	if status == models.ConflictResolved {
		at := conflict.DetectedAt
		conflict.ResolvedAt = &at
	}

	conflicts, err := r.loadLedger(ctx)
	if err != nil {
		r.logger.Err(err).Str("func", "record").Msg("reading conflict ledger failed, entry not persisted")
	} else {
		conflicts = append(conflicts, conflict)
		r.saveLedger(ctx, conflicts)
	}

	r.notifier.Publish(models.Event{Type: models.EventConflictDetected, Conflict: &conflict})
}

// ListPending returns conflicts still awaiting a manual decision, oldest
// first.
func (r *ConflictResolver) ListPending(ctx context.Context) ([]models.SyncConflict, error) {
	conflicts, err := r.loadLedger(ctx)
	if err != nil {
		return nil, err
	}

	var pending []models.SyncConflict
	for _, c := range conflicts {
		if c.Status == models.ConflictPending {
			pending = append(pending, c)
		}
	}
	return pending, nil
}

// List returns the full conflict ledger, pending and resolved.
func (r *ConflictResolver) List(ctx context.Context) ([]models.SyncConflict, error) {
	return r.loadLedger(ctx)
}

// ResolveManually settles a pending conflict with the operator's choice.
// local_wins requeues the parked mutation rebased onto the remote version;
// remote_wins adopts the server record into the cache and discards the
// parked mutation.
func (r *ConflictResolver) ResolveManually(ctx context.Context, conflictID string, resolution models.ConflictResolution) error {
	if resolution != models.ResolutionLocalWins && resolution != models.ResolutionRemoteWins {
		return fmt.Errorf("resolve conflict %s: unsupported resolution %q", conflictID, resolution)
	}

	conflicts, err := r.loadLedger(ctx)
	if err != nil {
		return err
	}

	idx := -1
	for i := range conflicts {
		if conflicts[i].ID == conflictID && conflicts[i].Status == models.ConflictPending {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("resolve conflict %s: %w", conflictID, ErrConflictNotFound)
	}
	conflict := conflicts[idx]

	switch resolution {
	case models.ResolutionLocalWins:
		if err = r.requeueParked(ctx, conflict); err != nil {
			return err
		}
	case models.ResolutionRemoteWins:
		if err = r.adoptRemote(ctx, conflict); err != nil {
			return err
		}
	}

	now := r.now()
	conflicts[idx].Status = models.ConflictResolved
	conflicts[idx].Resolution = resolution
	conflicts[idx].ResolvedAt = &now
	r.saveLedger(ctx, conflicts)

	return nil
}

func (r *ConflictResolver) requeueParked(ctx context.Context, conflict models.SyncConflict) error {
	item, ok := r.queue.GetParked(conflict.QueueItemID)
	if !ok {
		return fmt.Errorf("resolve conflict %s: parked item %s: %w", conflict.ID, conflict.QueueItemID, ErrQueueItemNotFound)
	}

	rebaseFromRemote(&item, conflict.Remote)

	if err := r.queue.RetryParked(ctx, item.ID); err != nil {
		return err
	}
	return r.queue.Update(ctx, item)
}

func (r *ConflictResolver) adoptRemote(ctx context.Context, conflict models.SyncConflict) error {
	if len(conflict.Remote) > 0 && conflict.EntityID != "" {
		if err := r.cache.Put(ctx, conflict.EntityType, conflict.EntityID, conflict.Remote); err != nil {
			return err
		}
	}
	return r.queue.DiscardParked(ctx, conflict.QueueItemID)
}

// rebaseFromRemote lifts the base version of the item's payload to the
// version found in the remote snapshot, when one is present.
func rebaseFromRemote(item *models.QueueItem, remote json.RawMessage) {
	var versioned struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(remote, &versioned); err != nil || versioned.Version == 0 {
		return
	}

	switch {
	case item.SessionPayload != nil:
		item.SessionPayload.BaseVersion = versioned.Version
		item.SessionPayload.Session.Version = versioned.Version
	case item.CountLinePayload != nil:
		item.CountLinePayload.BaseVersion = versioned.Version
		item.CountLinePayload.Line.Version = versioned.Version
	}
}

func entityTypeFor(kind models.MutationKind) models.EntityType {
	switch kind {
	case models.MutationCreateSession, models.MutationReopenSession:
		return models.EntitySessions
	case models.MutationCreateCountLine, models.MutationUpdateCountLine:
		return models.EntityCountLines
	default:
		return models.EntityUnknown
	}
}

func (r *ConflictResolver) loadLedger(ctx context.Context) ([]models.SyncConflict, error) {
	raw, found, err := r.kv.Get(ctx, store.KeyConflicts)
	if err != nil {
		return nil, fmt.Errorf("load conflict ledger: %w", err)
	}
	if !found {
		return nil, nil
	}

	var conflicts []models.SyncConflict
	if err = json.Unmarshal(raw, &conflicts); err != nil {
		r.logger.Err(err).Str("func", "loadLedger").Msg("conflict ledger is corrupt, treating as empty")
		return nil, nil
	}
	return conflicts, nil
}

func (r *ConflictResolver) saveLedger(ctx context.Context, conflicts []models.SyncConflict) {
	raw, err := json.Marshal(conflicts)
	if err != nil {
		r.logger.Err(err).Str("func", "saveLedger").Msg("marshalling conflict ledger failed")
		return
	}
	if err = r.kv.Set(ctx, store.KeyConflicts, raw); err != nil {
		r.logger.Err(err).Str("func", "saveLedger").Msg("persisting conflict ledger failed")
	}
}
