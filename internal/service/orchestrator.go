// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mknoufi/stockverify/internal/adapter"
	"github.com/mknoufi/stockverify/internal/logger"
	"github.com/mknoufi/stockverify/internal/netmon"
	"github.com/mknoufi/stockverify/internal/retry"
	"github.com/mknoufi/stockverify/internal/store"
	"github.com/mknoufi/stockverify/models"
)

// OrchestratorState is the externally visible mode of the sync engine.
type OrchestratorState string

const (
	// StateIdle: network is usable, nothing to deliver right now.
	StateIdle OrchestratorState = "idle"
	// StateDraining: a drain cycle is delivering queued mutations.
	StateDraining OrchestratorState = "draining"
	// StateSuspended: the network is unusable; the queue accumulates until
	// connectivity returns.
	StateSuspended OrchestratorState = "suspended"
)

// SyncOrchestrator owns the drain loop. It watches the network monitor,
// starts a drain whenever connectivity returns or the periodic ticker fires,
// and guarantees that at most one drain runs at any moment regardless of how
// many triggers race.
//
// A drain delivers queue items strictly oldest-first. A transient failure
// defers the head item behind a backoff deadline and ends the cycle; items
// behind the head wait rather than overtake it. When the policy caps
// attempts and the head has used them all up, it parks instead of deferring
// again. Conflicts go through the resolver; permanent rejections park the
// item so it stops blocking the rest.
type SyncOrchestrator struct {
	queue    *OfflineQueue
	resolver *ConflictResolver
	cache    *LocalCache
	remote   adapter.RemoteClient
	monitor  *netmon.Monitor
	notifier *Notifier
	kv       store.KVStore
	logger   *logger.Logger
	policy   retry.Policy
	interval time.Duration
	now      func() time.Time

	draining atomic.Bool

	stateMu sync.Mutex
	state   OrchestratorState

	jobMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	kick   chan struct{}
}

func NewSyncOrchestrator(
	queue *OfflineQueue,
	resolver *ConflictResolver,
	cache *LocalCache,
	remote adapter.RemoteClient,
	monitor *netmon.Monitor,
	notifier *Notifier,
	kv store.KVStore,
	policy retry.Policy,
	interval time.Duration,
	log *logger.Logger,
) *SyncOrchestrator {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &SyncOrchestrator{
		queue:    queue,
		resolver: resolver,
		cache:    cache,
		remote:   remote,
		monitor:  monitor,
		notifier: notifier,
		kv:       kv,
		logger:   log,
		policy:   policy,
		interval: interval,
		now:      time.Now,
		state:    StateIdle,
		kick:     make(chan struct{}, 1),
	}
}

// State returns the orchestrator's current mode.
func (o *SyncOrchestrator) State() OrchestratorState {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	return o.state
}

func (o *SyncOrchestrator) setState(s OrchestratorState) {
	o.stateMu.Lock()
	o.state = s
	o.stateMu.Unlock()
}

// Start launches the background drain loop: one drain attempt per network
// recovery, per TriggerDrain call, and per periodic tick. Stops any
// previously started loop first.
func (o *SyncOrchestrator) Start(ctx context.Context) {
	o.Stop()

	o.jobMu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.wg.Add(1)
	o.jobMu.Unlock()

	unsubscribe := o.monitor.OnChange(func(state models.NetworkState) {
		if state.Usable() {
			o.TriggerDrain()
			return
		}
		o.setState(StateSuspended)
	})

	go func() {
		defer o.wg.Done()
		defer unsubscribe()

		t := time.NewTicker(o.interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				o.drainOnce(jobCtx)
			case <-o.kick:
				o.drainOnce(jobCtx)
			}
		}
	}()
}

// Stop cancels the background loop and blocks until it has exited. Safe to
// call when not running.
func (o *SyncOrchestrator) Stop() {
	o.jobMu.Lock()
	cancel := o.cancel
	o.cancel = nil
	o.jobMu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.wg.Wait()
}

// TriggerDrain requests an asynchronous drain from the background loop.
// Redundant triggers collapse into one pending request.
func (o *SyncOrchestrator) TriggerDrain() {
	select {
	case o.kick <- struct{}{}:
	default:
	}
}

func (o *SyncOrchestrator) drainOnce(ctx context.Context) {
	if err := o.Drain(ctx); err != nil && !errors.Is(err, ErrDrainInProgress) {
		o.logger.Err(err).Str("func", "drainOnce").Msg("drain cycle failed")
	}
}

// Drain runs one synchronous drain cycle. Returns ErrDrainInProgress when
// another drain is already running; the queue's FIFO ordering makes a second
// concurrent drain both useless and dangerous.
func (o *SyncOrchestrator) Drain(ctx context.Context) error {
	if !o.draining.CompareAndSwap(false, true) {
		return ErrDrainInProgress
	}
	defer o.draining.Store(false)

	if !o.monitor.CurrentState().Usable() {
		o.setState(StateSuspended)
		return nil
	}

	o.setState(StateDraining)
	o.notifier.Publish(models.Event{Type: models.EventSyncStarted})

	var delivered, deferred, parked int
	var failure error

	for {
		if err := ctx.Err(); err != nil {
			failure = err
			break
		}
		if !o.monitor.CurrentState().Usable() {
			o.setState(StateSuspended)
			break
		}

		head, ok := o.queue.PeekOldest()
		if !ok {
			break
		}
		if !head.Ready(o.now()) {
			// head is backing off; everything behind it waits
			deferred = o.queue.Len()
			break
		}

		err := o.deliver(ctx, head)
		if err == nil {
			if removeErr := o.queue.Remove(ctx, head.ID); removeErr != nil {
				failure = removeErr
				break
			}
			delivered++
			continue
		}

		switch adapter.Classify(err) {
		case adapter.KindConflict:
			outcome, resolveErr := o.resolveConflict(ctx, head, err)
			if resolveErr != nil {
				failure = resolveErr
			}
			if outcome == OutcomeParked {
				parked++
			}
			if failure != nil {
				break
			}
			continue

		case adapter.KindPermanent:
			summary := adapter.Summarize(err, o.now())
			if parkErr := o.queue.Park(ctx, head.ID, summary); parkErr != nil {
				failure = parkErr
				break
			}
			o.logger.Err(err).Str("func", "Drain").Str("queue_item", head.ID).Msg("mutation rejected permanently, parked")
			parked++
			continue

		default: // transient
			attempts := head.AttemptCount + 1
			summary := adapter.Summarize(err, o.now())
			if !o.policy.ShouldRetry(attempts, err) {
				if parkErr := o.queue.Park(ctx, head.ID, summary); parkErr != nil {
					failure = parkErr
					break
				}
				o.logger.Err(err).Str("func", "Drain").
					Str("queue_item", head.ID).
					Int("attempts", attempts).
					Msg("delivery attempts exhausted, parked")
				parked++
				continue
			}
			delay := o.policy.Backoff(attempts, err)
			if recErr := o.queue.RecordFailure(ctx, head.ID, summary, o.now().Add(delay)); recErr != nil {
				failure = recErr
				break
			}
			o.logger.Warn().Err(err).
				Str("func", "Drain").
				Str("queue_item", head.ID).
				Int("attempts", attempts).
				Dur("backoff", delay).
				Msg("delivery failed, head deferred")
			failure = err
			deferred = o.queue.Len()
		}

		// a transient failure on the head ends the cycle
		break
	}

	o.finishDrain(ctx, delivered, deferred, parked, failure)

	if failure != nil {
		return fmt.Errorf("drain: %w", failure)
	}
	return nil
}

func (o *SyncOrchestrator) resolveConflict(ctx context.Context, item models.QueueItem, err error) (ConflictOutcome, error) {
	var conflictErr *adapter.ConflictError
	if !errors.As(err, &conflictErr) {
		conflictErr = &adapter.ConflictError{}
	}
	return o.resolver.Resolve(ctx, item, conflictErr.Remote)
}

func (o *SyncOrchestrator) finishDrain(ctx context.Context, delivered, deferred, parked int, failure error) {
	if o.monitor.CurrentState().Usable() {
		o.setState(StateIdle)
	} else {
		o.setState(StateSuspended)
	}

	if failure != nil {
		o.notifier.Publish(models.Event{
			Type:      models.EventSyncFailed,
			Delivered: delivered,
			Deferred:  deferred,
			Parked:    parked,
			Error:     failure.Error(),
		})
		return
	}

	if o.queue.Len() == 0 {
		now := o.now()
		if err := o.kv.Set(ctx, store.KeyLastSync, []byte(now.UTC().Format(time.RFC3339Nano))); err != nil {
			o.logger.Err(err).Str("func", "finishDrain").Msg("persisting last sync timestamp failed")
		}
	}

	o.notifier.Publish(models.Event{
		Type:      models.EventSyncCompleted,
		Delivered: delivered,
		Deferred:  deferred,
		Parked:    parked,
	})
}

// deliver replays one queued mutation against the remote API, using the
// queue item id as the idempotency key, and folds the server's canonical
// record back into the local cache.
func (o *SyncOrchestrator) deliver(ctx context.Context, item models.QueueItem) error {
	switch item.Kind {
	case models.MutationCreateSession:
		session, err := o.remote.CreateSession(ctx, item.ID, *item.SessionPayload)
		if err != nil {
			return err
		}
		return o.cachePut(ctx, models.EntitySessions, session.ID, session)

	case models.MutationReopenSession:
		session, err := o.remote.UpdateSessionStatus(ctx, item.ID, *item.SessionPayload)
		if err != nil {
			return err
		}
		return o.cachePut(ctx, models.EntitySessions, session.ID, session)

	case models.MutationCreateCountLine:
		line, err := o.remote.CreateCountLine(ctx, item.ID, *item.CountLinePayload)
		if err != nil {
			return err
		}
		return o.cachePut(ctx, models.EntityCountLines, line.ID, line)

	case models.MutationUpdateCountLine:
		line, err := o.remote.UpdateCountLine(ctx, item.ID, *item.CountLinePayload)
		if err != nil {
			return err
		}
		return o.cachePut(ctx, models.EntityCountLines, line.ID, line)

	case models.MutationCreateUnknown:
		unknown, err := o.remote.CreateUnknownItem(ctx, item.ID, *item.UnknownPayload)
		if err != nil {
			return err
		}
		return o.cachePut(ctx, models.EntityUnknown, unknown.ID, unknown)

	default:
		return fmt.Errorf("deliver %s: %w: %q", item.ID, models.ErrUnknownMutationKind, item.Kind)
	}
}

// cachePut folds a confirmed server record into the cache. A cache write
// failure must not fail the delivery: the mutation is already confirmed
// remotely and removing it from the queue is the correct next step.
func (o *SyncOrchestrator) cachePut(ctx context.Context, collection models.EntityType, id string, record any) error {
	if err := o.cache.Put(ctx, collection, id, record); err != nil {
		o.logger.Err(err).Str("func", "cachePut").Str("collection", string(collection)).Str("id", id).Msg("caching confirmed record failed")
	}
	return nil
}

// LastSyncAt returns the time the queue last drained to empty. found is
// false when no drain has completed yet.
func (o *SyncOrchestrator) LastSyncAt(ctx context.Context) (at time.Time, found bool, err error) {
	raw, found, err := o.kv.Get(ctx, store.KeyLastSync)
	if err != nil || !found {
		return time.Time{}, false, err
	}

	at, err = time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse last sync timestamp: %w", err)
	}
	return at, true, nil
}
