package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mknoufi/stockverify/internal/adapter"
	"github.com/mknoufi/stockverify/internal/logger"
	"github.com/mknoufi/stockverify/internal/mock"
	"github.com/mknoufi/stockverify/internal/netmon"
	"github.com/mknoufi/stockverify/internal/retry"
	"github.com/mknoufi/stockverify/internal/store"
	"github.com/mknoufi/stockverify/models"
)

type orchestratorFixture struct {
	kv           *memKV
	queue        *OfflineQueue
	cache        *LocalCache
	remote       *mock.MockRemoteClient
	monitor      *netmon.Monitor
	orchestrator *SyncOrchestrator
	events       *eventRecorder
}

func newOrchestratorFixture(t *testing.T, ctrl *gomock.Controller) *orchestratorFixture {
	t.Helper()

	kv := newMemKV()
	notifier := NewNotifier()
	rec := &eventRecorder{}
	notifier.Subscribe(rec.record)

	queue := NewOfflineQueue(context.Background(), kv, notifier, logger.Nop())
	cache := NewLocalCache(kv, logger.Nop())
	resolver := NewConflictResolver(kv, queue, cache, notifier, logger.Nop())
	remote := mock.NewMockRemoteClient(ctrl)
	monitor := onlineMonitor()

	policy := retry.Policy{BaseDelay: 2 * time.Second, MaxDelay: time.Minute}
	orchestrator := NewSyncOrchestrator(queue, resolver, cache, remote, monitor, notifier, kv, policy, time.Minute, logger.Nop())

	return &orchestratorFixture{
		kv:           kv,
		queue:        queue,
		cache:        cache,
		remote:       remote,
		monitor:      monitor,
		orchestrator: orchestrator,
		events:       rec,
	}
}

func TestDrain_DeliversFIFOAndEmptiesQueue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newOrchestratorFixture(t, ctrl)
	ctx := context.Background()

	_, err := f.queue.Enqueue(ctx, countLineItem("q-1", "l-1", 10, 1))
	require.NoError(t, err)
	_, err = f.queue.Enqueue(ctx, countLineItem("q-2", "l-2", 20, 1))
	require.NoError(t, err)

	gomock.InOrder(
		f.remote.EXPECT().UpdateCountLine(gomock.Any(), "q-1", gomock.Any()).
			Return(models.CountLine{ID: "l-1", CountedQty: 10, Version: 2}, nil),
		f.remote.EXPECT().UpdateCountLine(gomock.Any(), "q-2", gomock.Any()).
			Return(models.CountLine{ID: "l-2", CountedQty: 20, Version: 2}, nil),
	)

	require.NoError(t, f.orchestrator.Drain(ctx))

	assert.Zero(t, f.queue.Len())
	assert.Equal(t, StateIdle, f.orchestrator.State())

	// confirmed records landed in the cache
	var cached models.CountLine
	require.NoError(t, f.cache.Get(ctx, models.EntityCountLines, "l-1", &cached))
	assert.Equal(t, int64(2), cached.Version)

	// a fully drained queue records the sync timestamp
	at, found, err := f.orchestrator.LastSyncAt(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.WithinDuration(t, time.Now(), at, 5*time.Second)

	completed := f.events.ofType(models.EventSyncCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, 2, completed[0].Delivered)
}

func TestDrain_OnlyOneDrainRuns(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newOrchestratorFixture(t, ctrl)
	ctx := context.Background()

	_, err := f.queue.Enqueue(ctx, countLineItem("q-1", "l-1", 10, 1))
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	f.remote.EXPECT().UpdateCountLine(gomock.Any(), "q-1", gomock.Any()).
		DoAndReturn(func(context.Context, string, models.CountLineMutation) (models.CountLine, error) {
			close(started)
			<-release
			return models.CountLine{ID: "l-1", Version: 2}, nil
		})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, f.orchestrator.Drain(ctx))
	}()

	<-started
	// the engine is mid-delivery: a second drain must refuse to start
	assert.ErrorIs(t, f.orchestrator.Drain(ctx), ErrDrainInProgress)
	assert.Equal(t, StateDraining, f.orchestrator.State())

	close(release)
	wg.Wait()
	assert.Zero(t, f.queue.Len())
}

func TestDrain_TransientFailureDefersHeadAndEndsCycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newOrchestratorFixture(t, ctrl)
	ctx := context.Background()

	_, err := f.queue.Enqueue(ctx, countLineItem("q-1", "l-1", 10, 1))
	require.NoError(t, err)
	_, err = f.queue.Enqueue(ctx, countLineItem("q-2", "l-2", 20, 1))
	require.NoError(t, err)

	// only the head is attempted; q-2 must not overtake it
	f.remote.EXPECT().UpdateCountLine(gomock.Any(), "q-1", gomock.Any()).
		Return(models.CountLine{}, adapter.ErrUnavailable)

	err = f.orchestrator.Drain(ctx)
	require.ErrorIs(t, err, adapter.ErrUnavailable)

	require.Equal(t, 2, f.queue.Len())
	head, _ := f.queue.PeekOldest()
	assert.Equal(t, "q-1", head.ID)
	assert.Equal(t, 1, head.AttemptCount)
	assert.False(t, head.Ready(time.Now()))
	require.NotNil(t, head.LastError)
	assert.Equal(t, string(adapter.KindTransient), head.LastError.Kind)

	require.Len(t, f.events.ofType(models.EventSyncFailed), 1)
}

func TestDrain_DeferredHeadBlocksFollowers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newOrchestratorFixture(t, ctrl)
	ctx := context.Background()

	_, err := f.queue.Enqueue(ctx, countLineItem("q-1", "l-1", 10, 1))
	require.NoError(t, err)
	require.NoError(t, f.queue.RecordFailure(ctx, "q-1", nil, time.Now().Add(time.Hour)))
	_, err = f.queue.Enqueue(ctx, countLineItem("q-2", "l-2", 20, 1))
	require.NoError(t, err)

	// no remote expectations: nothing may be delivered while the head
	// backs off
	require.NoError(t, f.orchestrator.Drain(ctx))

	assert.Equal(t, 2, f.queue.Len())
	completed := f.events.ofType(models.EventSyncCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, 2, completed[0].Deferred)
}

func TestDrain_TransientAttemptsExhaustedParksAndContinues(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newOrchestratorFixture(t, ctrl)
	ctx := context.Background()

	f.orchestrator.policy.MaxAttempts = 2
	current := time.Now()
	f.orchestrator.now = func() time.Time { return current }

	_, err := f.queue.Enqueue(ctx, countLineItem("q-1", "l-1", 10, 1))
	require.NoError(t, err)
	_, err = f.queue.Enqueue(ctx, countLineItem("q-2", "l-2", 20, 1))
	require.NoError(t, err)

	f.remote.EXPECT().UpdateCountLine(gomock.Any(), "q-1", gomock.Any()).
		Return(models.CountLine{}, adapter.ErrUnavailable).
		Times(2)
	f.remote.EXPECT().UpdateCountLine(gomock.Any(), "q-2", gomock.Any()).
		Return(models.CountLine{ID: "l-2", CountedQty: 20, Version: 2}, nil)

	// first cycle: one attempt left, the head defers behind its backoff
	err = f.orchestrator.Drain(ctx)
	require.ErrorIs(t, err, adapter.ErrUnavailable)
	assert.Equal(t, 2, f.queue.Len())
	assert.Empty(t, f.queue.ListParked())

	// second cycle exhausts the cap: the head parks and q-2 is delivered
	current = current.Add(time.Minute)
	require.NoError(t, f.orchestrator.Drain(ctx))

	assert.Zero(t, f.queue.Len())
	parked := f.queue.ListParked()
	require.Len(t, parked, 1)
	assert.Equal(t, "q-1", parked[0].ID)
	require.NotNil(t, parked[0].LastError)

	completed := f.events.ofType(models.EventSyncCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, 1, completed[0].Delivered)
	assert.Equal(t, 1, completed[0].Parked)
}

func TestDrain_PermanentFailureParksAndContinues(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newOrchestratorFixture(t, ctrl)
	ctx := context.Background()

	_, err := f.queue.Enqueue(ctx, countLineItem("q-1", "l-1", -5, 1))
	require.NoError(t, err)
	_, err = f.queue.Enqueue(ctx, countLineItem("q-2", "l-2", 20, 1))
	require.NoError(t, err)

	gomock.InOrder(
		f.remote.EXPECT().UpdateCountLine(gomock.Any(), "q-1", gomock.Any()).
			Return(models.CountLine{}, &adapter.RejectedError{StatusCode: 422, Reason: "negative qty"}),
		f.remote.EXPECT().UpdateCountLine(gomock.Any(), "q-2", gomock.Any()).
			Return(models.CountLine{ID: "l-2", Version: 2}, nil),
	)

	require.NoError(t, f.orchestrator.Drain(ctx))

	assert.Zero(t, f.queue.Len())
	parked := f.queue.ListParked()
	require.Len(t, parked, 1)
	assert.Equal(t, "q-1", parked[0].ID)
	assert.Equal(t, 422, parked[0].LastError.StatusCode)

	completed := f.events.ofType(models.EventSyncCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, 1, completed[0].Delivered)
	assert.Equal(t, 1, completed[0].Parked)
}

func TestDrain_ConflictLocalWinsRetriesImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newOrchestratorFixture(t, ctrl)
	ctx := context.Background()

	// operator counted 15 against version 3; server holds 12 at version 4
	_, err := f.queue.Enqueue(ctx, countLineItem("q-1", "l-1", 15, 3))
	require.NoError(t, err)

	remote, _ := json.Marshal(models.CountLine{ID: "l-1", CountedQty: 12, Version: 4})

	gomock.InOrder(
		f.remote.EXPECT().UpdateCountLine(gomock.Any(), "q-1", gomock.Any()).
			Return(models.CountLine{}, &adapter.ConflictError{Remote: remote}),
		f.remote.EXPECT().UpdateCountLine(gomock.Any(), "q-1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, m models.CountLineMutation) (models.CountLine, error) {
				// redelivery carries the rebased version and the local qty
				assert.Equal(t, int64(4), m.BaseVersion)
				assert.Equal(t, int64(15), m.Line.CountedQty)
				return models.CountLine{ID: "l-1", CountedQty: 15, Version: 5}, nil
			}),
	)

	require.NoError(t, f.orchestrator.Drain(ctx))

	assert.Zero(t, f.queue.Len())
	var cached models.CountLine
	require.NoError(t, f.cache.Get(ctx, models.EntityCountLines, "l-1", &cached))
	assert.Equal(t, int64(15), cached.CountedQty)
}

func TestDrain_ConflictRemoteWinsDropsMutation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newOrchestratorFixture(t, ctrl)
	ctx := context.Background()

	item := models.QueueItem{
		ID:   "q-1",
		Kind: models.MutationReopenSession,
		SessionPayload: &models.SessionMutation{
			Session:     models.Session{ID: "s-1", Status: models.SessionOpen, Version: 2},
			BaseVersion: 2,
		},
	}
	_, err := f.queue.Enqueue(ctx, item)
	require.NoError(t, err)

	remote, _ := json.Marshal(models.Session{ID: "s-1", Status: models.SessionClosed, Version: 6})
	f.remote.EXPECT().UpdateSessionStatus(gomock.Any(), "q-1", gomock.Any()).
		Return(models.Session{}, &adapter.ConflictError{Remote: remote})

	require.NoError(t, f.orchestrator.Drain(ctx))

	assert.Zero(t, f.queue.Len())
	var cached models.Session
	require.NoError(t, f.cache.Get(ctx, models.EntitySessions, "s-1", &cached))
	assert.Equal(t, models.SessionClosed, cached.Status)
}

func TestDrain_SuspendedWhileOffline(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newOrchestratorFixture(t, ctrl)
	ctx := context.Background()

	_, err := f.queue.Enqueue(ctx, countLineItem("q-1", "l-1", 10, 1))
	require.NoError(t, err)

	f.monitor.SetState(models.NetworkState{Online: false, ConnectionType: models.ConnectionNone})

	// no remote expectations: nothing is attempted offline
	require.NoError(t, f.orchestrator.Drain(ctx))

	assert.Equal(t, 1, f.queue.Len())
	assert.Equal(t, StateSuspended, f.orchestrator.State())
}

func TestDrain_NoLastSyncWhileItemsRemain(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newOrchestratorFixture(t, ctrl)
	ctx := context.Background()

	_, err := f.queue.Enqueue(ctx, countLineItem("q-1", "l-1", 10, 1))
	require.NoError(t, err)
	require.NoError(t, f.queue.RecordFailure(ctx, "q-1", nil, time.Now().Add(time.Hour)))

	require.NoError(t, f.orchestrator.Drain(ctx))

	_, found, err := f.orchestrator.LastSyncAt(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOrchestrator_StartDrainsOnNetworkRecovery(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newOrchestratorFixture(t, ctrl)
	ctx := context.Background()

	f.monitor.SetState(models.NetworkState{Online: false, ConnectionType: models.ConnectionNone})

	_, err := f.queue.Enqueue(ctx, countLineItem("q-1", "l-1", 10, 1))
	require.NoError(t, err)

	delivered := make(chan struct{})
	f.remote.EXPECT().UpdateCountLine(gomock.Any(), "q-1", gomock.Any()).
		DoAndReturn(func(context.Context, string, models.CountLineMutation) (models.CountLine, error) {
			close(delivered)
			return models.CountLine{ID: "l-1", Version: 2}, nil
		})

	f.orchestrator.Start(ctx)
	defer f.orchestrator.Stop()

	// connectivity returns: the orchestrator drains without being asked
	f.monitor.SetState(models.NetworkState{Online: true, ConnectionType: models.ConnectionWifi})

	select {
	case <-delivered:
	case <-time.After(5 * time.Second):
		t.Fatal("network recovery did not trigger a drain")
	}
}

func TestOrchestrator_LastSyncAtRoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newOrchestratorFixture(t, ctrl)
	ctx := context.Background()

	_, found, err := f.orchestrator.LastSyncAt(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	stamp := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	require.NoError(t, f.kv.Set(ctx, store.KeyLastSync, []byte(stamp.Format(time.RFC3339Nano))))

	at, found, err := f.orchestrator.LastSyncAt(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, at.Equal(stamp))
}
