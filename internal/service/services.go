package service

import (
	"context"

	"github.com/mknoufi/stockverify/internal/adapter"
	"github.com/mknoufi/stockverify/internal/config"
	"github.com/mknoufi/stockverify/internal/dedup"
	"github.com/mknoufi/stockverify/internal/logger"
	"github.com/mknoufi/stockverify/internal/netmon"
	"github.com/mknoufi/stockverify/internal/retry"
	"github.com/mknoufi/stockverify/internal/store"
)

// ClientServices wires the full offline-first engine together: the durable
// queue and cache on top of the key-value store, the conflict resolver, the
// drain orchestrator and the operator-facing count service.
type ClientServices struct {
	Notifier     *Notifier
	Queue        *OfflineQueue
	Cache        *LocalCache
	Conflicts    *ConflictResolver
	Orchestrator *SyncOrchestrator
	Counts       *CountService
}

func NewClientServices(
	ctx context.Context,
	cfg config.Sync,
	storages *store.ClientStorages,
	remote adapter.RemoteClient,
	monitor *netmon.Monitor,
	log *logger.Logger,
) *ClientServices {
	notifier := NewNotifier()
	queue := NewOfflineQueue(ctx, storages.KV, notifier, log)
	cache := NewLocalCache(storages.KV, log)
	resolver := NewConflictResolver(storages.KV, queue, cache, notifier, log)

	backgroundPolicy := retry.Policy{
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
		MaxAttempts: cfg.MaxAttemptsBackground,
	}
	interactivePolicy := retry.Policy{
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
		MaxAttempts: cfg.MaxAttemptsInteractive,
	}

	orchestrator := NewSyncOrchestrator(
		queue, resolver, cache, remote, monitor, notifier,
		storages.KV, backgroundPolicy, cfg.Interval, log,
	)

	counts := NewCountService(
		queue, cache, orchestrator, remote, monitor,
		dedup.New(cfg.DedupWindow, log), interactivePolicy, log,
	)

	return &ClientServices{
		Notifier:     notifier,
		Queue:        queue,
		Cache:        cache,
		Conflicts:    resolver,
		Orchestrator: orchestrator,
		Counts:       counts,
	}
}
