// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"time"

	"github.com/mknoufi/stockverify/internal/adapter"
	"github.com/mknoufi/stockverify/internal/dedup"
	"github.com/mknoufi/stockverify/internal/logger"
	"github.com/mknoufi/stockverify/internal/netmon"
	"github.com/mknoufi/stockverify/internal/retry"
	"github.com/mknoufi/stockverify/internal/utils"
	"github.com/mknoufi/stockverify/models"
)

// CountService is the write path the UI talks to. Every mutation follows the
// same shape: update the local cache optimistically, then try a short direct
// send, and fall back to the durable queue when the network refuses to
// cooperate. The caller gets an immediate answer either way; "queued" is a
// success from the operator's point of view.
//
// Reads are served remote-first with request deduplication, degrading to the
// local cache offline.
type CountService struct {
	queue        *OfflineQueue
	cache        *LocalCache
	orchestrator *SyncOrchestrator
	remote       adapter.RemoteClient
	monitor      *netmon.Monitor
	dedup        *dedup.Deduplicator
	logger       *logger.Logger
	ids          *utils.UUIDGenerator
	policy       retry.Policy
	now          func() time.Time
}

func NewCountService(
	queue *OfflineQueue,
	cache *LocalCache,
	orchestrator *SyncOrchestrator,
	remote adapter.RemoteClient,
	monitor *netmon.Monitor,
	deduplicator *dedup.Deduplicator,
	policy retry.Policy,
	log *logger.Logger,
) *CountService {
	return &CountService{
		queue:        queue,
		cache:        cache,
		orchestrator: orchestrator,
		remote:       remote,
		monitor:      monitor,
		dedup:        deduplicator,
		logger:       log,
		ids:          utils.NewUUIDGenerator(),
		policy:       policy,
		now:          time.Now,
	}
}

// CreateSession opens a new counting session for a warehouse zone. The
// session id is assigned client-side so the session is referencable offline
// before the server ever hears about it.
func (s *CountService) CreateSession(ctx context.Context, warehouseID, zone string) (models.Session, error) {
	session := models.Session{
		ID:          s.ids.Generate(),
		WarehouseID: warehouseID,
		Zone:        zone,
		Status:      models.SessionOpen,
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}

	item := models.QueueItem{
		Kind:           models.MutationCreateSession,
		SessionPayload: &models.SessionMutation{Session: session},
	}

	if err := s.submit(ctx, item, models.EntitySessions, session.ID, session); err != nil {
		return models.Session{}, err
	}

	// the optimistic snapshot; overwritten by the canonical record once
	// the server confirms
	var cached models.Session
	if err := s.cache.Get(ctx, models.EntitySessions, session.ID, &cached); err == nil {
		return cached, nil
	}
	return session, nil
}

// ReopenSession flips a closed session back to open. The server is
// authoritative here: if it meanwhile closed the session for good, the
// conflict resolver drops this mutation and adopts the server's state.
func (s *CountService) ReopenSession(ctx context.Context, sessionID string) error {
	var session models.Session
	if err := s.cache.Get(ctx, models.EntitySessions, sessionID, &session); err != nil {
		return err
	}

	baseVersion := session.Version
	session.Status = models.SessionOpen
	session.UpdatedAt = s.now()

	item := models.QueueItem{
		Kind:           models.MutationReopenSession,
		SessionPayload: &models.SessionMutation{Session: session, BaseVersion: baseVersion},
	}

	return s.submit(ctx, item, models.EntitySessions, session.ID, session)
}

// RecordCount registers a counted quantity for an item in a session. A line
// without an id is a first count (create); a line with one is a correction
// (update, guarded by the version it was loaded at).
func (s *CountService) RecordCount(ctx context.Context, line models.CountLine) (models.CountLine, error) {
	kind := models.MutationUpdateCountLine
	baseVersion := line.Version
	var previousQty int64

	if line.ID == "" {
		kind = models.MutationCreateCountLine
		line.ID = s.ids.Generate()
		baseVersion = 0
	} else {
		var prior models.CountLine
		if err := s.cache.Get(ctx, models.EntityCountLines, line.ID, &prior); err == nil {
			previousQty = prior.CountedQty
			baseVersion = prior.Version
		}
	}

	if line.CountedAt.IsZero() {
		line.CountedAt = s.now()
	}
	line.UpdatedAt = s.now()

	item := models.QueueItem{
		Kind: kind,
		CountLinePayload: &models.CountLineMutation{
			Line:        line,
			PreviousQty: previousQty,
			BaseVersion: baseVersion,
		},
	}

	if err := s.submit(ctx, item, models.EntityCountLines, line.ID, line); err != nil {
		return models.CountLine{}, err
	}

	var cached models.CountLine
	if err := s.cache.Get(ctx, models.EntityCountLines, line.ID, &cached); err == nil {
		return cached, nil
	}
	return line, nil
}

// ReportUnknownItem records a shelf find with no catalog match.
func (s *CountService) ReportUnknownItem(ctx context.Context, unknown models.UnknownItem) (models.UnknownItem, error) {
	if unknown.ID == "" {
		unknown.ID = s.ids.Generate()
	}
	if unknown.ReportedAt.IsZero() {
		unknown.ReportedAt = s.now()
	}

	item := models.QueueItem{
		Kind:           models.MutationCreateUnknown,
		UnknownPayload: &models.UnknownItemMutation{Item: unknown},
	}

	if err := s.submit(ctx, item, models.EntityUnknown, unknown.ID, unknown); err != nil {
		return models.UnknownItem{}, err
	}
	return unknown, nil
}

// submit is the shared write path: optimistic cache write, then either a
// bounded direct send (network usable, queue empty) or an enqueue. The queue
// must be empty for a direct send, otherwise the new mutation would overtake
// older queued ones and break replay ordering.
func (s *CountService) submit(ctx context.Context, item models.QueueItem, collection models.EntityType, id string, record any) error {
	if err := s.cache.Put(ctx, collection, id, record); err != nil {
		s.logger.Err(err).Str("func", "submit").Str("id", id).Msg("optimistic cache write failed")
	}

	if s.monitor.CurrentState().Usable() && s.queue.Len() == 0 {
		item.ID = s.ids.Generate()
		item.CreatedAt = s.now()

		err := s.policy.Do(ctx, func(ctx context.Context) error {
			return s.deliverDirect(ctx, item)
		})
		if err == nil {
			return nil
		}

		if adapter.Classify(err) == adapter.KindPermanent {
			// the server will reject this payload forever; queueing it
			// would only park it later
			return err
		}

		s.logger.Warn().Err(err).Str("func", "submit").Msg("direct send failed, queueing mutation")
	}

	queued, err := s.queue.Enqueue(ctx, item)
	if err != nil {
		return err
	}

	s.logger.Info().Str("func", "submit").Str("queue_item", queued.ID).Str("kind", string(queued.Kind)).Msg("mutation queued")
	s.orchestrator.TriggerDrain()

	return nil
}

// deliverDirect sends one mutation immediately, outside the queue, reusing
// the queue-item id as the idempotency key so a retried send is not applied
// twice. Confirmed records land in the cache.
func (s *CountService) deliverDirect(ctx context.Context, item models.QueueItem) error {
	switch item.Kind {
	case models.MutationCreateSession:
		session, err := s.remote.CreateSession(ctx, item.ID, *item.SessionPayload)
		if err != nil {
			return err
		}
		return s.cache.Put(ctx, models.EntitySessions, session.ID, session)

	case models.MutationReopenSession:
		session, err := s.remote.UpdateSessionStatus(ctx, item.ID, *item.SessionPayload)
		if err != nil {
			return err
		}
		return s.cache.Put(ctx, models.EntitySessions, session.ID, session)

	case models.MutationCreateCountLine:
		line, err := s.remote.CreateCountLine(ctx, item.ID, *item.CountLinePayload)
		if err != nil {
			return err
		}
		return s.cache.Put(ctx, models.EntityCountLines, line.ID, line)

	case models.MutationUpdateCountLine:
		line, err := s.remote.UpdateCountLine(ctx, item.ID, *item.CountLinePayload)
		if err != nil {
			return err
		}
		return s.cache.Put(ctx, models.EntityCountLines, line.ID, line)

	case models.MutationCreateUnknown:
		unknown, err := s.remote.CreateUnknownItem(ctx, item.ID, *item.UnknownPayload)
		if err != nil {
			return err
		}
		return s.cache.Put(ctx, models.EntityUnknown, unknown.ID, unknown)

	default:
		return models.ErrUnknownMutationKind
	}
}

// SearchItems looks up catalog items by SKU, barcode or name. Concurrent
// identical queries within the dedup window share one remote call. Offline
// (or when the remote call fails transiently) the search degrades to the
// cached catalog.
func (s *CountService) SearchItems(ctx context.Context, query string) ([]models.Item, error) {
	if !s.monitor.CurrentState().Usable() {
		return s.cache.SearchItems(ctx, query)
	}

	key := dedup.Key("/api/items/search", map[string]string{"q": query})
	value, _, err := s.dedup.Do(key, func() (any, error) {
		items, searchErr := s.remote.SearchItems(ctx, query)
		if searchErr != nil {
			return nil, searchErr
		}
		// refresh inside the flight so piggybacked callers do not repeat
		// the same cache write; merge, not replace, so earlier queries'
		// results stay available offline
		if cacheErr := s.cache.MergeItems(ctx, items); cacheErr != nil {
			s.logger.Err(cacheErr).Str("func", "SearchItems").Msg("caching search results failed")
		}
		return items, nil
	})
	if err != nil {
		if adapter.Classify(err) == adapter.KindTransient {
			s.logger.Warn().Err(err).Str("func", "SearchItems").Msg("remote search failed, serving cached catalog")
			return s.cache.SearchItems(ctx, query)
		}
		return nil, err
	}

	items, _ := value.([]models.Item)
	return items, nil
}

// RefreshCatalog pulls the complete item catalog and replaces the cached
// copy wholesale, dropping entries the server no longer knows. Meant for
// shift start while connectivity is known good.
func (s *CountService) RefreshCatalog(ctx context.Context) error {
	items, err := s.remote.SearchItems(ctx, "")
	if err != nil {
		return err
	}
	return s.cache.PutItems(ctx, items)
}

// GetSession reads a session from the local cache.
func (s *CountService) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	var session models.Session
	if err := s.cache.Get(ctx, models.EntitySessions, sessionID, &session); err != nil {
		return models.Session{}, err
	}
	return session, nil
}
