// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mknoufi/stockverify/internal/logger"
	"github.com/mknoufi/stockverify/internal/store"
	"github.com/mknoufi/stockverify/models"
)

// LocalCache holds the last known server state per entity collection so the
// UI keeps working without connectivity. Records are whole-record snapshots
// keyed by their natural id; writes always replace the complete record,
// never merge fields. The cache is read-through: server responses land here,
// reads fall back here when the network does not.
type LocalCache struct {
	kv     store.KVStore
	logger *logger.Logger
	now    func() time.Time
}

// cacheEntry wraps a stored record with the time it was cached. Nothing
// expires by time; the stamp serves diagnostics and shift-review tooling.
type cacheEntry struct {
	Value    json.RawMessage `json:"value"`
	CachedAt time.Time       `json:"cached_at"`
}

func NewLocalCache(kv store.KVStore, log *logger.Logger) *LocalCache {
	return &LocalCache{kv: kv, logger: log, now: time.Now}
}

// Put stores one record in a collection, replacing any previous snapshot
// under the same id.
func (c *LocalCache) Put(ctx context.Context, collection models.EntityType, id string, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("cache put %s/%s: %w", collection, id, err)
	}

	entries, err := c.load(ctx, collection)
	if err != nil {
		return err
	}
	entries[id] = cacheEntry{Value: raw, CachedAt: c.now().UTC()}

	return c.save(ctx, collection, entries)
}

// ReplaceAll swaps a collection's entire contents for the given records.
// Used when a fresh server result supersedes everything cached.
func (c *LocalCache) ReplaceAll(ctx context.Context, collection models.EntityType, records map[string]json.RawMessage) error {
	stamp := c.now().UTC()
	entries := make(map[string]cacheEntry, len(records))
	for id, raw := range records {
		entries[id] = cacheEntry{Value: raw, CachedAt: stamp}
	}
	return c.save(ctx, collection, entries)
}

// Get reads one record and decodes it into out. A miss returns ErrCacheMiss.
func (c *LocalCache) Get(ctx context.Context, collection models.EntityType, id string, out any) error {
	entries, err := c.load(ctx, collection)
	if err != nil {
		return err
	}

	entry, ok := entries[id]
	if !ok {
		return fmt.Errorf("cache get %s/%s: %w", collection, id, ErrCacheMiss)
	}

	if err = json.Unmarshal(entry.Value, out); err != nil {
		return fmt.Errorf("cache get %s/%s: %w", collection, id, err)
	}
	return nil
}

// CachedAt reports when a record was last written to the cache. A miss
// returns ErrCacheMiss.
func (c *LocalCache) CachedAt(ctx context.Context, collection models.EntityType, id string) (time.Time, error) {
	entries, err := c.load(ctx, collection)
	if err != nil {
		return time.Time{}, err
	}

	entry, ok := entries[id]
	if !ok {
		return time.Time{}, fmt.Errorf("cache meta %s/%s: %w", collection, id, ErrCacheMiss)
	}
	return entry.CachedAt, nil
}

// All returns a collection's raw records keyed by id.
func (c *LocalCache) All(ctx context.Context, collection models.EntityType) (map[string]json.RawMessage, error) {
	entries, err := c.load(ctx, collection)
	if err != nil {
		return nil, err
	}

	records := make(map[string]json.RawMessage, len(entries))
	for id, entry := range entries {
		records[id] = entry.Value
	}
	return records, nil
}

// Remove drops one record from a collection. Removing an absent id is a
// no-op.
func (c *LocalCache) Remove(ctx context.Context, collection models.EntityType, id string) error {
	entries, err := c.load(ctx, collection)
	if err != nil {
		return err
	}
	if _, ok := entries[id]; !ok {
		return nil
	}
	delete(entries, id)

	return c.save(ctx, collection, entries)
}

// Clear drops an entire collection.
func (c *LocalCache) Clear(ctx context.Context, collection models.EntityType) error {
	if err := c.kv.Delete(ctx, cacheKey(collection)); err != nil {
		return fmt.Errorf("cache clear %s: %w", collection, err)
	}
	return nil
}

// Purge drops every cached collection at once. Used when an operator resets
// the device between shifts; the queue and conflict ledger are not touched.
func (c *LocalCache) Purge(ctx context.Context) error {
	keys, err := c.kv.Keys(ctx, store.KeyCachePrefix)
	if err != nil {
		return fmt.Errorf("cache purge: %w", err)
	}
	for _, key := range keys {
		if err = c.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("cache purge %s: %w", key, err)
		}
	}
	return nil
}

// PutItems replaces the items collection with a fresh catalog snapshot,
// keyed by SKU. Only a full-catalog refresh should use it; partial results
// go through MergeItems so they do not wipe the rest of the cached catalog.
func (c *LocalCache) PutItems(ctx context.Context, items []models.Item) error {
	stamp := c.now().UTC()
	entries := make(map[string]cacheEntry, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("cache put items: %w", err)
		}
		entries[item.SKU] = cacheEntry{Value: raw, CachedAt: stamp}
	}
	return c.save(ctx, models.EntityItems, entries)
}

// MergeItems folds catalog items into the cached collection, replacing
// entries with matching SKUs and leaving the rest untouched. Search results
// accumulate here so offline lookups keep working across queries.
func (c *LocalCache) MergeItems(ctx context.Context, items []models.Item) error {
	if len(items) == 0 {
		return nil
	}

	entries, err := c.load(ctx, models.EntityItems)
	if err != nil {
		return err
	}
	stamp := c.now().UTC()
	for _, item := range items {
		raw, marshalErr := json.Marshal(item)
		if marshalErr != nil {
			return fmt.Errorf("cache merge items: %w", marshalErr)
		}
		entries[item.SKU] = cacheEntry{Value: raw, CachedAt: stamp}
	}
	return c.save(ctx, models.EntityItems, entries)
}

// SearchItems scans cached catalog items for a case-insensitive substring
// match on SKU, barcode or name. This is the offline fallback for the remote
// item search.
func (c *LocalCache) SearchItems(ctx context.Context, query string) ([]models.Item, error) {
	entries, err := c.load(ctx, models.EntityItems)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))

	var matches []models.Item
	for _, entry := range entries {
		var item models.Item
		if err = json.Unmarshal(entry.Value, &item); err != nil {
			c.logger.Err(err).Str("func", "SearchItems").Msg("skipping corrupt cached item")
			continue
		}

		if needle == "" ||
			strings.Contains(strings.ToLower(item.SKU), needle) ||
			strings.Contains(strings.ToLower(item.Barcode), needle) ||
			strings.Contains(strings.ToLower(item.Name), needle) {
			matches = append(matches, item)
		}
	}

	return matches, nil
}

func (c *LocalCache) load(ctx context.Context, collection models.EntityType) (map[string]cacheEntry, error) {
	raw, found, err := c.kv.Get(ctx, cacheKey(collection))
	if err != nil {
		return nil, fmt.Errorf("cache load %s: %w", collection, err)
	}
	if !found {
		return map[string]cacheEntry{}, nil
	}

	var entries map[string]cacheEntry
	if err = json.Unmarshal(raw, &entries); err != nil {
		c.logger.Err(err).Str("func", "load").Str("collection", string(collection)).Msg("cached collection is corrupt, treating as empty")
		return map[string]cacheEntry{}, nil
	}
	if entries == nil {
		entries = map[string]cacheEntry{}
	}

	return entries, nil
}

func (c *LocalCache) save(ctx context.Context, collection models.EntityType, entries map[string]cacheEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("cache save %s: %w", collection, err)
	}
	if err = c.kv.Set(ctx, cacheKey(collection), raw); err != nil {
		return fmt.Errorf("cache save %s: %w", collection, err)
	}
	return nil
}

func cacheKey(collection models.EntityType) string {
	return store.KeyCachePrefix + string(collection)
}
