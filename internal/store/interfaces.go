// SPDX-License-Identifier: Apache-2.0

// Package store provides the durable key-value substrate backing the offline
// queue, the local cache and the conflict ledger.
//
// The engine consumes only the [KVStore] contract; the shipped implementation
// persists to a single SQLite table so that queued mutations and cached
// entities survive process restarts on the device. All engine state lives
// under fixed namespaced keys (see the Key* constants).
package store

import "context"

//go:generate mockgen -source=interfaces.go -destination=../mock/kv_store_mock.go -package=mock

// Fixed namespaced keys under which the engine persists its state.
const (
	// KeyQueue holds the ordered list of pending mutations.
	KeyQueue = "stockverify:queue"
	// KeyParked holds mutations removed from active retry and awaiting
	// manual handling.
	KeyParked = "stockverify:parked"
	// KeyConflicts holds detected sync conflicts, pending and resolved.
	KeyConflicts = "stockverify:conflicts"
	// KeyCachePrefix prefixes one key per cached-entity collection.
	KeyCachePrefix = "stockverify:cache:"
	// KeyLastSync holds the timestamp of the last fully completed drain.
	KeyLastSync = "stockverify:last_sync"
)

// KVStore is the durable key-value contract consumed by the engine. All
// operations are total: a Get miss reports found == false, never an error.
// Set must have written through to the durable medium before returning.
type KVStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys returns all stored keys beginning with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
