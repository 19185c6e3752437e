// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for stockverify.
// It aggregates all sub-configurations and is populated by merging values
// from environment variables, command-line flags, and an optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// Adapter holds the remote warehouse API endpoint settings.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Storage holds configuration for the local durable store.
	Storage Storage `envPrefix:"STORAGE_"`

	// Sync holds retry, backoff and drain-loop settings for the
	// offline synchronization engine.
	Sync Sync `envPrefix:"SYNC_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// Adapter holds the outbound transport settings for the warehouse API.
type Adapter struct {
	// BaseURL is the warehouse API base URL (e.g. "https://wms.example.com").
	// Env: ADAPTER_BASE_URL
	BaseURL string `env:"BASE_URL"`

	// RequestTimeout is the per-request deadline for outbound calls
	// (e.g. "15s"). Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// Token is the bearer token presented to the warehouse API.
	// Env: ADAPTER_TOKEN
	Token string `env:"TOKEN"`
}

// Storage holds the local persistence settings.
type Storage struct {
	// DB holds the SQLite connection settings for the durable
	// key-value substrate backing the queue and cache.
	DB DB `envPrefix:"DB_"`
}

// DB holds connection settings for the local database.
type DB struct {
	// DSN is the SQLite file path used by the client
	// (e.g. "/data/stockverify.db"). Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Sync holds the tunables of the offline queue and drain loop.
type Sync struct {
	// BaseDelay is the first retry delay for a transient delivery failure;
	// subsequent delays double up to MaxDelay. Env: SYNC_BASE_DELAY
	BaseDelay time.Duration `env:"BASE_DELAY"`

	// MaxDelay caps the exponential backoff between delivery attempts.
	// Env: SYNC_MAX_DELAY
	MaxDelay time.Duration `env:"MAX_DELAY"`

	// MaxAttemptsInteractive bounds direct-send retries on the write path
	// before the mutation is queued. Env: SYNC_MAX_ATTEMPTS_INTERACTIVE
	MaxAttemptsInteractive int `env:"MAX_ATTEMPTS_INTERACTIVE"`

	// MaxAttemptsBackground bounds delivery attempts during queue draining
	// before an item is parked. Zero means unbounded (delays stay capped
	// at MaxDelay). Env: SYNC_MAX_ATTEMPTS_BACKGROUND
	MaxAttemptsBackground int `env:"MAX_ATTEMPTS_BACKGROUND"`

	// DedupWindow is the staleness window for collapsing concurrent
	// identical read requests. Env: SYNC_DEDUP_WINDOW
	DedupWindow time.Duration `env:"DEDUP_WINDOW"`

	// Interval defines how often the background drain ticker fires in
	// addition to connectivity-driven triggers. Env: SYNC_INTERVAL
	Interval time.Duration `env:"INTERVAL"`
}

// GetStructuredConfig loads, merges, and validates the application
// configuration from all available sources in the following priority order
// (last source wins for non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
