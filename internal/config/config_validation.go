// SPDX-License-Identifier: Apache-2.0

package config

import "strings"

// validate checks that the client configuration satisfies the engine's
// startup invariants.
//
// Returns nil if the configuration is valid, or a sentinel error otherwise.
func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" || strings.Contains(cfg.Storage.DB.DSN, "memory") {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.BaseURL == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Sync.BaseDelay <= 0 || cfg.Sync.MaxDelay < cfg.Sync.BaseDelay {
		return ErrInvalidSyncConfigs
	}

	return nil
}
