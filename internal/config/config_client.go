package config

import (
	"fmt"
	"time"
)

// Defaults applied by [GetClientConfig] when the merged configuration leaves
// a field unset. The fail-open network policy and human-paced queue volumes
// make generous retry ceilings acceptable here.
const (
	DefaultRequestTimeout         = 15 * time.Second
	DefaultBaseDelay              = 2 * time.Second
	DefaultMaxDelay               = 2 * time.Minute
	DefaultMaxAttemptsInteractive = 3
	DefaultDedupWindow            = 30 * time.Second
	DefaultSyncInterval           = 5 * time.Minute
)

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	// Adapter contains the remote warehouse API settings.
	Adapter Adapter
	// Storage contains local durable store settings.
	Storage Storage
	// Sync contains queue, retry and drain-loop settings.
	Sync Sync
}

// GetClientConfig builds and validates the client config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps only the fields
// relevant to the client runtime, applies defaults for unset values, and
// validates the resulting [ClientConfig].
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := &ClientConfig{
		Adapter: cfg.Adapter,
		Storage: cfg.Storage,
		Sync:    cfg.Sync,
	}
	clientCfg.applyDefaults()

	return clientCfg, clientCfg.validate()
}

func (cfg *ClientConfig) applyDefaults() {
	if cfg.Adapter.RequestTimeout <= 0 {
		cfg.Adapter.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Sync.BaseDelay <= 0 {
		cfg.Sync.BaseDelay = DefaultBaseDelay
	}
	if cfg.Sync.MaxDelay <= 0 {
		cfg.Sync.MaxDelay = DefaultMaxDelay
	}
	if cfg.Sync.MaxAttemptsInteractive <= 0 {
		cfg.Sync.MaxAttemptsInteractive = DefaultMaxAttemptsInteractive
	}
	if cfg.Sync.DedupWindow <= 0 {
		cfg.Sync.DedupWindow = DefaultDedupWindow
	}
	if cfg.Sync.Interval <= 0 {
		cfg.Sync.Interval = DefaultSyncInterval
	}
	// MaxAttemptsBackground stays zero by default: background draining
	// retries indefinitely with the delay capped at MaxDelay.
}
