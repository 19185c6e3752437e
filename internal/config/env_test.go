// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_AllFields(t *testing.T) {
	// Arrange
	envVars := map[string]string{
		"CONFIG": "/path/to/config.json",

		"ADAPTER_BASE_URL":        "https://wms.example.com",
		"ADAPTER_REQUEST_TIMEOUT": "30s",

		"STORAGE_DB_DATABASE_URI": "/data/stockverify.db",

		"SYNC_BASE_DELAY":               "2s",
		"SYNC_MAX_DELAY":                "1m",
		"SYNC_MAX_ATTEMPTS_INTERACTIVE": "4",
		"SYNC_MAX_ATTEMPTS_BACKGROUND":  "10",
		"SYNC_DEDUP_WINDOW":             "30s",
		"SYNC_INTERVAL":                 "5m",
	}
	setEnvVars(t, envVars)

	// Act
	cfg := &StructuredConfig{}
	err := parseEnv(cfg)

	// Assert
	require.NoError(t, err)

	assert.Equal(t, "/path/to/config.json", cfg.JSONFilePath)

	assert.Equal(t, "https://wms.example.com", cfg.Adapter.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Adapter.RequestTimeout)

	assert.Equal(t, "/data/stockverify.db", cfg.Storage.DB.DSN)

	assert.Equal(t, 2*time.Second, cfg.Sync.BaseDelay)
	assert.Equal(t, time.Minute, cfg.Sync.MaxDelay)
	assert.Equal(t, 4, cfg.Sync.MaxAttemptsInteractive)
	assert.Equal(t, 10, cfg.Sync.MaxAttemptsBackground)
	assert.Equal(t, 30*time.Second, cfg.Sync.DedupWindow)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
}

func TestParseEnv_PartialFields(t *testing.T) {
	setEnvVars(t, map[string]string{
		"ADAPTER_BASE_URL": "http://localhost:8080",
	})

	cfg := &StructuredConfig{}
	require.NoError(t, parseEnv(cfg))

	assert.Equal(t, "http://localhost:8080", cfg.Adapter.BaseURL)
	assert.Zero(t, cfg.Adapter.RequestTimeout)
	assert.Empty(t, cfg.Storage.DB.DSN)
}

func setEnvVars(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}
