package config

import (
	"flag"
	"time"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-s warehouse API base URL
//	-d local database path (SQLite file)
//	-c/-config json file path with configs
//	-request-timeout outbound request timeout (e.g., "15s")
//	-sync-interval background drain interval (e.g., "5m")
//	-sync-base-delay first retry backoff delay (e.g., "2s")
//	-sync-max-delay backoff delay cap (e.g., "2m")
func ParseFlags() *StructuredConfig {
	var baseURL string
	var databaseDSN string
	var jsonConfigPath string
	var requestTimeout time.Duration
	var syncInterval time.Duration
	var syncBaseDelay time.Duration
	var syncMaxDelay time.Duration

	flag.StringVar(&baseURL, "s", "", "Warehouse API base URL")
	flag.StringVar(&databaseDSN, "d", "", "Local database path")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 15s)")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Background drain interval (e.g., 5m)")
	flag.DurationVar(&syncBaseDelay, "sync-base-delay", 0, "First retry backoff delay (e.g., 2s)")
	flag.DurationVar(&syncMaxDelay, "sync-max-delay", 0, "Backoff delay cap (e.g., 2m)")

	flag.Parse()

	return &StructuredConfig{
		Adapter: Adapter{
			BaseURL:        baseURL,
			RequestTimeout: requestTimeout,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
		},
		Sync: Sync{
			BaseDelay: syncBaseDelay,
			MaxDelay:  syncMaxDelay,
			Interval:  syncInterval,
		},
		JSONFilePath: jsonConfigPath,
	}
}
