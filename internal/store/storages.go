package store

import (
	"context"
	"fmt"

	"github.com/mknoufi/stockverify/internal/config"
	"github.com/mknoufi/stockverify/internal/logger"
)

// ClientStorages groups the client-side storage repositories into a single
// value that can be passed around the service layer. Currently it holds only
// the [KVStore] substrate; additional repositories can be added here as the
// feature set grows.
type ClientStorages struct {
	// KV is the SQLite-backed durable key-value substrate under which the
	// offline queue, local cache and conflict ledger persist their state.
	KV KVStore
}

// NewClientStorages initialises the client storage layer using the supplied
// configuration and logger. It performs the following steps:
//  1. Opens an SQLite connection to the file path specified in cfg.DB.DSN,
//     creating the database file if it does not yet exist.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Constructs and returns a [ClientStorages] value wired to a fresh
//     [KVStore] repository.
//
// Returns an error if the database connection cannot be established or if
// migration fails.
func NewClientStorages(cfg config.Storage, logger *logger.Logger) (*ClientStorages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(context.Background(), cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &ClientStorages{
		KV: NewKVRepository(db, logger),
	}, nil
}
