package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/mknoufi/stockverify/internal/logger"
)

type kvRepository struct {
	*DB
	logger *logger.Logger
}

// NewKVRepository returns the SQLite-backed [KVStore] used as the durable
// substrate for queue, cache and conflict state.
func NewKVRepository(db *DB, logger *logger.Logger) KVStore {
	return &kvRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *kvRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	log := logger.FromContext(ctx)

	query, args, err := sq.Select("value").From("kv").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var value []byte
	err = r.DB.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		log.Err(err).
			Str("func", "kvRepository.Get").
			Str("key", key).
			Msg("failed to query kv row")
		return nil, false, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return value, true, nil
}

func (r *kvRepository) Set(ctx context.Context, key string, value []byte) error {
	log := logger.FromContext(ctx)

	query, args, err := sq.Insert("kv").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "kvRepository.Set").
			Str("key", key).
			Msg("failed to execute upsert for kv row")
		return fmt.Errorf("failed to set kv key %s: %w", key, err)
	}

	return nil
}

func (r *kvRepository) Delete(ctx context.Context, key string) error {
	log := logger.FromContext(ctx)

	query, args, err := sq.Delete("kv").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "kvRepository.Delete").
			Str("key", key).
			Msg("failed to execute delete for kv row")
		return fmt.Errorf("failed to delete kv key %s: %w", key, err)
	}

	return nil
}

func (r *kvRepository) Keys(ctx context.Context, prefix string) ([]string, error) {
	log := logger.FromContext(ctx)

	query, args, err := sq.Select("key").From("kv").
		Where(sq.Like{"key": prefix + "%"}).
		OrderBy("key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "kvRepository.Keys").
			Str("prefix", prefix).
			Msg("failed to execute query for kv keys")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if scanErr := rows.Scan(&key); scanErr != nil {
			log.Err(scanErr).
				Str("func", "kvRepository.Keys").
				Str("prefix", prefix).
				Msg("failed to scan kv key row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}
		keys = append(keys, key)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "kvRepository.Keys").
			Str("prefix", prefix).
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("error iterating kv key rows: %w", rowsErr)
	}

	return keys, nil
}
