package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/lib/pq"
)

const createDeviceStorageTable = `
	CREATE TABLE IF NOT EXISTS device_storage (
		device_id  TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		PRIMARY KEY (device_id, key)
	)`

// SQLStore persists device storage rows in Postgres, one row per key.
type SQLStore struct {
	db       *sql.DB
	deviceID string
}

func NewSQLStore(db *sql.DB, deviceID string) *SQLStore {
	return &SQLStore{db: db, deviceID: deviceID}
}

func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createDeviceStorageTable); err != nil {
		return fmt.Errorf("failed to ensure device_storage table: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM device_storage WHERE device_id = $1 AND key = $2`,
		s.deviceID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrStoreRead, err)
	}
	return value, true, nil
}

func (s *SQLStore) MultiGet(ctx context.Context, keys ...string) (map[string]string, error) {
	if err := validateKeys(keys); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM device_storage WHERE device_id = $1 AND key = ANY($2)`,
		s.deviceID, pq.Array(sortedCopy(keys)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreRead, err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreRead, err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreRead, err)
	}
	return out, nil
}

func (s *SQLStore) MultiSet(ctx context.Context, pairs map[string]string) (err error) {
	keys := sortedCopy(pairKeys(pairs))
	if err := validateKeys(keys); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, k := range keys {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO device_storage (device_id, key, value, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (device_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
			s.deviceID, k, pairs[k],
		)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreWrite, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	return nil
}

func (s *SQLStore) MultiRemove(ctx context.Context, keys ...string) error {
	if err := validateKeys(keys); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM device_storage WHERE device_id = $1 AND key = ANY($2)`,
		s.deviceID, pq.Array(sortedCopy(keys)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreRemove, err)
	}
	return nil
}

func sortedCopy(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	return out
}
