package session

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockSQLStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db, "device-1"), mock
}

func TestSQLStore_EnsureSchema(t *testing.T) {
	store, mock := newMockSQLStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS device_storage`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		store, mock := newMockSQLStore(t)
		mock.ExpectQuery(`SELECT value FROM device_storage WHERE device_id = \$1 AND key = \$2`).
			WithArgs("device-1", KeyAccessToken).
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("tok"))

		v, ok, err := store.Get(ctx, KeyAccessToken)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "tok", v)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		store, mock := newMockSQLStore(t)
		mock.ExpectQuery(`SELECT value FROM device_storage`).
			WithArgs("device-1", KeyAccessToken).
			WillReturnError(sql.ErrNoRows)

		_, ok, err := store.Get(ctx, KeyAccessToken)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("DBError", func(t *testing.T) {
		store, mock := newMockSQLStore(t)
		mock.ExpectQuery(`SELECT value FROM device_storage`).
			WillReturnError(errors.New("connection refused"))

		_, _, err := store.Get(ctx, KeyAccessToken)
		assert.ErrorIs(t, err, ErrStoreRead)
	})
}

func TestSQLStore_MultiGet(t *testing.T) {
	store, mock := newMockSQLStore(t)

	mock.ExpectQuery(`SELECT key, value FROM device_storage WHERE device_id = \$1 AND key = ANY\(\$2\)`).
		WithArgs("device-1", pq.Array([]string{KeyAccessToken, KeyIsDasher})).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow(KeyAccessToken, "tok").
			AddRow(KeyIsDasher, "true"))

	values, err := store.MultiGet(context.Background(), KeyIsDasher, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{KeyAccessToken: "tok", KeyIsDasher: "true"}, values)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_MultiSet(t *testing.T) {
	ctx := context.Background()
	pairs := map[string]string{KeyUserID: "u-1", KeyAccessToken: "tok"}

	t.Run("Success commits every key", func(t *testing.T) {
		store, mock := newMockSQLStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO device_storage`).
			WithArgs("device-1", KeyAccessToken, "tok").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO device_storage`).
			WithArgs("device-1", KeyUserID, "u-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, store.MultiSet(ctx, pairs))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure rolls back", func(t *testing.T) {
		store, mock := newMockSQLStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO device_storage`).
			WithArgs("device-1", KeyAccessToken, "tok").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO device_storage`).
			WithArgs("device-1", KeyUserID, "u-1").
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := store.MultiSet(ctx, pairs)
		assert.ErrorIs(t, err, ErrStoreWrite)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLStore_MultiRemove(t *testing.T) {
	store, mock := newMockSQLStore(t)

	mock.ExpectExec(`DELETE FROM device_storage WHERE device_id = \$1 AND key = ANY\(\$2\)`).
		WithArgs("device-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 5))

	assert.NoError(t, store.MultiRemove(context.Background(), AllKeys...))
	assert.NoError(t, mock.ExpectationsWereMet())
}
