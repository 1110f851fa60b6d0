package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

func countSets(t *testing.T, store *Store) int {
	t.Helper()
	sets, err := store.ListSets(context.Background(), false)
	require.NoError(t, err)
	return len(sets)
}

func insertSet(ctx context.Context, tx *sql.Tx, db *DB, code string) error {
	_, err := tx.ExecContext(ctx, db.rebind(`INSERT INTO sets (code, start_date, active) VALUES (?, '', ?)`), code, true)
	return err
}

func TestWithTransaction_Commit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		return insertSet(ctx, tx, store.db, "BLB")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countSets(t, store))
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := insertSet(ctx, tx, store.db, "BLB"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countSets(t, store))
}

func TestWithTransaction_RollbackOnPanic(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = store.db.WithTransaction(ctx, func(tx *sql.Tx) error {
			if err := insertSet(ctx, tx, store.db, "BLB"); err != nil {
				return err
			}
			panic("boom")
		})
	})
	assert.Equal(t, 0, countSets(t, store))

	require.NoError(t, store.UpsertSet(ctx, models.Set{Code: "DSK", Active: true}))
	assert.Equal(t, 1, countSets(t, store))
}
