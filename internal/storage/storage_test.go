package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamezone/internal/core"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "gamezone.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamezone.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	assert.NoError(t, db.Ping(context.Background()))
}

func TestSessionValues_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	values, err := db.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, values)

	require.NoError(t, db.SaveSession(ctx, "s1", map[string]string{"token": "jwt", "name": "Abebe"}, time.Hour))
	require.NoError(t, db.SaveSession(ctx, "s2", map[string]string{"name": "Sara"}, time.Hour))

	values, err = db.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"token": "jwt", "name": "Abebe"}, values)

	require.NoError(t, db.SaveSession(ctx, "s1", map[string]string{"name": "Abebe"}, time.Hour))
	values, err = db.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "Abebe"}, values, "save replaces the whole session")

	require.NoError(t, db.DeleteSession(ctx, "s1"))
	values, err = db.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, values)

	values, err = db.LoadSession(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "Sara", values["name"])
}

func TestSessionValues_Expiry(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveSession(ctx, "old", map[string]string{"token": "t"}, -time.Minute))
	require.NoError(t, db.SaveSession(ctx, "new", map[string]string{"token": "t"}, time.Hour))

	values, err := db.LoadSession(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, values)

	n, err := db.PurgeExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestActivity_RecordAndList(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 16, 9, 0, 0, 0, time.UTC)

	first := core.NewMutationEvent(core.EntityGame, core.ActionCreate, "g1", "Abebe", base)
	second := core.NewMutationEvent(core.EntityExpense, core.ActionDelete, "e1", "Sara", base.Add(time.Minute))

	inserted, err := db.RecordActivity(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = db.RecordActivity(ctx, second)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = db.RecordActivity(ctx, first)
	require.NoError(t, err)
	assert.False(t, inserted, "redelivery is a no-op")

	list, err := db.ListActivity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].EventID)
	assert.Equal(t, "Expense", list[0].Entity)
	assert.Equal(t, "DELETE", list[0].Action)
	assert.Equal(t, "Sara", list[0].Admin)
	assert.True(t, base.Add(time.Minute).Equal(list[0].OccurredAt))
	assert.Equal(t, "g1", list[1].EntityID)

	list, err = db.ListActivity(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
