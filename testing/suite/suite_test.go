package suite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLite(t *testing.T) {
	t.Run("Opens a database with the history tables", func(t *testing.T) {
		// Given: a fresh fixture
		db := NewSQLite(t)

		// When: the schema is listed
		rows, err := db.Connection.QueryContext(context.Background(),
			`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
		require.NoError(t, err)
		defer rows.Close()

		var tables []string
		for rows.Next() {
			var name string
			require.NoError(t, rows.Scan(&name))
			tables = append(tables, name)
		}
		require.NoError(t, rows.Err())

		// Then: both history tables exist and are empty
		assert.Equal(t, []string{"matches", "stats"}, tables)

		var count int
		require.NoError(t, db.Connection.QueryRow(`SELECT COUNT(*) FROM matches`).Scan(&count))
		assert.Zero(t, count)
	})

	t.Run("Each test gets its own database", func(t *testing.T) {
		first := NewSQLite(t)
		second := NewSQLite(t)

		_, err := first.Connection.Exec(`INSERT INTO stats (identity, wins) VALUES ('alice', 1)`)
		require.NoError(t, err)

		var count int
		require.NoError(t, second.Connection.QueryRow(`SELECT COUNT(*) FROM stats`).Scan(&count))
		assert.Zero(t, count)
	})
}

func TestSuite_Flush(t *testing.T) {
	ctx, s := New(t)

	// Given: a key left behind by an earlier step
	require.NoError(t, s.Storage.Set(ctx, "game:leftover", "1", 0).Err())

	// When: the suite is flushed
	s.Flush(ctx)

	// Then: the database is empty and the storage wrapper shares the client
	size, err := s.Storage.DBSize(ctx).Result()
	require.NoError(t, err)
	assert.Zero(t, size)
	assert.Same(t, s.Storage, s.Redis.Connection)
}
