package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("Fills defaults", func(t *testing.T) {
		// Given: a file that only sets the port
		path := writeConfig(t, "http-port: \"8081\"\n")

		// When: it is loaded
		conf, err := Load(path)

		// Then: everything else takes its default
		require.NoError(t, err)
		assert.Equal(t, "8081", conf.HTTPPort)
		assert.Equal(t, "info", conf.LogLevel)
		assert.Equal(t, "localhost:6379", conf.Redis.GetRedisAddr())
		assert.Equal(t, 3, conf.Game.DefaultGridSize)
		assert.Equal(t, 500*time.Millisecond, conf.Game.ComputerDelay)
		assert.Equal(t, 5*time.Minute, conf.Presence.ActiveWindow)
	})

	t.Run("Reads nested sections", func(t *testing.T) {
		path := writeConfig(t, `
log-level: debug
redis:
  host: cache
  port: "6380"
  db: 2
game:
  default-grid-size: 5
  computer-delay: 1s
history:
  path: /tmp/history.db
`)

		conf, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "cache:6380", conf.Redis.GetRedisAddr())
		assert.Equal(t, 2, conf.Redis.DB)
		assert.Equal(t, 5, conf.Game.DefaultGridSize)
		assert.Equal(t, time.Second, conf.Game.ComputerDelay)

		historyPath, err := conf.History.ResolvePath()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/history.db", historyPath)
	})

	t.Run("Environment overrides the file", func(t *testing.T) {
		path := writeConfig(t, "http-port: \"8081\"\n")
		t.Setenv("TICTACTOE_HTTP_PORT", "7070")

		conf, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "7070", conf.HTTPPort)
	})

	t.Run("Rejects unsupported grid sizes", func(t *testing.T) {
		path := writeConfig(t, "game:\n  default-grid-size: 7\n")

		_, err := Load(path)

		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("Rejects unknown log levels", func(t *testing.T) {
		path := writeConfig(t, "log-level: loud\n")

		_, err := Load(path)

		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("MustLoad panics on a missing file", func(t *testing.T) {
		assert.Panics(t, func() {
			MustLoad(filepath.Join(t.TempDir(), "absent.yml"))
		})
	})
}
