// Package suite provides the storage fixtures shared by integration tests: a throwaway Redis for
// live games, presence and challenges, and a SQLite history database in a temporary directory.
package suite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/storage"
)

// RedisAddrEnv points the suite at an already running Redis instead of a container.
const RedisAddrEnv = "TICTACTOE_TEST_REDIS_ADDR"

const (
	containerTTL    = 120
	maxWaitDuration = 120 * time.Second
)

const (
	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "7-alpine"
)

type Suite struct {
	*testing.T
	Logger *slog.Logger

	Storage *redis.Client
	Redis   *storage.RedisStorage
}

// New returns a suite backed by an empty Redis database. Integration tests are skipped with -short.
func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(cancel)

	var client *redis.Client
	if addr := os.Getenv(RedisAddrEnv); addr != "" {
		client = connectExisting(ctx, t, addr)
	} else {
		client = startContainer(ctx, t)
	}

	s := &Suite{
		T:       t,
		Logger:  NewLogger(t),
		Storage: client,
		Redis:   &storage.RedisStorage{Connection: client},
	}
	s.Flush(ctx)

	return ctx, s
}

// Flush drops every key in the suite's database.
func (that *Suite) Flush(ctx context.Context) {
	that.Helper()

	if err := that.Storage.FlushDB(ctx).Err(); err != nil {
		that.Fatalf("could not flush database: %v", err)
	}
}

// NewSQLite opens an initialised history database in a temporary directory.
func NewSQLite(t *testing.T) *storage.Storage {
	t.Helper()

	db, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "history", "tictactoe.db"))
	if err != nil {
		t.Fatalf("could not open history database: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	if err = db.Init(context.Background()); err != nil {
		t.Fatalf("could not create history tables: %v", err)
	}

	return db
}

// NewLogger routes JSON log lines to t.Log so they only show up for failing or verbose runs.
func NewLogger(t *testing.T) *slog.Logger {
	return slog.New(slog.NewJSONHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type testWriter struct {
	t *testing.T
}

func (that testWriter) Write(p []byte) (int, error) {
	that.t.Log(string(p))
	return len(p), nil
}

// connectExisting shares one server between tests, so every test also flushes on the way out.
func connectExisting(ctx context.Context, t *testing.T, addr string) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("could not connect to redis at %s: %v", addr, err)
	}

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})

	return client
}

func startContainer(ctx context.Context, t *testing.T) *redis.Client {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start redis container: %v", err)
	}

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Errorf("could not purge redis container: %v", err)
		}
	})

	// hard kill in case cleanup never runs
	_ = resource.Expire(containerTTL)

	pool.MaxWait = maxWaitDuration

	addr := resource.GetHostPort(redisPort)

	var client *redis.Client
	if err = pool.Retry(func() error {
		client = redis.NewClient(&redis.Options{Addr: addr})
		return client.Ping(ctx).Err()
	}); err != nil {
		t.Fatalf("could not connect to redis: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}
