package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// import the SQLite driver to register it with the database/sql package.
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

type Storage struct {
	Connection *sql.DB
}

func NewSQLiteStorage(path string) (*Storage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("can't create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &Storage{Connection: conn}, nil
}

func (that *Storage) Init(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			identity TEXT NOT NULL,
			game_id TEXT NOT NULL DEFAULT '',
			mode TEXT NOT NULL,
			mark TEXT NOT NULL,
			outcome TEXT NOT NULL,
			result TEXT NOT NULL,
			moves TEXT NOT NULL,
			grid_size INTEGER NOT NULL,
			played_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS matches_identity_played_at ON matches (identity, played_at)`,
		`CREATE TABLE IF NOT EXISTS stats (
			identity TEXT PRIMARY KEY,
			wins INTEGER NOT NULL DEFAULT 0,
			losses INTEGER NOT NULL DEFAULT 0,
			draws INTEGER NOT NULL DEFAULT 0,
			total_games INTEGER NOT NULL DEFAULT 0
		)`,
	}

	for _, query := range queries {
		if _, err := that.Connection.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("can't create table: %w", err)
		}
	}

	return nil
}

func (that *Storage) Close() error {
	return that.Connection.Close()
}
