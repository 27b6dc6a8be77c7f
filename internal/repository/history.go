package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type sqlMatch struct {
	conn *sql.DB
}

// NewSQLMatchRepository keeps match history in the local SQLite database used by offline play.
func NewSQLMatchRepository(conn *sql.DB) MatchRepository {
	return &sqlMatch{
		conn: conn,
	}
}

func (that *sqlMatch) Add(ctx context.Context, match *entity.MatchRecord) error {
	moves, err := json.Marshal(match.Moves)
	if err != nil {
		return fmt.Errorf("can't marshal moves: %w", err)
	}

	query := `INSERT INTO matches (id, identity, game_id, mode, mark, outcome, result, moves, grid_size, played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = that.conn.ExecContext(ctx, query,
		match.ID, match.Identity, match.GameID, string(match.Mode), string(match.Mark),
		string(match.Outcome), string(match.Result), string(moves), match.GridSize,
		match.PlayedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("can't save match: %w", err)
	}

	return nil
}

func (that *sqlMatch) ListByIdentity(ctx context.Context, identity string, limit int) ([]*entity.MatchRecord, error) {
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}

	query := `SELECT id, identity, game_id, mode, mark, outcome, result, moves, grid_size, played_at
		FROM matches WHERE identity = ? ORDER BY played_at DESC LIMIT ?`

	rows, err := that.conn.QueryContext(ctx, query, identity, limit)
	if err != nil {
		return nil, fmt.Errorf("can't list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*entity.MatchRecord, 0, limit)
	for rows.Next() {
		var (
			match                              entity.MatchRecord
			mode, mark, outcome, result, moves string
			playedAt                           string
		)

		err = rows.Scan(&match.ID, &match.Identity, &match.GameID, &mode, &mark, &outcome, &result,
			&moves, &match.GridSize, &playedAt)
		if err != nil {
			return nil, fmt.Errorf("can't scan match: %w", err)
		}

		match.Mode = entity.GameMode(mode)
		match.Mark = entity.Mark(mark)
		match.Outcome = entity.Outcome(outcome)
		match.Result = entity.MatchResult(result)

		if err = json.Unmarshal([]byte(moves), &match.Moves); err != nil {
			return nil, fmt.Errorf("can't unmarshal moves: %w", err)
		}

		if match.PlayedAt, err = time.Parse(time.RFC3339Nano, playedAt); err != nil {
			return nil, fmt.Errorf("can't parse played_at: %w", err)
		}

		matches = append(matches, &match)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't list matches: %w", err)
	}

	return matches, nil
}

func (that *sqlMatch) DeleteByIdentity(ctx context.Context, identity string) error {
	if _, err := that.conn.ExecContext(ctx, `DELETE FROM matches WHERE identity = ?`, identity); err != nil {
		return fmt.Errorf("can't delete matches: %w", err)
	}

	return nil
}

type sqlStats struct {
	conn *sql.DB
}

func NewSQLStatsRepository(conn *sql.DB) StatsRepository {
	return &sqlStats{
		conn: conn,
	}
}

func (that *sqlStats) Increment(ctx context.Context, identity string, result entity.MatchResult) error {
	var wins, losses, draws int

	switch result {
	case entity.ResultWin:
		wins = 1
	case entity.ResultLoss:
		losses = 1
	case entity.ResultDraw:
		draws = 1
	default:
		return fmt.Errorf("unknown match result %q", result)
	}

	query := `INSERT INTO stats (identity, wins, losses, draws, total_games) VALUES (?, ?, ?, ?, 1)
		ON CONFLICT (identity) DO UPDATE SET
			wins = wins + excluded.wins,
			losses = losses + excluded.losses,
			draws = draws + excluded.draws,
			total_games = total_games + 1`

	if _, err := that.conn.ExecContext(ctx, query, identity, wins, losses, draws); err != nil {
		return fmt.Errorf("can't increment stats: %w", err)
	}

	return nil
}

func (that *sqlStats) GetByIdentity(ctx context.Context, identity string) (*entity.Stats, error) {
	query := `SELECT wins, losses, draws, total_games FROM stats WHERE identity = ?`

	stats := &entity.Stats{Identity: identity}

	err := that.conn.QueryRowContext(ctx, query, identity).
		Scan(&stats.Wins, &stats.Losses, &stats.Draws, &stats.TotalGames)
	if errors.Is(err, sql.ErrNoRows) {
		return stats, nil
	}
	if err != nil {
		return nil, fmt.Errorf("can't get stats: %w", err)
	}

	return stats, nil
}

func (that *sqlStats) DeleteByIdentity(ctx context.Context, identity string) error {
	if _, err := that.conn.ExecContext(ctx, `DELETE FROM stats WHERE identity = ?`, identity); err != nil {
		return fmt.Errorf("can't reset stats: %w", err)
	}

	return nil
}
