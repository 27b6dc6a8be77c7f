package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// MaxHistory caps how many finished games are kept per identity.
const MaxHistory = 100

const (
	statsWins   = "wins"
	statsLosses = "losses"
	statsDraws  = "draws"
	statsTotal  = "total_games"
)

type MatchRepository interface {
	Add(ctx context.Context, match *entity.MatchRecord) error
	ListByIdentity(ctx context.Context, identity string, limit int) ([]*entity.MatchRecord, error)
	DeleteByIdentity(ctx context.Context, identity string) error
}

type StatsRepository interface {
	Increment(ctx context.Context, identity string, result entity.MatchResult) error
	GetByIdentity(ctx context.Context, identity string) (*entity.Stats, error)
	DeleteByIdentity(ctx context.Context, identity string) error
}

type dbMatch struct {
	client *redis.Client
}

func NewMatchRepository(client *redis.Client) MatchRepository {
	return &dbMatch{
		client: client,
	}
}

func matchesKey(identity string) string {
	return "matches:" + identity
}

func (that *dbMatch) Add(ctx context.Context, match *entity.MatchRecord) error {
	matchJSON, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("failed to marshal match: %w", err)
	}

	key := matchesKey(match.Identity)

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, matchJSON)
		pipe.LTrim(ctx, key, 0, MaxHistory-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add match: %w", err)
	}

	return nil
}

// ListByIdentity returns the most recent matches first.
func (that *dbMatch) ListByIdentity(ctx context.Context, identity string, limit int) ([]*entity.MatchRecord, error) {
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}

	values, err := that.client.LRange(ctx, matchesKey(identity), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	matches := make([]*entity.MatchRecord, 0, len(values))
	for _, value := range values {
		var match entity.MatchRecord
		if err = json.Unmarshal([]byte(value), &match); err != nil {
			return nil, fmt.Errorf("failed to unmarshal match: %w", err)
		}

		matches = append(matches, &match)
	}

	return matches, nil
}

func (that *dbMatch) DeleteByIdentity(ctx context.Context, identity string) error {
	if err := that.client.Del(ctx, matchesKey(identity)).Err(); err != nil {
		return fmt.Errorf("failed to delete matches: %w", err)
	}

	return nil
}

type dbStats struct {
	client *redis.Client
}

func NewStatsRepository(client *redis.Client) StatsRepository {
	return &dbStats{
		client: client,
	}
}

func statsKey(identity string) string {
	return "stats:" + identity
}

func statsField(result entity.MatchResult) (string, error) {
	switch result {
	case entity.ResultWin:
		return statsWins, nil
	case entity.ResultLoss:
		return statsLosses, nil
	case entity.ResultDraw:
		return statsDraws, nil
	default:
		return "", fmt.Errorf("unknown match result %q", result)
	}
}

func (that *dbStats) Increment(ctx context.Context, identity string, result entity.MatchResult) error {
	field, err := statsField(result)
	if err != nil {
		return err
	}

	key := statsKey(identity)

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, field, 1)
		pipe.HIncrBy(ctx, key, statsTotal, 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to increment stats: %w", err)
	}

	return nil
}

// GetByIdentity returns zeroed stats for identities that never finished a game.
func (that *dbStats) GetByIdentity(ctx context.Context, identity string) (*entity.Stats, error) {
	stats := &entity.Stats{Identity: identity}

	var fields struct {
		Wins   int64 `redis:"wins"`
		Losses int64 `redis:"losses"`
		Draws  int64 `redis:"draws"`
		Total  int64 `redis:"total_games"`
	}

	if err := that.client.HGetAll(ctx, statsKey(identity)).Scan(&fields); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	stats.Wins = fields.Wins
	stats.Losses = fields.Losses
	stats.Draws = fields.Draws
	stats.TotalGames = fields.Total

	return stats, nil
}

func (that *dbStats) DeleteByIdentity(ctx context.Context, identity string) error {
	if err := that.client.Del(ctx, statsKey(identity)).Err(); err != nil {
		return fmt.Errorf("failed to reset stats: %w", err)
	}

	return nil
}
