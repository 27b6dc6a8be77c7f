package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	activePresenceKey = "presence:active"
	presenceRetention = time.Hour
)

type PresenceRepository interface {
	CreateOrUpdate(ctx context.Context, presence *entity.Presence) error
	GetByID(ctx context.Context, id string) (*entity.Presence, error)
	ListActive(ctx context.Context, since time.Time) ([]*entity.Presence, error)
	DeleteByID(ctx context.Context, id string) error
}

type dbPresence struct {
	client *redis.Client
}

func NewPresenceRepository(client *redis.Client) PresenceRepository {
	return &dbPresence{
		client: client,
	}
}

func presenceKey(id string) string {
	return "presence:" + id
}

func (that *dbPresence) CreateOrUpdate(ctx context.Context, presence *entity.Presence) error {
	presenceJSON, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, presenceKey(presence.ID), presenceJSON, presenceRetention)
		pipe.ZAdd(ctx, activePresenceKey, redis.Z{
			Score:  float64(presence.LastSeen.Unix()),
			Member: presence.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set presence: %w", err)
	}

	return nil
}

func (that *dbPresence) GetByID(ctx context.Context, id string) (*entity.Presence, error) {
	response, err := that.client.Get(ctx, presenceKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrPlayerNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get presence by ID: %w", err)
	}

	var presence entity.Presence
	if err = json.Unmarshal(response, &presence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence: %w", err)
	}

	return &presence, nil
}

// ListActive returns every identity seen at or after since, most recent first.
func (that *dbPresence) ListActive(ctx context.Context, since time.Time) ([]*entity.Presence, error) {
	ids, err := that.client.ZRevRangeByScore(ctx, activePresenceKey, &redis.ZRangeBy{
		Min: strconv.FormatInt(since.Unix(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active presence: %w", err)
	}

	if len(ids) == 0 {
		return []*entity.Presence{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, presenceKey(id))
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get presence records: %w", err)
	}

	presences := make([]*entity.Presence, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var presence entity.Presence
		if err = json.Unmarshal([]byte(raw), &presence); err != nil {
			continue
		}

		presences = append(presences, &presence)
	}

	return presences, nil
}

func (that *dbPresence) DeleteByID(ctx context.Context, id string) error {
	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, presenceKey(id))
		pipe.ZRem(ctx, activePresenceKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete presence: %w", err)
	}

	return nil
}
