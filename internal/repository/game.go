package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	maxUpdateRetries    = 5
	subscriptionBuffer  = 16
	gameRecordRetention = 24 * time.Hour
)

var ErrUpdateConflict = errors.New("game record changed concurrently")

type GameRepository interface {
	CreateOrUpdate(ctx context.Context, game *entity.LiveGame) error
	GetByID(ctx context.Context, id string) (*entity.LiveGame, error)
	Update(ctx context.Context, id string, mutate func(game *entity.LiveGame) error) (*entity.LiveGame, error)
	DeleteByID(ctx context.Context, id string) error
	Subscribe(ctx context.Context, id string) (*entity.Subscription, error)
	Publish(ctx context.Context, game *entity.LiveGame) error
	AddSpectator(ctx context.Context, id, identity string) error
	RemoveSpectator(ctx context.Context, id, identity string) error
}

type dbGame struct {
	client *redis.Client
}

func NewGameRepository(client *redis.Client) GameRepository {
	return &dbGame{
		client: client,
	}
}

func gameKey(id string) string {
	return "game:" + id
}

func gameChangesKey(id string) string {
	return "game:" + id + ":changes"
}

func gameSpectatorsKey(id string) string {
	return "game:" + id + ":spectators"
}

func (that *dbGame) CreateOrUpdate(ctx context.Context, game *entity.LiveGame) error {
	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	err = that.client.Set(ctx, gameKey(game.ID), gameJSON, gameRecordRetention).Err()
	if err != nil {
		return fmt.Errorf("failed to set game: %w", err)
	}

	return nil
}

func (that *dbGame) GetByID(ctx context.Context, id string) (*entity.LiveGame, error) {
	response, err := that.client.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	game, err := entity.ParseLiveGame(response)
	if err != nil {
		return nil, err
	}

	if err = that.fillSpectators(ctx, game); err != nil {
		return nil, err
	}

	return game, nil
}

func (that *dbGame) fillSpectators(ctx context.Context, game *entity.LiveGame) error {
	spectators, err := that.client.SMembers(ctx, gameSpectatorsKey(game.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to get spectators: %w", err)
	}

	game.Spectators = spectators
	game.SpectatorCount = len(spectators)

	return nil
}

// Update applies mutate under an optimistic lock, bumps the version and notifies subscribers.
func (that *dbGame) Update(ctx context.Context, id string, mutate func(game *entity.LiveGame) error) (*entity.LiveGame, error) {
	key := gameKey(id)

	var updated *entity.LiveGame

	txf := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrGameNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to get game by id: %w", err)
		}

		game, err := entity.ParseLiveGame(response)
		if err != nil {
			return err
		}

		if err = mutate(game); err != nil {
			return err
		}

		game.Version++
		game.UpdatedAt = time.Now().UTC()

		if err = that.fillSpectators(ctx, game); err != nil {
			return err
		}

		gameJSON, err := json.Marshal(game)
		if err != nil {
			return fmt.Errorf("could not marshal game: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, gameJSON, gameRecordRetention)
			pipe.Publish(ctx, gameChangesKey(id), gameJSON)
			return nil
		})
		if err != nil {
			return err
		}

		updated = game
		return nil
	}

	for range maxUpdateRetries {
		err := that.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return nil, err
		}

		return updated, nil
	}

	return nil, ErrUpdateConflict
}

func (that *dbGame) DeleteByID(ctx context.Context, id string) error {
	err := that.client.Del(ctx, gameKey(id), gameSpectatorsKey(id)).Err()
	if err != nil {
		return fmt.Errorf("failed to delete game by ID: %w", err)
	}

	return nil
}

// Subscribe streams every published version of the game. Payloads that don't parse are skipped.
func (that *dbGame) Subscribe(ctx context.Context, id string) (*entity.Subscription, error) {
	pubsub := that.client.Subscribe(ctx, gameChangesKey(id))

	// wait for the confirmation so no publish is lost after we return
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to game changes: %w", err)
	}

	updates := make(chan *entity.LiveGame, subscriptionBuffer)
	done := make(chan struct{})

	go func() {
		defer close(updates)

		for msg := range pubsub.Channel() {
			game, err := entity.ParseLiveGame([]byte(msg.Payload))
			if err != nil {
				continue
			}

			select {
			case updates <- game:
			case <-done:
				return
			}
		}
	}()

	release := func() error {
		close(done)
		return pubsub.Close()
	}

	return entity.NewSubscription(updates, release), nil
}

func (that *dbGame) Publish(ctx context.Context, game *entity.LiveGame) error {
	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	if err = that.client.Publish(ctx, gameChangesKey(game.ID), gameJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish game: %w", err)
	}

	return nil
}

func (that *dbGame) AddSpectator(ctx context.Context, id, identity string) error {
	key := gameSpectatorsKey(id)

	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, identity)
		pipe.Expire(ctx, key, gameRecordRetention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add spectator: %w", err)
	}

	return nil
}

func (that *dbGame) RemoveSpectator(ctx context.Context, id, identity string) error {
	if err := that.client.SRem(ctx, gameSpectatorsKey(id), identity).Err(); err != nil {
		return fmt.Errorf("failed to remove spectator: %w", err)
	}

	return nil
}
