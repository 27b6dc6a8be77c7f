package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const challengeRetention = 24 * time.Hour

type ChallengeRepository interface {
	CreateOrUpdate(ctx context.Context, challenge *entity.Challenge) error
	GetByID(ctx context.Context, id string) (*entity.Challenge, error)
	ListByIdentity(ctx context.Context, identity string) ([]*entity.Challenge, error)
	DeleteByID(ctx context.Context, id string) error
}

type dbChallenge struct {
	client *redis.Client
}

func NewChallengeRepository(client *redis.Client) ChallengeRepository {
	return &dbChallenge{
		client: client,
	}
}

func challengeKey(id string) string {
	return "challenge:" + id
}

func identityChallengesKey(identity string) string {
	return "challenges:" + identity
}

func (that *dbChallenge) CreateOrUpdate(ctx context.Context, challenge *entity.Challenge) error {
	challengeJSON, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, challengeKey(challenge.ID), challengeJSON, challengeRetention)
		pipe.SAdd(ctx, identityChallengesKey(challenge.ChallengerID), challenge.ID)
		pipe.SAdd(ctx, identityChallengesKey(challenge.ChallengedID), challenge.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set challenge: %w", err)
	}

	return nil
}

func (that *dbChallenge) GetByID(ctx context.Context, id string) (*entity.Challenge, error) {
	response, err := that.client.Get(ctx, challengeKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrChallengeNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get challenge by ID: %w", err)
	}

	var challenge entity.Challenge
	if err = json.Unmarshal(response, &challenge); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}

	return &challenge, nil
}

// ListByIdentity returns challenges sent or received by identity, oldest first.
// Expired entries are pruned from the index as they are found.
func (that *dbChallenge) ListByIdentity(ctx context.Context, identity string) ([]*entity.Challenge, error) {
	indexKey := identityChallengesKey(identity)

	ids, err := that.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}

	challenges := make([]*entity.Challenge, 0, len(ids))
	for _, id := range ids {
		challenge, err := that.GetByID(ctx, id)
		if errors.Is(err, apperror.ErrChallengeNotFound) {
			_ = that.client.SRem(ctx, indexKey, id).Err()
			continue
		}

		if err != nil {
			return nil, err
		}

		challenges = append(challenges, challenge)
	}

	sort.Slice(challenges, func(i, j int) bool {
		return challenges[i].CreatedAt.Before(challenges[j].CreatedAt)
	})

	return challenges, nil
}

func (that *dbChallenge) DeleteByID(ctx context.Context, id string) error {
	challenge, err := that.GetByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, challengeKey(id))
		pipe.SRem(ctx, identityChallengesKey(challenge.ChallengerID), id)
		pipe.SRem(ctx, identityChallengesKey(challenge.ChallengedID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}

	return nil
}
