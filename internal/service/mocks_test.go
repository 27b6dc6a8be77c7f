package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type mockGameRepo struct {
	mock.Mock
}

func (that *mockGameRepo) CreateOrUpdate(ctx context.Context, game *entity.LiveGame) error {
	return that.Called(ctx, game).Error(0)
}

func (that *mockGameRepo) GetByID(ctx context.Context, id string) (*entity.LiveGame, error) {
	args := that.Called(ctx, id)
	game, _ := args.Get(0).(*entity.LiveGame)
	return game, args.Error(1)
}

// Update runs mutate against the game returned by GetByID, as the redis repository would.
func (that *mockGameRepo) Update(ctx context.Context, id string, mutate func(game *entity.LiveGame) error) (*entity.LiveGame, error) {
	args := that.Called(ctx, id)
	game, _ := args.Get(0).(*entity.LiveGame)
	if err := args.Error(1); err != nil {
		return nil, err
	}

	if err := mutate(game); err != nil {
		return nil, err
	}

	game.Version++
	return game, nil
}

func (that *mockGameRepo) DeleteByID(ctx context.Context, id string) error {
	return that.Called(ctx, id).Error(0)
}

func (that *mockGameRepo) Subscribe(ctx context.Context, id string) (*entity.Subscription, error) {
	args := that.Called(ctx, id)
	sub, _ := args.Get(0).(*entity.Subscription)
	return sub, args.Error(1)
}

func (that *mockGameRepo) AddSpectator(ctx context.Context, id, identity string) error {
	return that.Called(ctx, id, identity).Error(0)
}

func (that *mockGameRepo) RemoveSpectator(ctx context.Context, id, identity string) error {
	return that.Called(ctx, id, identity).Error(0)
}

func (that *mockGameRepo) Publish(ctx context.Context, game *entity.LiveGame) error {
	return that.Called(ctx, game).Error(0)
}

type mockPresenceRepo struct {
	mock.Mock
}

func (that *mockPresenceRepo) CreateOrUpdate(ctx context.Context, presence *entity.Presence) error {
	return that.Called(ctx, presence).Error(0)
}

func (that *mockPresenceRepo) GetByID(ctx context.Context, id string) (*entity.Presence, error) {
	args := that.Called(ctx, id)
	presence, _ := args.Get(0).(*entity.Presence)
	return presence, args.Error(1)
}

func (that *mockPresenceRepo) ListActive(ctx context.Context, since time.Time) ([]*entity.Presence, error) {
	args := that.Called(ctx, since)
	presences, _ := args.Get(0).([]*entity.Presence)
	return presences, args.Error(1)
}

func (that *mockPresenceRepo) DeleteByID(ctx context.Context, id string) error {
	return that.Called(ctx, id).Error(0)
}

type mockChallengeRepo struct {
	mock.Mock
}

func (that *mockChallengeRepo) CreateOrUpdate(ctx context.Context, challenge *entity.Challenge) error {
	return that.Called(ctx, challenge).Error(0)
}

func (that *mockChallengeRepo) GetByID(ctx context.Context, id string) (*entity.Challenge, error) {
	args := that.Called(ctx, id)
	challenge, _ := args.Get(0).(*entity.Challenge)
	return challenge, args.Error(1)
}

func (that *mockChallengeRepo) ListByIdentity(ctx context.Context, identity string) ([]*entity.Challenge, error) {
	args := that.Called(ctx, identity)
	challenges, _ := args.Get(0).([]*entity.Challenge)
	return challenges, args.Error(1)
}

func (that *mockChallengeRepo) DeleteByID(ctx context.Context, id string) error {
	return that.Called(ctx, id).Error(0)
}

type mockMatchRepo struct {
	mock.Mock
}

func (that *mockMatchRepo) Add(ctx context.Context, match *entity.MatchRecord) error {
	return that.Called(ctx, match).Error(0)
}

func (that *mockMatchRepo) ListByIdentity(ctx context.Context, identity string, limit int) ([]*entity.MatchRecord, error) {
	args := that.Called(ctx, identity, limit)
	matches, _ := args.Get(0).([]*entity.MatchRecord)
	return matches, args.Error(1)
}

func (that *mockMatchRepo) DeleteByIdentity(ctx context.Context, identity string) error {
	return that.Called(ctx, identity).Error(0)
}

type mockStatsRepo struct {
	mock.Mock
}

func (that *mockStatsRepo) Increment(ctx context.Context, identity string, result entity.MatchResult) error {
	return that.Called(ctx, identity, result).Error(0)
}

func (that *mockStatsRepo) GetByIdentity(ctx context.Context, identity string) (*entity.Stats, error) {
	args := that.Called(ctx, identity)
	stats, _ := args.Get(0).(*entity.Stats)
	return stats, args.Error(1)
}

func (that *mockStatsRepo) DeleteByIdentity(ctx context.Context, identity string) error {
	return that.Called(ctx, identity).Error(0)
}
