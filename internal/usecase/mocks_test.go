package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type mockPresenceService struct {
	mock.Mock
}

func (that *mockPresenceService) Heartbeat(ctx context.Context, identity, username string) (*entity.Presence, error) {
	args := that.Called(ctx, identity, username)
	presence, _ := args.Get(0).(*entity.Presence)
	return presence, args.Error(1)
}

func (that *mockPresenceService) GetPresence(ctx context.Context, identity string) (*entity.Presence, error) {
	args := that.Called(ctx, identity)
	presence, _ := args.Get(0).(*entity.Presence)
	return presence, args.Error(1)
}

func (that *mockPresenceService) SetPresence(ctx context.Context, identity string, status entity.PresenceStatus, gameID string) error {
	return that.Called(ctx, identity, status, gameID).Error(0)
}

func (that *mockPresenceService) ListActive(ctx context.Context, window time.Duration) ([]*entity.Presence, error) {
	args := that.Called(ctx, window)
	presences, _ := args.Get(0).([]*entity.Presence)
	return presences, args.Error(1)
}

type mockChallengeService struct {
	mock.Mock
}

func (that *mockChallengeService) CreateChallenge(ctx context.Context, challengerID, challengedID string, size int) (*entity.Challenge, error) {
	args := that.Called(ctx, challengerID, challengedID, size)
	challenge, _ := args.Get(0).(*entity.Challenge)
	return challenge, args.Error(1)
}

func (that *mockChallengeService) GetChallenge(ctx context.Context, id string) (*entity.Challenge, error) {
	args := that.Called(ctx, id)
	challenge, _ := args.Get(0).(*entity.Challenge)
	return challenge, args.Error(1)
}

func (that *mockChallengeService) ListPending(ctx context.Context, identity string) ([]*entity.Challenge, error) {
	args := that.Called(ctx, identity)
	challenges, _ := args.Get(0).([]*entity.Challenge)
	return challenges, args.Error(1)
}

func (that *mockChallengeService) UpdateChallenge(ctx context.Context, challenge *entity.Challenge) error {
	return that.Called(ctx, challenge).Error(0)
}

type mockGameCreator struct {
	mock.Mock
}

func (that *mockGameCreator) CreateGame(ctx context.Context, playerX, playerO string, size int) (*entity.LiveGame, error) {
	args := that.Called(ctx, playerX, playerO, size)
	game, _ := args.Get(0).(*entity.LiveGame)
	return game, args.Error(1)
}

type mockLiveStore struct {
	mock.Mock
	updates chan *entity.LiveGame
}

func (that *mockLiveStore) ReadRecord(ctx context.Context, gameID string) (*entity.LiveGame, error) {
	args := that.Called(ctx, gameID)
	game, _ := args.Get(0).(*entity.LiveGame)
	return game, args.Error(1)
}

func (that *mockLiveStore) WriteRecord(ctx context.Context, gameID string, patch entity.GamePatch) error {
	return that.Called(ctx, gameID, patch).Error(0)
}

func (that *mockLiveStore) Subscribe(_ context.Context, _ string) (*entity.Subscription, error) {
	return entity.NewSubscription(that.updates, nil), nil
}

func (that *mockLiveStore) SetPresence(ctx context.Context, identity string, status entity.PresenceStatus, gameID string) error {
	return that.Called(ctx, identity, status, gameID).Error(0)
}
