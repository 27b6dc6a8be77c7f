package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

func TestChallengeService_CreateChallenge(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates a pending challenge", func(t *testing.T) {
		repo := &mockChallengeRepo{}
		repo.On("ListByIdentity", mock.Anything, "alice").Return([]*entity.Challenge{}, nil).Once()
		repo.On("CreateOrUpdate", mock.Anything, mock.AnythingOfType("*entity.Challenge")).Return(nil).Once()

		challenge, err := NewChallengeService(repo).CreateChallenge(ctx, "alice", "bob", 0)

		require.NoError(t, err)
		assert.Equal(t, entity.ChallengePending, challenge.Status)
		assert.Equal(t, entity.DefaultGridSize, challenge.GridSize)
		assert.NotEmpty(t, challenge.ID)
	})

	t.Run("Refuses a second pending challenge between the same pair", func(t *testing.T) {
		// Given: bob already challenged alice
		repo := &mockChallengeRepo{}
		repo.On("ListByIdentity", mock.Anything, "alice").Return([]*entity.Challenge{
			{ID: "c1", ChallengerID: "bob", ChallengedID: "alice", Status: entity.ChallengePending},
		}, nil).Once()

		// When: alice challenges bob
		_, err := NewChallengeService(repo).CreateChallenge(ctx, "alice", "bob", 3)

		// Then: ErrChallengeExists is returned
		require.ErrorIs(t, err, apperror.ErrChallengeExists)
		repo.AssertNotCalled(t, "CreateOrUpdate", mock.Anything, mock.Anything)
	})

	t.Run("Closed challenges do not block a new one", func(t *testing.T) {
		repo := &mockChallengeRepo{}
		repo.On("ListByIdentity", mock.Anything, "alice").Return([]*entity.Challenge{
			{ID: "c1", ChallengerID: "alice", ChallengedID: "bob", Status: entity.ChallengeDeclined},
		}, nil).Once()
		repo.On("CreateOrUpdate", mock.Anything, mock.Anything).Return(nil).Once()

		_, err := NewChallengeService(repo).CreateChallenge(ctx, "alice", "bob", 5)

		require.NoError(t, err)
	})

	t.Run("Refuses self challenges and bad sizes", func(t *testing.T) {
		service := NewChallengeService(&mockChallengeRepo{})

		_, err := service.CreateChallenge(ctx, "alice", "alice", 3)
		require.ErrorIs(t, err, apperror.ErrSelfChallenge)

		_, err = service.CreateChallenge(ctx, "alice", "bob", 8)
		require.ErrorIs(t, err, entity.ErrInvalidGridSize)
	})
}
