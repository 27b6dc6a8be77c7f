package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/testing/suite"
)

func newGame(t *testing.T) *entity.LiveGame {
	t.Helper()

	game, err := entity.NewLiveGame("123", "alice", "bob", 3)
	require.NoError(t, err)

	return game
}

func TestGameRepository_GetByID(t *testing.T) {
	t.Run("GetByID_Success", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// Given: a stored game
		game := newGame(t)
		require.NoError(t, gameRepo.CreateOrUpdate(ctx, game))

		// When: GetByID is called with existing ID
		retrievedGame, err := gameRepo.GetByID(ctx, game.ID)

		// Then: the retrieved game should match the saved game
		require.NoError(t, err)
		assert.Equal(t, game.ID, retrievedGame.ID)
		assert.Equal(t, game.PlayerX, retrievedGame.PlayerX)
		assert.Equal(t, game.Board, retrievedGame.Board)
		assert.Equal(t, entity.OutcomeInProgress, retrievedGame.Outcome)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// When: GetByID is called with non-existent ID
		_, err := gameRepo.GetByID(ctx, "9999999")

		// Then: an ErrGameNotFound error should be returned
		require.ErrorIs(t, err, apperror.ErrGameNotFound)
	})

	t.Run("GetByID_Malformed", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// Given: a record that is not a valid game
		require.NoError(t, st.Storage.Set(ctx, "game:bad", `{"id":"bad","board":["X"]}`, 0).Err())

		// When: it is read
		_, err := gameRepo.GetByID(ctx, "bad")

		// Then: ErrMalformedRecord is returned
		require.ErrorIs(t, err, entity.ErrMalformedRecord)
	})
}

func TestGameRepository_Update(t *testing.T) {
	t.Run("Bumps the version and notifies subscribers", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)
		game := newGame(t)
		require.NoError(t, gameRepo.CreateOrUpdate(ctx, game))

		sub, err := gameRepo.Subscribe(ctx, game.ID)
		require.NoError(t, err)
		defer func() { _ = sub.Release() }()

		// When: a move is applied
		updated, err := gameRepo.Update(ctx, game.ID, func(game *entity.LiveGame) error {
			board := game.Board.Clone()
			board[4] = entity.PlayerX
			game.Apply(entity.GamePatch{
				Board:   board,
				Turn:    entity.PlayerO,
				Outcome: entity.OutcomeInProgress,
				Move:    &entity.Move{Position: 4, Mark: entity.PlayerX},
			})
			return nil
		})

		// Then: the stored record moves to version 1 and subscribers see it
		require.NoError(t, err)
		assert.Equal(t, int64(1), updated.Version)

		select {
		case received := <-sub.Updates():
			assert.Equal(t, int64(1), received.Version)
			assert.Equal(t, entity.PlayerX, received.Board[4])
			assert.Equal(t, entity.PlayerO, received.Turn)
		case <-time.After(5 * time.Second):
			t.Fatal("no update received")
		}

		stored, err := gameRepo.GetByID(ctx, game.ID)
		require.NoError(t, err)
		assert.Len(t, stored.Moves, 1)
	})

	t.Run("Mutation errors abort the update", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)
		game := newGame(t)
		require.NoError(t, gameRepo.CreateOrUpdate(ctx, game))

		_, err := gameRepo.Update(ctx, game.ID, func(*entity.LiveGame) error {
			return apperror.ErrNotYourTurn
		})

		require.ErrorIs(t, err, apperror.ErrNotYourTurn)

		stored, err := gameRepo.GetByID(ctx, game.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stored.Version)
	})

	t.Run("Missing games are reported", func(t *testing.T) {
		ctx, st := suite.New(t)

		_, err := NewGameRepository(st.Storage).Update(ctx, "nope", func(*entity.LiveGame) error { return nil })

		require.ErrorIs(t, err, apperror.ErrGameNotFound)
	})
}

func TestGameRepository_Spectators(t *testing.T) {
	ctx, st := suite.New(t)

	gameRepo := NewGameRepository(st.Storage)
	game := newGame(t)
	require.NoError(t, gameRepo.CreateOrUpdate(ctx, game))

	// When: two spectators join and one leaves
	require.NoError(t, gameRepo.AddSpectator(ctx, game.ID, "carol"))
	require.NoError(t, gameRepo.AddSpectator(ctx, game.ID, "dave"))
	require.NoError(t, gameRepo.RemoveSpectator(ctx, game.ID, "dave"))

	// Then: the record reflects the remaining spectator
	stored, err := gameRepo.GetByID(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, stored.Spectators)
	assert.Equal(t, 1, stored.SpectatorCount)
}

func TestGameRepository_DeleteByID(t *testing.T) {
	ctx, st := suite.New(t)

	gameRepo := NewGameRepository(st.Storage)

	// Given: a stored game
	game := newGame(t)
	require.NoError(t, gameRepo.CreateOrUpdate(ctx, game))

	// When: DeleteByID is called
	require.NoError(t, gameRepo.DeleteByID(ctx, game.ID))

	// Then: the game is gone
	_, err := gameRepo.GetByID(ctx, game.ID)
	require.ErrorIs(t, err, apperror.ErrGameNotFound)
}
