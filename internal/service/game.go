package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type GameService interface {
	CreateGame(ctx context.Context, playerX, playerO string, size int) (*entity.LiveGame, error)
	GetGameByID(ctx context.Context, id string) (*entity.LiveGame, error)
	DeleteGame(ctx context.Context, gameID string) error

	ReadRecord(ctx context.Context, gameID string) (*entity.LiveGame, error)
	WriteRecord(ctx context.Context, gameID string, patch entity.GamePatch) error
	Subscribe(ctx context.Context, gameID string) (*entity.Subscription, error)
}

type gameRepo interface {
	CreateOrUpdate(ctx context.Context, game *entity.LiveGame) error
	GetByID(ctx context.Context, id string) (*entity.LiveGame, error)
	Update(ctx context.Context, id string, mutate func(game *entity.LiveGame) error) (*entity.LiveGame, error)
	DeleteByID(ctx context.Context, id string) error
	Subscribe(ctx context.Context, id string) (*entity.Subscription, error)
}

type gameService struct {
	gameRepo gameRepo
}

func NewGameService(gameRepo gameRepo) GameService {
	return &gameService{
		gameRepo: gameRepo,
	}
}

func (that *gameService) CreateGame(ctx context.Context, playerX, playerO string, size int) (*entity.LiveGame, error) {
	game, err := entity.NewLiveGame(uuid.NewString(), playerX, playerO, size)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	if err = that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game from storage: %w", err)
	}

	return game, nil
}

func (that *gameService) GetGameByID(ctx context.Context, id string) (*entity.LiveGame, error) {
	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve game from storage: %w", err)
	}

	return game, nil
}

func (that *gameService) DeleteGame(ctx context.Context, gameID string) error {
	if err := that.gameRepo.DeleteByID(ctx, gameID); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	return nil
}

func (that *gameService) ReadRecord(ctx context.Context, gameID string) (*entity.LiveGame, error) {
	return that.GetGameByID(ctx, gameID)
}

// WriteRecord merges a move pushed by a live session. The record refuses moves for finished
// games and moves made out of turn, so a racing writer can't overwrite the other player.
func (that *gameService) WriteRecord(ctx context.Context, gameID string, patch entity.GamePatch) error {
	if err := patch.Board.Validate(); err != nil {
		return fmt.Errorf("invalid patch: %w", err)
	}

	_, err := that.gameRepo.Update(ctx, gameID, func(game *entity.LiveGame) error {
		if game.IsFinished() {
			return apperror.ErrGameFinished
		}

		if len(patch.Board) != len(game.Board) {
			return fmt.Errorf("%w: board size changed", entity.ErrInvalidBoard)
		}

		if err := checkPatch(game, patch); err != nil {
			return err
		}

		game.Apply(patch)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write game record: %w", err)
	}

	return nil
}

// checkPatch accepts a patch only when its board is the stored board plus its own move.
func checkPatch(game *entity.LiveGame, patch entity.GamePatch) error {
	move := patch.Move
	if move == nil {
		return fmt.Errorf("%w: patch carries no move", entity.ErrInvalidBoard)
	}

	if move.Mark != game.Turn {
		return apperror.ErrNotYourTurn
	}

	if move.Position < 0 || move.Position >= len(game.Board) {
		return apperror.ErrInvalidCell
	}

	if game.Board[move.Position] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	expected := game.Board.Clone()
	expected[move.Position] = move.Mark
	if !expected.Equal(patch.Board) {
		return fmt.Errorf("%w: board differs from the stored one by more than the move", entity.ErrInvalidBoard)
	}

	if patch.Turn != move.Mark.Other() {
		return fmt.Errorf("%w: %w", entity.ErrInvalidBoard, entity.ErrInvalidTurn)
	}

	return nil
}

func (that *gameService) Subscribe(ctx context.Context, gameID string) (*entity.Subscription, error) {
	sub, err := that.gameRepo.Subscribe(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to game: %w", err)
	}

	return sub, nil
}
