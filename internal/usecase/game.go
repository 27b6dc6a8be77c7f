package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/session"
)

type GameUseCase interface {
	GetGame(ctx context.Context, gameID string) (*entity.LiveGame, error)
	JoinGame(ctx context.Context, identity, gameID string, spectate bool) (*session.Controller, error)
}

type liveStore interface {
	ReadRecord(ctx context.Context, gameID string) (*entity.LiveGame, error)
	WriteRecord(ctx context.Context, gameID string, patch entity.GamePatch) error
	Subscribe(ctx context.Context, gameID string) (*entity.Subscription, error)
	SetPresence(ctx context.Context, identity string, status entity.PresenceStatus, gameID string) error
}

type matchRecorder interface {
	RecordMatch(ctx context.Context, match *entity.MatchRecord) error
}

type gameUseCase struct {
	logger   *slog.Logger
	store    liveStore
	recorder matchRecorder
}

func NewGameUseCase(logger *slog.Logger, store liveStore, recorder matchRecorder) GameUseCase {
	return &gameUseCase{
		logger:   logger,
		store:    store,
		recorder: recorder,
	}
}

func (that *gameUseCase) GetGame(ctx context.Context, gameID string) (*entity.LiveGame, error) {
	game, err := that.store.ReadRecord(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// JoinGame opens a live session on gameID. Only the two players may join to play; anyone may
// join as a spectator.
func (that *gameUseCase) JoinGame(ctx context.Context, identity, gameID string, spectate bool) (*session.Controller, error) {
	game, err := that.store.ReadRecord(ctx, gameID)
	if errors.Is(err, apperror.ErrGameNotFound) {
		return nil, apperror.ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	if !spectate && !game.IsPlayer(identity) {
		return nil, apperror.ErrNotParticipant
	}

	controller, err := session.New(session.Options{
		Mode:      session.ModeLive,
		GridSize:  game.Board.Size(),
		Identity:  identity,
		Spectator: spectate,
		GameID:    gameID,
		Store:     that.store,
		Recorder:  that.recorder,
		Logger:    that.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err = controller.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	return controller, nil
}
