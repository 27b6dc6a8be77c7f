package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// DefaultActiveWindow is how long after its last heartbeat an identity still shows in the lobby.
const DefaultActiveWindow = 5 * time.Minute

type LobbyUseCase interface {
	GetOrCreatePlayer(ctx context.Context, playerID, username string) (*entity.Presence, error)
	ActiveUsers(ctx context.Context, identity string) ([]*entity.Presence, error)

	Challenge(ctx context.Context, challengerID, challengedID string, size int) (*entity.Challenge, error)
	PendingChallenges(ctx context.Context, identity string) ([]*entity.Challenge, error)
	RespondToChallenge(ctx context.Context, identity, challengeID string, accept bool) (*entity.Challenge, *entity.LiveGame, error)
	CancelChallenge(ctx context.Context, identity, challengeID string) (*entity.Challenge, error)
}

type presenceService interface {
	Heartbeat(ctx context.Context, identity, username string) (*entity.Presence, error)
	GetPresence(ctx context.Context, identity string) (*entity.Presence, error)
	SetPresence(ctx context.Context, identity string, status entity.PresenceStatus, gameID string) error
	ListActive(ctx context.Context, window time.Duration) ([]*entity.Presence, error)
}

type challengeService interface {
	CreateChallenge(ctx context.Context, challengerID, challengedID string, size int) (*entity.Challenge, error)
	GetChallenge(ctx context.Context, id string) (*entity.Challenge, error)
	ListPending(ctx context.Context, identity string) ([]*entity.Challenge, error)
	UpdateChallenge(ctx context.Context, challenge *entity.Challenge) error
}

type gameCreator interface {
	CreateGame(ctx context.Context, playerX, playerO string, size int) (*entity.LiveGame, error)
}

type lobbyUseCase struct {
	logger           *slog.Logger
	activeWindow     time.Duration
	presenceService  presenceService
	challengeService challengeService
	gameService      gameCreator
}

func NewLobbyUseCase(
	logger *slog.Logger,
	activeWindow time.Duration,
	presenceService presenceService,
	challengeService challengeService,
	gameService gameCreator,
) LobbyUseCase {
	if activeWindow <= 0 {
		activeWindow = DefaultActiveWindow
	}

	return &lobbyUseCase{
		logger:           logger,
		activeWindow:     activeWindow,
		presenceService:  presenceService,
		challengeService: challengeService,
		gameService:      gameService,
	}
}

// GetOrCreatePlayer refreshes the heartbeat of playerID, minting a new identity when it is empty.
func (that *lobbyUseCase) GetOrCreatePlayer(ctx context.Context, playerID, username string) (*entity.Presence, error) {
	if playerID == "" {
		playerID = uuid.NewString()
	}

	presence, err := that.presenceService.Heartbeat(ctx, playerID, username)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh player: %w", err)
	}

	return presence, nil
}

// ActiveUsers lists everyone recently seen except identity itself.
func (that *lobbyUseCase) ActiveUsers(ctx context.Context, identity string) ([]*entity.Presence, error) {
	presences, err := that.presenceService.ListActive(ctx, that.activeWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}

	others := make([]*entity.Presence, 0, len(presences))
	for _, presence := range presences {
		if presence.ID != identity {
			others = append(others, presence)
		}
	}

	return others, nil
}

func (that *lobbyUseCase) Challenge(ctx context.Context, challengerID, challengedID string, size int) (*entity.Challenge, error) {
	challenged, err := that.presenceService.GetPresence(ctx, challengedID)
	if err != nil {
		return nil, fmt.Errorf("failed to find challenged player: %w", err)
	}

	if time.Since(challenged.LastSeen) > that.activeWindow {
		return nil, fmt.Errorf("%w: %s is not active", apperror.ErrPlayerNotFound, challengedID)
	}

	challenge, err := that.challengeService.CreateChallenge(ctx, challengerID, challengedID, size)
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	return challenge, nil
}

func (that *lobbyUseCase) PendingChallenges(ctx context.Context, identity string) ([]*entity.Challenge, error) {
	challenges, err := that.challengeService.ListPending(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}

	return challenges, nil
}

// RespondToChallenge lets the challenged identity accept or decline. Accepting starts a live
// game with the challenger as X and moves both players in-game.
func (that *lobbyUseCase) RespondToChallenge(ctx context.Context, identity, challengeID string, accept bool) (*entity.Challenge, *entity.LiveGame, error) {
	log := that.logger.With("method", "RespondToChallenge", "challengeID", challengeID)

	challenge, err := that.pendingChallenge(ctx, challengeID)
	if err != nil {
		return nil, nil, err
	}

	if challenge.ChallengedID != identity {
		return nil, nil, apperror.ErrNotParticipant
	}

	if !accept {
		challenge.Status = entity.ChallengeDeclined
		if err = that.challengeService.UpdateChallenge(ctx, challenge); err != nil {
			return nil, nil, fmt.Errorf("failed to decline challenge: %w", err)
		}

		return challenge, nil, nil
	}

	game, err := that.gameService.CreateGame(ctx, challenge.ChallengerID, challenge.ChallengedID, challenge.GridSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start game: %w", err)
	}

	challenge.Status = entity.ChallengeAccepted
	challenge.GameID = game.ID
	if err = that.challengeService.UpdateChallenge(ctx, challenge); err != nil {
		return nil, nil, fmt.Errorf("failed to accept challenge: %w", err)
	}

	for _, player := range []string{challenge.ChallengerID, challenge.ChallengedID} {
		if err = that.presenceService.SetPresence(ctx, player, entity.StatusInGame, game.ID); err != nil {
			log.Error("failed to move player in game", "player", player, "error", err)
		}
	}

	log.Info("challenge accepted", "gameID", game.ID)

	return challenge, game, nil
}

func (that *lobbyUseCase) CancelChallenge(ctx context.Context, identity, challengeID string) (*entity.Challenge, error) {
	challenge, err := that.pendingChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	if challenge.ChallengerID != identity {
		return nil, apperror.ErrNotParticipant
	}

	challenge.Status = entity.ChallengeCancelled
	if err = that.challengeService.UpdateChallenge(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to cancel challenge: %w", err)
	}

	return challenge, nil
}

func (that *lobbyUseCase) pendingChallenge(ctx context.Context, challengeID string) (*entity.Challenge, error) {
	challenge, err := that.challengeService.GetChallenge(ctx, challengeID)
	if errors.Is(err, apperror.ErrChallengeNotFound) {
		return nil, apperror.ErrChallengeNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	if !challenge.IsPending() {
		return nil, apperror.ErrChallengeClosed
	}

	return challenge, nil
}
