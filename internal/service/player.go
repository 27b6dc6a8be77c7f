package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type PresenceService interface {
	Heartbeat(ctx context.Context, identity, username string) (*entity.Presence, error)
	GetPresence(ctx context.Context, identity string) (*entity.Presence, error)
	SetPresence(ctx context.Context, identity string, status entity.PresenceStatus, gameID string) error
	ListActive(ctx context.Context, window time.Duration) ([]*entity.Presence, error)
}

type presenceRepo interface {
	CreateOrUpdate(ctx context.Context, presence *entity.Presence) error
	GetByID(ctx context.Context, id string) (*entity.Presence, error)
	ListActive(ctx context.Context, since time.Time) ([]*entity.Presence, error)
	DeleteByID(ctx context.Context, id string) error
}

type spectatorRepo interface {
	GetByID(ctx context.Context, id string) (*entity.LiveGame, error)
	AddSpectator(ctx context.Context, id, identity string) error
	RemoveSpectator(ctx context.Context, id, identity string) error
	Publish(ctx context.Context, game *entity.LiveGame) error
}

type presenceService struct {
	logger        *slog.Logger
	presenceRepo  presenceRepo
	spectatorRepo spectatorRepo
	now           func() time.Time
}

func NewPresenceService(logger *slog.Logger, presenceRepo presenceRepo, spectatorRepo spectatorRepo) PresenceService {
	return &presenceService{
		logger:        logger,
		presenceRepo:  presenceRepo,
		spectatorRepo: spectatorRepo,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (that *presenceService) getOrNew(ctx context.Context, identity string) (*entity.Presence, error) {
	presence, err := that.presenceRepo.GetByID(ctx, identity)
	if errors.Is(err, apperror.ErrPlayerNotFound) {
		return &entity.Presence{ID: identity, Status: entity.StatusOnline}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get presence by id %w", err)
	}

	return presence, nil
}

// Heartbeat marks identity as seen now without touching its game status.
func (that *presenceService) Heartbeat(ctx context.Context, identity, username string) (*entity.Presence, error) {
	presence, err := that.getOrNew(ctx, identity)
	if err != nil {
		return nil, err
	}

	if username != "" {
		presence.Username = username
	}

	if presence.Status == entity.StatusOffline || presence.Status == entity.StatusIdle {
		presence.Status = entity.StatusOnline
	}

	presence.LastSeen = that.now()

	if err = that.presenceRepo.CreateOrUpdate(ctx, presence); err != nil {
		return nil, fmt.Errorf("create presence %w", err)
	}

	return presence, nil
}

func (that *presenceService) GetPresence(ctx context.Context, identity string) (*entity.Presence, error) {
	presence, err := that.presenceRepo.GetByID(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("get presence by id %w", err)
	}

	return presence, nil
}

// SetPresence moves identity to status. Spectators are added to or removed from the game's
// spectator set, and the game's subscribers are told about the new count.
func (that *presenceService) SetPresence(ctx context.Context, identity string, status entity.PresenceStatus, gameID string) error {
	presence, err := that.getOrNew(ctx, identity)
	if err != nil {
		return err
	}

	previousGame := ""
	if presence.Status == entity.StatusSpectating {
		previousGame = presence.CurrentGameID
	}

	if previousGame != "" && (status != entity.StatusSpectating || previousGame != gameID) {
		if err = that.spectatorRepo.RemoveSpectator(ctx, previousGame, identity); err != nil {
			return fmt.Errorf("leave spectators %w", err)
		}
		that.announceSpectators(ctx, previousGame)
	}

	if status == entity.StatusOffline {
		if err = that.presenceRepo.DeleteByID(ctx, identity); err != nil {
			return fmt.Errorf("delete presence %w", err)
		}
		return nil
	}

	if status == entity.StatusSpectating && gameID != previousGame {
		if err = that.spectatorRepo.AddSpectator(ctx, gameID, identity); err != nil {
			return fmt.Errorf("join spectators %w", err)
		}
		that.announceSpectators(ctx, gameID)
	}

	presence.Status = status
	presence.CurrentGameID = gameID
	presence.LastSeen = that.now()

	if err = that.presenceRepo.CreateOrUpdate(ctx, presence); err != nil {
		return fmt.Errorf("update presence %w", err)
	}

	return nil
}

// announceSpectators republishes the record so sessions pick up the spectator count.
func (that *presenceService) announceSpectators(ctx context.Context, gameID string) {
	log := that.logger.With("method", "announceSpectators", "gameID", gameID)

	game, err := that.spectatorRepo.GetByID(ctx, gameID)
	if err != nil {
		log.Debug("game is gone, nothing to announce", "error", err)
		return
	}

	if err = that.spectatorRepo.Publish(ctx, game); err != nil {
		log.Error("failed to publish spectator change", "error", err)
	}
}

// ListActive returns identities seen within window that are not offline.
func (that *presenceService) ListActive(ctx context.Context, window time.Duration) ([]*entity.Presence, error) {
	presences, err := that.presenceRepo.ListActive(ctx, that.now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("list active presence %w", err)
	}

	active := make([]*entity.Presence, 0, len(presences))
	for _, presence := range presences {
		if presence.Status != entity.StatusOffline {
			active = append(active, presence)
		}
	}

	return active, nil
}
