package rest

import (
	"context"
	"log/slog"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type gameReader interface {
	GetGame(ctx context.Context, gameID string) (*entity.LiveGame, error)
}

type lobbyReader interface {
	ActiveUsers(ctx context.Context, identity string) ([]*entity.Presence, error)
}

type statsService interface {
	GetStats(ctx context.Context, identity string) (*entity.Stats, error)
	History(ctx context.Context, identity string, limit int) ([]*entity.MatchRecord, error)
	ResetStats(ctx context.Context, identity string) error
}

type Handlers struct {
	logger    *slog.Logger
	games     gameReader
	lobby     lobbyReader
	stats     statsService
	startedAt time.Time
}

func NewHandlers(logger *slog.Logger, games gameReader, lobby lobbyReader, stats statsService) *Handlers {
	return &Handlers{
		logger:    logger.With("component", "rest"),
		games:     games,
		lobby:     lobby,
		stats:     stats,
		startedAt: time.Now(),
	}
}

// Register mounts every REST route on router.
func (that *Handlers) Register(router *httprouter.Router) {
	router.GET("/ping", that.Ping)
	router.GET("/healthz", that.Health)

	router.GET("/api/games/:id", that.GetGame)
	router.GET("/api/lobby", that.Lobby)
	router.GET("/api/stats/:identity", that.GetStats)
	router.DELETE("/api/stats/:identity", that.ResetStats)
	router.GET("/api/matches/:identity", that.History)

	router.GET("/games/:id/qr", that.SpectateQR)
}
