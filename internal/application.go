package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-arena/internal/service"
	"github.com/rocketscienceinc/tictactoe-arena/internal/transport/rest"
	"github.com/rocketscienceinc/tictactoe-arena/internal/transport/websocket"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 10 * time.Minute
	shutdownTimeout   = 10 * time.Second
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the server until SIGINT or SIGTERM.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if conf.Redis.Host == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString, conf.Redis.Password, conf.Redis.DB)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	router := NewRouter(logger, conf, redisStorage)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", conf.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := srv.ListenAndServe(); httpErr != nil && !errors.Is(httpErr, http.ErrServerClosed) {
			httpErrCh <- httpErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}

	return nil
}

// NewRouter wires repositories, services and use cases onto one router carrying REST and /ws.
func NewRouter(logger *slog.Logger, conf *config.Config, redisStorage *storage.RedisStorage) *httprouter.Router {
	client := redisStorage.Connection

	gameRepo := repository.NewGameRepository(client)
	presenceRepo := repository.NewPresenceRepository(client)
	challengeRepo := repository.NewChallengeRepository(client)
	matchRepo := repository.NewMatchRepository(client)
	statsRepo := repository.NewStatsRepository(client)

	gameService := service.NewGameService(gameRepo)
	presenceService := service.NewPresenceService(logger, presenceRepo, gameRepo)
	challengeService := service.NewChallengeService(challengeRepo)
	statsService := service.NewStatsService(matchRepo, statsRepo)
	gameStore := service.NewGameStore(gameService, presenceService)

	lobbyUseCase := usecase.NewLobbyUseCase(logger, conf.Presence.ActiveWindow, presenceService, challengeService, gameService)
	gameUseCase := usecase.NewGameUseCase(logger, gameStore, statsService)

	router := httprouter.New()
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		logger.Error("handler panic", "path", r.URL.Path, "panic", i)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}

	rest.NewHandlers(logger, gameUseCase, lobbyUseCase, statsService).Register(router)
	websocket.NewServer(logger, lobbyUseCase, gameUseCase, statsService).Register(router)

	return router
}
