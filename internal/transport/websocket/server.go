package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/session"
)

const playerCookieName = "tictactoe_id"

var (
	errUnknownAction = errors.New("unknown action")
	errBadPayload    = errors.New("malformed payload")
)

type lobbyUseCase interface {
	GetOrCreatePlayer(ctx context.Context, playerID, username string) (*entity.Presence, error)
	ActiveUsers(ctx context.Context, identity string) ([]*entity.Presence, error)
	Challenge(ctx context.Context, challengerID, challengedID string, size int) (*entity.Challenge, error)
	PendingChallenges(ctx context.Context, identity string) ([]*entity.Challenge, error)
	RespondToChallenge(ctx context.Context, identity, challengeID string, accept bool) (*entity.Challenge, *entity.LiveGame, error)
	CancelChallenge(ctx context.Context, identity, challengeID string) (*entity.Challenge, error)
}

type gameUseCase interface {
	JoinGame(ctx context.Context, identity, gameID string, spectate bool) (*session.Controller, error)
}

type statsService interface {
	GetStats(ctx context.Context, identity string) (*entity.Stats, error)
	History(ctx context.Context, identity string, limit int) ([]*entity.MatchRecord, error)
}

type handlerFunc func(ctx context.Context, client *Client, payload RequestPayload) error

type Server struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	lobby lobbyUseCase
	games gameUseCase
	stats statsService

	mu      sync.Mutex
	clients map[string]map[*Client]struct{}

	handlers map[string]handlerFunc
}

func NewServer(logger *slog.Logger, lobby lobbyUseCase, games gameUseCase, stats statsService) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		lobby:   lobby,
		games:   games,
		stats:   stats,
		clients: make(map[string]map[*Client]struct{}),
	}

	server.handlers = map[string]handlerFunc{
		actionConnect:          server.handleConnect,
		actionLobbyUsers:       server.handleLobbyUsers,
		actionChallengeNew:     server.handleChallengeNew,
		actionChallengeList:    server.handleChallengeList,
		actionChallengeRespond: server.handleChallengeRespond,
		actionChallengeCancel:  server.handleChallengeCancel,
		actionGameJoin:         server.handleGameJoin,
		actionGameTurn:         server.handleGameTurn,
		actionGameLeave:        server.handleGameLeave,
		actionStatsGet:         server.handleStatsGet,
	}

	return server
}

func (that *Server) Register(router *httprouter.Router) {
	router.GET("/ws", that.Serve)
}

// Serve upgrades the request and blocks until the connection is gone.
func (that *Server) Serve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	log := that.logger.With("method", "Serve")

	identity := getOrSetPlayerID(w, r)

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("upgrade failed", "error", err)
		return
	}

	// the request context is cancelled as soon as the handler hijacks the connection
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	client := newClient(conn, identity, that.logger)

	that.register(client)
	defer that.unregister(client)

	log.Info("client connected", "identity", identity)

	go client.writePump()
	client.readPump(ctx, that.dispatch)

	log.Info("client disconnected", "identity", identity)
}

func (that *Server) dispatch(ctx context.Context, client *Client, msg Message) {
	log := that.logger.With("method", "dispatch", "action", msg.Action, "identity", client.identity)

	handler, ok := that.handlers[msg.Action]
	if !ok {
		client.push(errorResponse(errUnknownAction))
		return
	}

	var payload RequestPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			client.push(errorResponse(errBadPayload))
			return
		}
	}

	if err := handler(ctx, client, payload); err != nil {
		log.Debug("action failed", "error", err)
		client.push(errorResponse(err))
	}
}

func (that *Server) register(client *Client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	set, ok := that.clients[client.identity]
	if !ok {
		set = make(map[*Client]struct{})
		that.clients[client.identity] = set
	}
	set[client] = struct{}{}
}

func (that *Server) unregister(client *Client) {
	that.mu.Lock()
	if set, ok := that.clients[client.identity]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(that.clients, client.identity)
		}
	}
	that.mu.Unlock()

	client.close()
}

// notify delivers msg to every open connection of identity.
func (that *Server) notify(identity string, msg Response) {
	that.mu.Lock()
	targets := make([]*Client, 0, len(that.clients[identity]))
	for client := range that.clients[identity] {
		targets = append(targets, client)
	}
	that.mu.Unlock()

	for _, client := range targets {
		client.push(msg)
	}
}

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}
