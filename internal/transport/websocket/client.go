package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-arena/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

type Client struct {
	conn     *websocket.Conn
	identity string
	logger   *slog.Logger

	send      chan Response
	done      chan struct{}
	closeOnce sync.Once

	// owned by the read pump
	controller *session.Controller
}

func newClient(conn *websocket.Conn, identity string, logger *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		identity: identity,
		logger:   logger.With("identity", identity),
		send:     make(chan Response, sendBuffer),
		done:     make(chan struct{}),
	}
}

// push queues msg for the write pump. A client that can't keep up loses the frame.
func (that *Client) push(msg Response) {
	select {
	case <-that.done:
	case that.send <- msg:
	default:
		that.logger.Warn("send buffer full, dropping frame", "action", msg.Action)
	}
}

func (that *Client) readPump(ctx context.Context, dispatch func(ctx context.Context, client *Client, msg Message)) {
	defer func() {
		that.leaveGame()
		_ = that.conn.Close()
	}()

	that.conn.SetReadLimit(maxMessageSize)
	_ = that.conn.SetReadDeadline(time.Now().Add(pongWait))
	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := that.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				that.logger.Warn("read failed", "error", err)
			}
			return
		}

		dispatch(ctx, that, msg)
	}
}

func (that *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case <-that.done:
			_ = that.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		case msg := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := that.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// attach makes controller the client's current game and forwards its updates until it closes.
func (that *Client) attach(controller *session.Controller) {
	that.leaveGame()
	that.controller = controller

	go func(updates <-chan session.Snapshot) {
		for snapshot := range updates {
			that.push(newResponse(actionGameState, &ResponsePayload{Game: &snapshot}))
		}
	}(controller.Updates())
}

func (that *Client) leaveGame() {
	if that.controller == nil {
		return
	}

	if err := that.controller.Close(); err != nil {
		that.logger.Warn("failed to close session", "error", err)
	}
	that.controller = nil
}

func (that *Client) close() {
	that.closeOnce.Do(func() {
		close(that.done)
	})
}
