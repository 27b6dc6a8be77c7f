package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

const historyLimit = 20

var errMissingCell = errors.New("cell is required")

func (that *Server) handleConnect(ctx context.Context, client *Client, payload RequestPayload) error {
	player, err := that.lobby.GetOrCreatePlayer(ctx, client.identity, payload.Username)
	if err != nil {
		return fmt.Errorf("failed to connect player: %w", err)
	}

	client.push(newResponse(actionConnect, &ResponsePayload{Player: player}))
	return nil
}

func (that *Server) handleLobbyUsers(ctx context.Context, client *Client, _ RequestPayload) error {
	users, err := that.lobby.ActiveUsers(ctx, client.identity)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	client.push(newResponse(actionLobbyUsers, &ResponsePayload{Users: users}))
	return nil
}

func (that *Server) handleChallengeNew(ctx context.Context, client *Client, payload RequestPayload) error {
	challenge, err := that.lobby.Challenge(ctx, client.identity, payload.Identity, payload.GridSize)
	if err != nil {
		return err
	}

	response := newResponse(actionChallengeNew, &ResponsePayload{Challenge: challenge})
	client.push(response)
	that.notify(challenge.ChallengedID, response)

	return nil
}

func (that *Server) handleChallengeList(ctx context.Context, client *Client, _ RequestPayload) error {
	challenges, err := that.lobby.PendingChallenges(ctx, client.identity)
	if err != nil {
		return fmt.Errorf("failed to list challenges: %w", err)
	}

	client.push(newResponse(actionChallengeList, &ResponsePayload{Challenges: challenges}))
	return nil
}

// handleChallengeRespond answers a challenge. On acceptance both sides learn the new game id from
// the challenge and are expected to follow up with game:join.
func (that *Server) handleChallengeRespond(ctx context.Context, client *Client, payload RequestPayload) error {
	challenge, _, err := that.lobby.RespondToChallenge(ctx, client.identity, payload.ChallengeID, payload.Accept)
	if err != nil {
		return err
	}

	response := newResponse(actionChallengeRespond, &ResponsePayload{Challenge: challenge})
	client.push(response)
	that.notify(challenge.ChallengerID, response)

	return nil
}

func (that *Server) handleChallengeCancel(ctx context.Context, client *Client, payload RequestPayload) error {
	challenge, err := that.lobby.CancelChallenge(ctx, client.identity, payload.ChallengeID)
	if err != nil {
		return err
	}

	response := newResponse(actionChallengeCancel, &ResponsePayload{Challenge: challenge})
	client.push(response)
	that.notify(challenge.ChallengedID, response)

	return nil
}

func (that *Server) handleGameJoin(ctx context.Context, client *Client, payload RequestPayload) error {
	if payload.GameID == "" {
		return apperror.ErrGameNotFound
	}

	client.leaveGame()

	controller, err := that.games.JoinGame(ctx, client.identity, payload.GameID, payload.Spectate)
	if err != nil {
		return err
	}

	snapshot := controller.Snapshot()
	client.push(newResponse(actionGameJoin, &ResponsePayload{Game: &snapshot}))
	client.attach(controller)

	return nil
}

func (that *Server) handleGameTurn(ctx context.Context, client *Client, payload RequestPayload) error {
	if client.controller == nil {
		return apperror.ErrGameNotFound
	}

	if payload.Cell == nil {
		return errMissingCell
	}

	snapshot, accepted, err := client.controller.Submit(ctx, *payload.Cell)
	if err != nil {
		return err
	}

	client.push(newResponse(actionGameTurn, &ResponsePayload{Game: &snapshot, Accepted: &accepted}))
	return nil
}

func (that *Server) handleGameLeave(_ context.Context, client *Client, _ RequestPayload) error {
	client.leaveGame()
	client.push(newResponse(actionGameLeave, &ResponsePayload{}))
	return nil
}

func (that *Server) handleStatsGet(ctx context.Context, client *Client, payload RequestPayload) error {
	identity := payload.Identity
	if identity == "" {
		identity = client.identity
	}

	stats, err := that.stats.GetStats(ctx, identity)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	matches, err := that.stats.History(ctx, identity, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	client.push(newResponse(actionStatsGet, &ResponsePayload{Stats: stats, Matches: matches}))
	return nil
}
