package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/session"
)

const (
	actionConnect          = "connect"
	actionLobbyUsers       = "lobby:users"
	actionChallengeNew     = "challenge:new"
	actionChallengeList    = "challenge:list"
	actionChallengeRespond = "challenge:respond"
	actionChallengeCancel  = "challenge:cancel"
	actionGameJoin         = "game:join"
	actionGameTurn         = "game:turn"
	actionGameLeave        = "game:leave"
	actionGameState        = "game:state"
	actionStatsGet         = "stats:get"
	actionError            = "error"
)

// Message is the envelope of every frame in both directions.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type RequestPayload struct {
	Username    string `json:"username,omitempty"`
	Identity    string `json:"identity,omitempty"`
	GridSize    int    `json:"grid_size,omitempty"`
	ChallengeID string `json:"challenge_id,omitempty"`
	Accept      bool   `json:"accept,omitempty"`
	GameID      string `json:"game_id,omitempty"`
	Spectate    bool   `json:"spectate,omitempty"`
	Cell        *int   `json:"cell,omitempty"`
}

type ResponsePayload struct {
	Player     *entity.Presence      `json:"player,omitempty"`
	Users      []*entity.Presence    `json:"users,omitempty"`
	Challenge  *entity.Challenge     `json:"challenge,omitempty"`
	Challenges []*entity.Challenge   `json:"challenges,omitempty"`
	Game       *session.Snapshot     `json:"game,omitempty"`
	Stats      *entity.Stats         `json:"stats,omitempty"`
	Matches    []*entity.MatchRecord `json:"matches,omitempty"`
	Accepted   *bool                 `json:"accepted,omitempty"`
	Error      string                `json:"error,omitempty"`
}

type Response struct {
	Action  string           `json:"action"`
	Payload *ResponsePayload `json:"payload"`
}

func newResponse(action string, payload *ResponsePayload) Response {
	return Response{Action: action, Payload: payload}
}

func errorResponse(err error) Response {
	return Response{Action: actionError, Payload: &ResponsePayload{Error: err.Error()}}
}
