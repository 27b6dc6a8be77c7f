package entity

import "time"

type ChallengeStatus string

const (
	ChallengePending   ChallengeStatus = "pending"
	ChallengeAccepted  ChallengeStatus = "accepted"
	ChallengeDeclined  ChallengeStatus = "declined"
	ChallengeCancelled ChallengeStatus = "cancelled"
)

type Challenge struct {
	ID           string          `json:"id"`
	ChallengerID string          `json:"challenger_id"`
	ChallengedID string          `json:"challenged_id"`
	Status       ChallengeStatus `json:"status"`
	GridSize     int             `json:"grid_size"`
	GameID       string          `json:"game_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (that *Challenge) IsPending() bool {
	return that.Status == ChallengePending
}

// Involves reports whether the challenge is between a and b, in either direction.
func (that *Challenge) Involves(a, b string) bool {
	return (that.ChallengerID == a && that.ChallengedID == b) ||
		(that.ChallengerID == b && that.ChallengedID == a)
}

type MatchResult string

const (
	ResultWin  MatchResult = "win"
	ResultLoss MatchResult = "loss"
	ResultDraw MatchResult = "draw"
)

// ResultFor converts a terminal outcome into the result seen by the holder of mark.
func ResultFor(outcome Outcome, mark Mark) MatchResult {
	switch outcome.Winner() {
	case EmptyCell:
		return ResultDraw
	case mark:
		return ResultWin
	default:
		return ResultLoss
	}
}

type GameMode string

const (
	ModeLocal    GameMode = "local"
	ModeComputer GameMode = "computer"
	ModeLive     GameMode = "live"
)

// MatchRecord is a finished game as seen by one identity.
type MatchRecord struct {
	ID       string      `json:"id"`
	Identity string      `json:"identity"`
	GameID   string      `json:"game_id,omitempty"`
	Mode     GameMode    `json:"mode"`
	Mark     Mark        `json:"mark"`
	Outcome  Outcome     `json:"outcome"`
	Result   MatchResult `json:"result"`
	Moves    []Move      `json:"moves"`
	GridSize int         `json:"grid_size"`
	PlayedAt time.Time   `json:"played_at"`
}

type Stats struct {
	Identity   string `json:"identity"`
	Wins       int64  `json:"wins"`
	Losses     int64  `json:"losses"`
	Draws      int64  `json:"draws"`
	TotalGames int64  `json:"total_games"`
}
