package apperror

import "errors"

var (
	ErrGameFinished  = errors.New("game is already finished")
	ErrNotYourTurn   = errors.New("it's not your turn")
	ErrCellOccupied  = errors.New("cell is already occupied")
	ErrInvalidCell   = errors.New("invalid cell index")
	ErrSpectator     = errors.New("spectators can't make moves")
	ErrReplayRunning = errors.New("replay is in progress")
	ErrNotAllowed    = errors.New("operation not allowed in this mode")
	ErrSessionClosed = errors.New("session is closed")
	ErrNotStarted    = errors.New("session is not started")

	ErrGameNotFound      = errors.New("game not found")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeExists   = errors.New("challenge already pending")
	ErrChallengeClosed   = errors.New("challenge is no longer pending")
	ErrSelfChallenge     = errors.New("can't challenge yourself")
	ErrNotParticipant    = errors.New("identity is not a participant")
)
