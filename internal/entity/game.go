package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrMalformedRecord = errors.New("malformed game record")
	ErrInvalidTurn     = errors.New("invalid turn")
)

// LiveGame is the authoritative record of a networked game as held by the game store.
type LiveGame struct {
	ID             string    `json:"id"`
	PlayerX        string    `json:"player_x"`
	PlayerO        string    `json:"player_o"`
	Board          Board     `json:"board"`
	Turn           Mark      `json:"turn"`
	Outcome        Outcome   `json:"outcome"`
	Moves          []Move    `json:"moves,omitempty"`
	Version        int64     `json:"version"`
	UpdatedAt      time.Time `json:"updated_at"`
	CreatedAt      time.Time `json:"created_at"`
	Spectators     []string  `json:"spectators,omitempty"`
	SpectatorCount int       `json:"spectator_count"`
}

// GamePatch is the best-effort update pushed after a locally accepted live move.
type GamePatch struct {
	Board   Board   `json:"board"`
	Turn    Mark    `json:"turn"`
	Outcome Outcome `json:"outcome"`
	Move    *Move   `json:"move,omitempty"`
}

func NewLiveGame(id, playerX, playerO string, size int) (*LiveGame, error) {
	board, err := NewBoard(size)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &LiveGame{
		ID:        id,
		PlayerX:   playerX,
		PlayerO:   playerO,
		Board:     board,
		Turn:      PlayerX,
		Outcome:   OutcomeInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// MarkOf returns the mark owned by identity, or EmptyCell when identity is not a participant.
func (that *LiveGame) MarkOf(identity string) Mark {
	switch {
	case identity == "":
		return EmptyCell
	case identity == that.PlayerX:
		return PlayerX
	case identity == that.PlayerO:
		return PlayerO
	default:
		return EmptyCell
	}
}

func (that *LiveGame) IsPlayer(identity string) bool {
	return that.MarkOf(identity) != EmptyCell
}

func (that *LiveGame) IsFinished() bool {
	return that.Outcome.IsTerminal()
}

// Apply merges a patch into the record. Revision fields are owned by the store.
func (that *LiveGame) Apply(patch GamePatch) {
	that.Board = patch.Board.Clone()
	that.Turn = patch.Turn
	that.Outcome = patch.Outcome

	if patch.Move != nil {
		that.Moves = append(that.Moves, *patch.Move)
	}
}

func (that *LiveGame) Clone() *LiveGame {
	out := *that
	out.Board = that.Board.Clone()
	out.Moves = append([]Move(nil), that.Moves...)
	out.Spectators = append([]string(nil), that.Spectators...)
	return &out
}

// Validate rejects records whose shape does not fit the data model.
func (that *LiveGame) Validate() error {
	if that.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}

	if err := that.Board.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	if !that.Turn.IsPlayer() {
		return fmt.Errorf("%w: %w %q", ErrMalformedRecord, ErrInvalidTurn, that.Turn)
	}

	// X always opens a live game, so the counts decide whose turn it is
	var expected Mark
	switch that.Board.Count(PlayerX) - that.Board.Count(PlayerO) {
	case 0:
		expected = PlayerX
	case 1:
		expected = PlayerO
	default:
		return fmt.Errorf("%w: %d X against %d O", ErrMalformedRecord, that.Board.Count(PlayerX), that.Board.Count(PlayerO))
	}

	if that.Turn != expected {
		return fmt.Errorf("%w: %w %q, the board says %q", ErrMalformedRecord, ErrInvalidTurn, that.Turn, expected)
	}

	if len(that.Moves) == 0 {
		return nil
	}

	return that.validateMoves()
}

// validateMoves replays the move list from an empty board and expects exactly the stored board.
func (that *LiveGame) validateMoves() error {
	replayed := make(Board, len(that.Board))
	for i := range replayed {
		replayed[i] = EmptyCell
	}

	mark := PlayerX
	for i, move := range that.Moves {
		if move.Position < 0 || move.Position >= len(that.Board) || !move.Mark.IsPlayer() {
			return fmt.Errorf("%w: move %d is out of range", ErrMalformedRecord, i)
		}

		if move.Mark != mark {
			return fmt.Errorf("%w: move %d: %w", ErrMalformedRecord, i, ErrInvalidTurn)
		}

		if replayed[move.Position] != EmptyCell {
			return fmt.Errorf("%w: move %d lands on an occupied cell", ErrMalformedRecord, i)
		}

		replayed[move.Position] = mark
		mark = mark.Other()
	}

	if !replayed.Equal(that.Board) {
		return fmt.Errorf("%w: moves do not rebuild the board", ErrMalformedRecord)
	}

	return nil
}

// ParseLiveGame decodes an untyped store payload into a validated record.
func ParseLiveGame(raw []byte) (*LiveGame, error) {
	var game LiveGame
	if err := json.Unmarshal(raw, &game); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	if err := game.Validate(); err != nil {
		return nil, err
	}

	if game.Outcome == "" {
		game.Outcome = OutcomeInProgress
	}

	if game.SpectatorCount < len(game.Spectators) {
		game.SpectatorCount = len(game.Spectators)
	}

	return &game, nil
}
