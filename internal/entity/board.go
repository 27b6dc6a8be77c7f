package entity

import (
	"errors"
	"fmt"
	"math"
)

type Mark string

const (
	PlayerX   Mark = "X"
	PlayerO   Mark = "O"
	EmptyCell Mark = ""
)

const (
	MinGridSize     = 3
	MaxGridSize     = 5
	DefaultGridSize = 3
)

var (
	ErrInvalidGridSize = errors.New("invalid grid size")
	ErrInvalidBoard    = errors.New("invalid board")
	ErrInvalidMark     = errors.New("invalid mark")
)

// Other returns the opposing mark. EmptyCell has no opponent and maps to PlayerX.
func (that Mark) Other() Mark {
	if that == PlayerX {
		return PlayerO
	}
	return PlayerX
}

func (that Mark) IsPlayer() bool {
	return that == PlayerX || that == PlayerO
}

func (that Mark) IsValid() bool {
	return that == EmptyCell || that.IsPlayer()
}

type Outcome string

const (
	OutcomeInProgress Outcome = "in_progress"
	OutcomeWinX       Outcome = "win_x"
	OutcomeWinO       Outcome = "win_o"
	OutcomeDraw       Outcome = "draw"
)

func (that Outcome) IsTerminal() bool {
	return that == OutcomeWinX || that == OutcomeWinO || that == OutcomeDraw
}

// Winner returns the winning mark, or EmptyCell for a draw or an unfinished game.
func (that Outcome) Winner() Mark {
	switch that {
	case OutcomeWinX:
		return PlayerX
	case OutcomeWinO:
		return PlayerO
	default:
		return EmptyCell
	}
}

func WinOutcome(mark Mark) Outcome {
	if mark == PlayerO {
		return OutcomeWinO
	}
	return OutcomeWinX
}

// Board is a flat, row-major N×N grid of marks.
type Board []Mark

func NewBoard(size int) (Board, error) {
	if err := ValidateGridSize(size); err != nil {
		return nil, err
	}

	return make(Board, size*size), nil
}

func ValidateGridSize(size int) error {
	if size < MinGridSize || size > MaxGridSize {
		return fmt.Errorf("%w: %d", ErrInvalidGridSize, size)
	}
	return nil
}

// Size returns N for an N×N board, or 0 when the length is not a perfect square.
func (that Board) Size() int {
	n := int(math.Sqrt(float64(len(that))))
	if n*n != len(that) {
		return 0
	}
	return n
}

func (that Board) Clone() Board {
	out := make(Board, len(that))
	copy(out, that)
	return out
}

func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}
	return true
}

func (that Board) EmptyCells() []int {
	cells := make([]int, 0, len(that))
	for i, cell := range that {
		if cell == EmptyCell {
			cells = append(cells, i)
		}
	}
	return cells
}

// Count returns how many cells hold mark.
func (that Board) Count(mark Mark) int {
	count := 0
	for _, cell := range that {
		if cell == mark {
			count++
		}
	}
	return count
}

func (that Board) Equal(other Board) bool {
	if len(that) != len(other) {
		return false
	}
	for i := range that {
		if that[i] != other[i] {
			return false
		}
	}
	return true
}

// Validate checks that the board is a supported square grid holding only known marks.
func (that Board) Validate() error {
	size := that.Size()
	if size == 0 {
		return fmt.Errorf("%w: length %d is not a perfect square", ErrInvalidBoard, len(that))
	}

	if err := ValidateGridSize(size); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBoard, err)
	}

	for i, cell := range that {
		if !cell.IsValid() {
			return fmt.Errorf("%w: cell %d holds %q", ErrInvalidMark, i, cell)
		}
	}

	return nil
}

// Move is a single accepted placement. An ordered slice of moves replays a board from empty.
type Move struct {
	Position int  `json:"position"`
	Mark     Mark `json:"mark"`
}
