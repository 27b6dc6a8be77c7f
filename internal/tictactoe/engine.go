// Package tictactoe is the board engine: move application, terminal detection and turn order
// for N×N boards. It performs no I/O.
package tictactoe

import (
	"fmt"
	"slices"
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

var (
	winLinesMu    sync.Mutex
	winLinesCache = map[int][][]int{}
)

// ApplyMove returns a copy of board with mark placed at cell. The input board is never modified.
func ApplyMove(board entity.Board, cell int, mark entity.Mark) (entity.Board, error) {
	if err := validateMove(board, cell, mark); err != nil {
		return board, err
	}

	next := board.Clone()
	next[cell] = mark

	return next, nil
}

// validateMove - checks if the move is valid.
func validateMove(board entity.Board, cell int, mark entity.Mark) error {
	if !mark.IsPlayer() {
		return fmt.Errorf("%w: %q", entity.ErrInvalidMark, mark)
	}

	if cell < 0 || cell >= len(board) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if board[cell] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	if Evaluate(board).IsTerminal() {
		return apperror.ErrGameFinished
	}

	return nil
}

// Evaluate classifies the board. Lines are checked rows first, then columns, then diagonals.
func Evaluate(board entity.Board) entity.Outcome {
	for _, line := range winLines(board.Size()) {
		if winner := lineOwner(board, line); winner != entity.EmptyCell {
			return entity.WinOutcome(winner)
		}
	}

	// the game will continue until all the squares are full
	if !board.IsFull() {
		return entity.OutcomeInProgress
	}

	return entity.OutcomeDraw
}

func lineOwner(board entity.Board, line []int) entity.Mark {
	first := board[line[0]]
	if first == entity.EmptyCell {
		return entity.EmptyCell
	}

	for _, cell := range line[1:] {
		if board[cell] != first {
			return entity.EmptyCell
		}
	}

	return first
}

// NextTurn toggles between the two player marks.
func NextTurn(current entity.Mark) entity.Mark {
	return current.Other()
}

// WinLines returns the N rows, N columns and the two full-length diagonals of an N×N grid.
// Shorter diagonal runs never count as a win. The result belongs to the caller.
func WinLines(n int) [][]int {
	cached := winLines(n)
	if cached == nil {
		return nil
	}

	lines := make([][]int, len(cached))
	for i, line := range cached {
		lines[i] = slices.Clone(line)
	}

	return lines
}

// winLines is the shared cache behind WinLines and must not be modified.
func winLines(n int) [][]int {
	if n <= 0 {
		return nil
	}

	winLinesMu.Lock()
	defer winLinesMu.Unlock()

	if lines, ok := winLinesCache[n]; ok {
		return lines
	}

	lines := make([][]int, 0, 2*n+2)

	for row := 0; row < n; row++ {
		line := make([]int, n)
		for col := 0; col < n; col++ {
			line[col] = row*n + col
		}
		lines = append(lines, line)
	}

	for col := 0; col < n; col++ {
		line := make([]int, n)
		for row := 0; row < n; row++ {
			line[row] = row*n + col
		}
		lines = append(lines, line)
	}

	mainDiagonal := make([]int, n)
	antiDiagonal := make([]int, n)
	for i := 0; i < n; i++ {
		mainDiagonal[i] = i*n + i
		antiDiagonal[i] = i*n + (n - 1 - i)
	}
	lines = append(lines, mainDiagonal, antiDiagonal)

	winLinesCache[n] = lines

	return lines
}

// Replay rebuilds a board of the given size from an ordered move list. Marks must alternate,
// starting with whichever mark the first move carries.
func Replay(size int, moves []entity.Move) (entity.Board, entity.Outcome, error) {
	board, err := entity.NewBoard(size)
	if err != nil {
		return nil, entity.OutcomeInProgress, err
	}

	for i, move := range moves {
		if i > 0 && move.Mark != NextTurn(moves[i-1].Mark) {
			return board, Evaluate(board), fmt.Errorf("move %d: %w", i, apperror.ErrNotYourTurn)
		}

		if board, err = ApplyMove(board, move.Position, move.Mark); err != nil {
			return board, Evaluate(board), fmt.Errorf("move %d: %w", i, err)
		}
	}

	return board, Evaluate(board), nil
}
