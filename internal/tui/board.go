// Package tui renders a session in the terminal with tview.
package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/session"
)

// each cell is drawn as " X " followed by a separator column
const cellWidth = 4

type BoardView struct {
	Box      *tview.Box
	snapshot session.Snapshot
	selected int

	styleGrid tcell.Style
	styleSel  tcell.Style
}

func NewBoardView() *BoardView {
	board := &BoardView{
		Box:       tview.NewBox(),
		styleGrid: tcell.StyleDefault.Foreground(tcell.ColorDimGray),
		styleSel:  tcell.StyleDefault.Background(tcell.ColorDarkSlateGray),
	}

	board.Box.SetBorder(true).SetTitle(" tic-tac-toe ")
	board.Box.SetDrawFunc(board.draw)

	return board
}

func (that *BoardView) SetSnapshot(snapshot session.Snapshot) {
	that.snapshot = snapshot

	if that.selected >= len(snapshot.Board) {
		that.selected = 0
	}
}

func (that *BoardView) Snapshot() session.Snapshot {
	return that.snapshot
}

// Selected is the cell under the cursor.
func (that *BoardView) Selected() int {
	return that.selected
}

// MoveSelection shifts the cursor by dx columns and dy rows, stopping at the edges.
func (that *BoardView) MoveSelection(dx, dy int) {
	size := that.snapshot.GridSize
	if size == 0 {
		return
	}

	row, col := that.selected/size+dy, that.selected%size+dx
	if row < 0 || row >= size || col < 0 || col >= size {
		return
	}

	that.selected = row*size + col
}

func (that *BoardView) draw(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
	size := that.snapshot.GridSize
	if size == 0 || len(that.snapshot.Board) != size*size {
		return x, y, width, height
	}

	innerX, innerY := x+1, y+1

	for row := range size {
		lineY := innerY + row*2

		for col := range size {
			cell := row*size + col
			cellX := innerX + col*cellWidth

			style := tcell.StyleDefault
			if cell == that.selected && !that.snapshot.Outcome.IsTerminal() {
				style = that.styleSel
			}

			mark := ' '
			switch that.snapshot.Board[cell] {
			case entity.PlayerX:
				mark, style = 'X', style.Foreground(tcell.ColorRed).Bold(true)
			case entity.PlayerO:
				mark, style = 'O', style.Foreground(tcell.ColorDodgerBlue).Bold(true)
			}

			screen.SetContent(cellX, lineY, ' ', nil, style)
			screen.SetContent(cellX+1, lineY, mark, nil, style)
			screen.SetContent(cellX+2, lineY, ' ', nil, style)

			if col < size-1 {
				screen.SetContent(cellX+3, lineY, tview.BoxDrawingsLightVertical, nil, that.styleGrid)
			}
		}

		if row < size-1 {
			for i := 0; i < size*cellWidth-1; i++ {
				r := tview.BoxDrawingsLightHorizontal
				if i%cellWidth == cellWidth-1 {
					r = tview.BoxDrawingsLightVerticalAndHorizontal
				}
				screen.SetContent(innerX+i, lineY+1, r, nil, that.styleGrid)
			}
		}
	}

	return x, y, width, height
}
