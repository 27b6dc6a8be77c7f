package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/session"
)

type controller interface {
	Submit(ctx context.Context, cell int) (session.Snapshot, bool, error)
	Reset(ctx context.Context) error
	Replay(ctx context.Context, size int, moves []entity.Move, delay time.Duration) error
	Snapshot() session.Snapshot
	Updates() <-chan session.Snapshot
	Close() error
}

// Game binds a session controller to a board view and a status line.
type Game struct {
	logger     *slog.Logger
	app        *tview.Application
	board      *BoardView
	status     *tview.TextView
	controller controller

	// replay mode disables input except quitting and restarting
	replay      *entity.MatchRecord
	replayDelay time.Duration

	notice string
}

func NewGame(logger *slog.Logger, controller controller) *Game {
	game := &Game{
		logger:     logger.With("component", "tui"),
		app:        tview.NewApplication(),
		board:      NewBoardView(),
		status:     tview.NewTextView(),
		controller: controller,
	}

	game.status.SetDynamicColors(true)
	game.board.SetSnapshot(controller.Snapshot())
	game.refreshStatus()

	return game
}

// NewReplay shows match being played back one move every delay.
func NewReplay(logger *slog.Logger, controller controller, match *entity.MatchRecord, delay time.Duration) *Game {
	game := NewGame(logger, controller)
	game.replay = match
	game.replayDelay = delay

	return game
}

// Run blocks until the user quits or ctx is done.
func (that *Game) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer func() {
		if err := that.controller.Close(); err != nil {
			log.Error("failed to close session", "error", err)
		}
	}()

	if that.replay != nil {
		if err := that.startReplay(ctx); err != nil {
			return err
		}
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				that.app.Stop()
				return
			case snapshot, ok := <-that.controller.Updates():
				if !ok {
					return
				}
				that.app.QueueUpdateDraw(func() {
					that.show(snapshot)
				})
			}
		}
	}()

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(that.board.Box, 0, 1, true).
		AddItem(that.status, 3, 0, false)

	that.board.Box.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		return that.HandleKey(ctx, event)
	})

	if err := that.app.SetRoot(layout, true).Run(); err != nil {
		return fmt.Errorf("failed to run terminal ui: %w", err)
	}

	return nil
}

// HandleKey applies one key press. Arrows or hjkl move, enter or space plays, r restarts, q quits.
func (that *Game) HandleKey(ctx context.Context, event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyUp:
		that.board.MoveSelection(0, -1)
	case tcell.KeyDown:
		that.board.MoveSelection(0, 1)
	case tcell.KeyLeft:
		that.board.MoveSelection(-1, 0)
	case tcell.KeyRight:
		that.board.MoveSelection(1, 0)
	case tcell.KeyEnter:
		that.play(ctx)
	case tcell.KeyEsc:
		that.app.Stop()
	case tcell.KeyRune:
		switch event.Rune() {
		case 'k':
			that.board.MoveSelection(0, -1)
		case 'j':
			that.board.MoveSelection(0, 1)
		case 'h':
			that.board.MoveSelection(-1, 0)
		case 'l':
			that.board.MoveSelection(1, 0)
		case ' ':
			that.play(ctx)
		case 'r':
			that.restart(ctx)
		case 'q':
			that.app.Stop()
		default:
			return event
		}
	default:
		return event
	}

	that.refreshStatus()
	return nil
}

func (that *Game) play(ctx context.Context) {
	if that.replay != nil {
		return
	}

	snapshot, accepted, err := that.controller.Submit(ctx, that.board.Selected())
	if err != nil {
		that.notice = err.Error()
		return
	}

	that.notice = ""
	if !accepted {
		that.notice = "move rejected"
	}

	that.show(snapshot)
}

func (that *Game) restart(ctx context.Context) {
	var err error
	if that.replay != nil {
		err = that.startReplay(ctx)
	} else {
		err = that.controller.Reset(ctx)
	}

	if err != nil {
		that.notice = err.Error()
		return
	}

	that.notice = ""
	that.show(that.controller.Snapshot())
}

func (that *Game) startReplay(ctx context.Context) error {
	err := that.controller.Replay(ctx, that.replay.GridSize, that.replay.Moves, that.replayDelay)
	if err != nil {
		return fmt.Errorf("failed to start replay: %w", err)
	}

	return nil
}

func (that *Game) show(snapshot session.Snapshot) {
	that.board.SetSnapshot(snapshot)
	that.refreshStatus()
}

func (that *Game) refreshStatus() {
	text := StatusText(that.board.Snapshot())
	if that.notice != "" {
		text += "\n[yellow]" + tview.Escape(that.notice) + "[-]"
	}

	that.status.SetText(text)
}

// StatusText describes whose turn it is or how the game ended, plus the available keys.
func StatusText(snapshot session.Snapshot) string {
	var b strings.Builder

	switch {
	case snapshot.Replaying:
		fmt.Fprintf(&b, "[white::b]Replay[-:-:-] move %d", len(snapshot.Moves))
	case snapshot.Outcome == entity.OutcomeDraw:
		b.WriteString("[white::b]Draw[-:-:-]")
	case snapshot.Outcome.IsTerminal():
		fmt.Fprintf(&b, "[white::b]%s wins[-:-:-]", snapshot.Outcome.Winner())
	default:
		fmt.Fprintf(&b, "[white::b]%s to play[-:-:-]", snapshot.Turn)
		if snapshot.Mark.IsPlayer() {
			fmt.Fprintf(&b, " (you are %s)", snapshot.Mark)
		}
	}

	fmt.Fprintf(&b, "  [dimgray]%s %dx%d[-]\n", snapshot.Mode, snapshot.GridSize, snapshot.GridSize)
	b.WriteString("[dimgray]arrows/hjkl move · enter/space play · r restart · q quit[-]")

	return b.String()
}
