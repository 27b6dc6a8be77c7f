package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

type replayRun struct {
	moves  []entity.Move
	next   int
	ticker *time.Ticker
}

func (that *Controller) replayC() <-chan time.Time {
	if that.replay == nil {
		return nil
	}
	return that.replay.ticker.C
}

func (that *Controller) resetBoard(size int) {
	board, _ := entity.NewBoard(size)

	that.state.board = board
	that.state.turn = entity.PlayerX
	that.state.outcome = entity.OutcomeInProgress
	that.state.moves = nil
	that.state.recorded = false
}

func (that *Controller) submit(cell int) bool {
	log := that.logger.With("method", "submit", "cell", cell)

	if err := that.acceptMove(cell); err != nil {
		log.Debug("move ignored", "reason", err)
		return false
	}

	that.afterMove()
	return true
}

// acceptMove applies a human move when every acceptance rule holds.
func (that *Controller) acceptMove(cell int) error {
	if that.replay != nil {
		return apperror.ErrReplayRunning
	}

	if that.opts.Spectator {
		return apperror.ErrSpectator
	}

	if that.state.outcome.IsTerminal() {
		return apperror.ErrGameFinished
	}

	mark := that.state.turn

	switch that.opts.Mode {
	case ModeComputer:
		if mark != that.opts.HumanMark {
			return apperror.ErrNotYourTurn
		}
	case ModeLive:
		if that.state.record == nil || that.state.record.MarkOf(that.opts.Identity) != mark {
			return apperror.ErrNotYourTurn
		}
	case ModeLocal:
	}

	move, err := that.place(cell, mark)
	if err != nil {
		return err
	}

	if that.opts.Mode == ModeLive {
		that.pushMove(move)
	}

	return nil
}

// place puts mark on cell and advances the local state.
func (that *Controller) place(cell int, mark entity.Mark) (entity.Move, error) {
	board, err := tictactoe.ApplyMove(that.state.board, cell, mark)
	if err != nil {
		return entity.Move{}, err
	}

	move := entity.Move{Position: cell, Mark: mark}

	that.state.board = board
	that.state.moves = append(slices.Clone(that.state.moves), move)
	that.state.outcome = tictactoe.Evaluate(board)
	that.state.turn = tictactoe.NextTurn(mark)

	return move, nil
}

func (that *Controller) afterMove() {
	that.publish()

	if that.state.outcome.IsTerminal() {
		that.stopComputer()
		that.recordMatch()
		return
	}

	if that.opts.Mode == ModeComputer && that.state.turn != that.opts.HumanMark {
		that.scheduleComputer()
	}
}

// pushMove sends the accepted move to the store without waiting. Failures are logged and the
// local state is kept; the next notification from the store corrects any divergence.
func (that *Controller) pushMove(move entity.Move) {
	log := that.logger.With("method", "pushMove", "identity", that.opts.Identity)

	patch := entity.GamePatch{
		Board:   that.state.board,
		Turn:    that.state.turn,
		Outcome: that.state.outcome,
		Move:    &move,
	}

	gameID := that.opts.GameID
	that.enqueue(func(ctx context.Context) {
		if err := that.opts.Store.WriteRecord(ctx, gameID, patch); err != nil {
			log.Error("failed to write game record", "error", err)
		}
	})

	if !patch.Outcome.IsTerminal() || that.state.record == nil {
		return
	}

	players := []string{that.state.record.PlayerX, that.state.record.PlayerO}
	that.enqueue(func(ctx context.Context) {
		for _, identity := range players {
			if identity == "" {
				continue
			}

			if err := that.opts.Store.SetPresence(ctx, identity, entity.StatusOnline, ""); err != nil {
				log.Error("failed to release player from game", "player", identity, "error", err)
			}
		}
	})
}

func (that *Controller) scheduleComputer() {
	that.stopComputer()
	that.computerTimer = time.NewTimer(that.opts.ComputerDelay)
}

func (that *Controller) stopComputer() {
	if that.computerTimer == nil {
		return
	}

	that.computerTimer.Stop()
	that.computerTimer = nil
}

func (that *Controller) playComputer() {
	log := that.logger.With("method", "playComputer")

	mark := that.opts.HumanMark.Other()
	if that.replay != nil || that.state.outcome.IsTerminal() || that.state.turn != mark {
		return
	}

	cell, err := that.opts.Bot.ChooseCell(that.state.board)
	if err != nil {
		log.Error("computer could not choose a cell", "error", err)
		return
	}

	if _, err = that.place(cell, mark); err != nil {
		log.Error("computer chose an illegal cell", "cell", cell, "error", err)
		return
	}

	that.afterMove()
}

func (that *Controller) reset() error {
	if that.opts.Mode == ModeLive {
		return apperror.ErrNotAllowed
	}

	that.stopComputer()
	that.stopReplay()
	that.resetBoard(that.state.board.Size())
	that.publish()

	if that.opts.Mode == ModeComputer && that.opts.HumanMark != entity.PlayerX {
		that.scheduleComputer()
	}

	return nil
}

// startReplay only runs in local sessions, where no side is owned by a computer or a remote
// player.
func (that *Controller) startReplay(size int, moves []entity.Move, delay time.Duration) error {
	if that.opts.Mode != ModeLocal {
		return apperror.ErrNotAllowed
	}

	if delay <= 0 {
		return fmt.Errorf("%w: replay delay must be positive", ErrInvalidOptions)
	}

	if _, _, err := tictactoe.Replay(size, moves); err != nil {
		return fmt.Errorf("failed to validate replay: %w", err)
	}

	that.stopComputer()
	that.stopReplay()
	that.resetBoard(size)

	if len(moves) > 0 {
		// a replayed game is never recorded again
		that.state.recorded = true

		that.replay = &replayRun{
			moves:  slices.Clone(moves),
			ticker: time.NewTicker(delay),
		}
	}

	that.publish()
	return nil
}

func (that *Controller) replayStep() {
	log := that.logger.With("method", "replayStep")

	run := that.replay
	move := run.moves[run.next]
	run.next++

	if _, err := that.place(move.Position, move.Mark); err != nil {
		log.Error("replay diverged", "move", run.next-1, "error", err)
		that.finishReplay()
		return
	}

	if run.next == len(run.moves) {
		that.finishReplay()
		return
	}

	that.publish()
}

// finishReplay hands the board back to the players. A game continued from an unfinished replay
// is recorded like any other.
func (that *Controller) finishReplay() {
	that.stopReplay()
	that.state.recorded = that.state.outcome.IsTerminal()
	that.publish()
}

func (that *Controller) stopReplay() {
	if that.replay == nil {
		return
	}

	that.replay.ticker.Stop()
	that.replay = nil
}

// reconcile replaces the displayed state with a newer store record. The outcome is always
// recomputed from the board.
func (that *Controller) reconcile(record *entity.LiveGame) {
	log := that.logger.With("method", "reconcile")

	if record == nil {
		return
	}

	if err := record.Validate(); err != nil {
		log.Warn("dropping malformed game record", "error", err)
		return
	}

	if record.ID != that.opts.GameID {
		log.Warn("dropping record of another game", "recordID", record.ID)
		return
	}

	if that.state.record != nil && record.Version < that.state.version {
		log.Debug("dropping stale game record", "version", record.Version, "current", that.state.version)
		return
	}

	wasTerminal := that.state.outcome.IsTerminal()

	that.state.record = record.Clone()
	that.state.board = record.Board.Clone()
	that.state.turn = record.Turn
	that.state.moves = slices.Clone(record.Moves)
	that.state.outcome = tictactoe.Evaluate(that.state.board)
	that.state.version = record.Version

	that.publish()

	if that.state.outcome.IsTerminal() && !wasTerminal {
		that.recordMatch()
	}
}

// recordMatch stores the finished game for the session's identity, once per game.
func (that *Controller) recordMatch() {
	log := that.logger.With("method", "recordMatch")

	if that.state.recorded || that.opts.Recorder == nil || that.opts.Identity == "" || that.opts.Spectator {
		return
	}

	mark := entity.PlayerX
	switch that.opts.Mode {
	case ModeComputer:
		mark = that.opts.HumanMark
	case ModeLive:
		if that.state.record == nil {
			return
		}

		mark = that.state.record.MarkOf(that.opts.Identity)
		if mark == entity.EmptyCell {
			return
		}
	case ModeLocal:
	}

	that.state.recorded = true

	match := &entity.MatchRecord{
		ID:       uuid.NewString(),
		Identity: that.opts.Identity,
		GameID:   that.opts.GameID,
		Mode:     that.opts.Mode.GameMode(),
		Mark:     mark,
		Outcome:  that.state.outcome,
		Result:   entity.ResultFor(that.state.outcome, mark),
		Moves:    slices.Clone(that.state.moves),
		GridSize: that.state.board.Size(),
		PlayedAt: time.Now().UTC(),
	}

	recorder := that.opts.Recorder
	that.enqueue(func(ctx context.Context) {
		if err := recorder.RecordMatch(ctx, match); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("failed to record match", "error", err)
		}
	})
}
