// Package session owns the interactive loop of a single game: local play, play against the
// computer, and live play against a remote authoritative record.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	DefaultComputerDelay = 500 * time.Millisecond

	updatesBuffer   = 16
	jobsBuffer      = 32
	teardownTimeout = 5 * time.Second
)

var ErrInvalidOptions = errors.New("invalid session options")

type Mode int

const (
	ModeLocal Mode = iota
	ModeComputer
	ModeLive
)

func (that Mode) GameMode() entity.GameMode {
	switch that {
	case ModeComputer:
		return entity.ModeComputer
	case ModeLive:
		return entity.ModeLive
	default:
		return entity.ModeLocal
	}
}

func (that Mode) String() string {
	return string(that.GameMode())
}

type gameStore interface {
	ReadRecord(ctx context.Context, gameID string) (*entity.LiveGame, error)
	WriteRecord(ctx context.Context, gameID string, patch entity.GamePatch) error
	Subscribe(ctx context.Context, gameID string) (*entity.Subscription, error)
	SetPresence(ctx context.Context, identity string, status entity.PresenceStatus, gameID string) error
}

type botService interface {
	ChooseCell(board entity.Board) (int, error)
}

type matchRecorder interface {
	RecordMatch(ctx context.Context, match *entity.MatchRecord) error
}

type Options struct {
	Mode     Mode
	GridSize int

	// Identity is the acting user. Live sessions require it; local and computer sessions use
	// it only to attribute match records.
	Identity  string
	Spectator bool
	GameID    string

	// HumanMark is the mark the human plays against the computer. Defaults to X.
	HumanMark     entity.Mark
	ComputerDelay time.Duration

	Store    gameStore
	Bot      botService
	Recorder matchRecorder
	Logger   *slog.Logger
}

// Snapshot is an immutable view of the displayed game.
type Snapshot struct {
	Mode           string         `json:"mode"`
	GameID         string         `json:"game_id,omitempty"`
	GridSize       int            `json:"grid_size"`
	Board          entity.Board   `json:"board"`
	Turn           entity.Mark    `json:"turn"`
	Outcome        entity.Outcome `json:"outcome"`
	Moves          []entity.Move  `json:"moves"`
	PlayerX        string         `json:"player_x,omitempty"`
	PlayerO        string         `json:"player_o,omitempty"`
	Mark           entity.Mark    `json:"mark,omitempty"`
	Spectator      bool           `json:"spectator,omitempty"`
	SpectatorCount int            `json:"spectator_count,omitempty"`
	Replaying      bool           `json:"replaying,omitempty"`
	Version        int64          `json:"version,omitempty"`
}

// Controller serialises every input of one game through a single goroutine.
type Controller struct {
	opts   Options
	logger *slog.Logger

	events  chan any
	updates chan Snapshot
	closing chan struct{}
	done    chan struct{}
	jobs    chan func(ctx context.Context)
	jobsWG  sync.WaitGroup

	startMu   sync.Mutex
	started   atomic.Bool
	closeOnce sync.Once

	currentMu sync.RWMutex
	current   Snapshot

	// owned by the loop goroutine after Start
	state         gameState
	sub           *entity.Subscription
	computerTimer *time.Timer
	replay        *replayRun
}

type gameState struct {
	board    entity.Board
	turn     entity.Mark
	outcome  entity.Outcome
	moves    []entity.Move
	record   *entity.LiveGame
	version  int64
	recorded bool
}

type submitEvent struct {
	cell  int
	reply chan submitResult
}

type submitResult struct {
	snapshot Snapshot
	accepted bool
}

type resetEvent struct {
	reply chan error
}

type replayEvent struct {
	size  int
	moves []entity.Move
	delay time.Duration
	reply chan error
}

func New(opts Options) (*Controller, error) {
	if err := normalizeOptions(&opts); err != nil {
		return nil, err
	}

	logger := opts.Logger.With("component", "session", "mode", opts.Mode.String())
	if opts.GameID != "" {
		logger = logger.With("gameID", opts.GameID)
	}

	that := &Controller{
		opts:    opts,
		logger:  logger,
		events:  make(chan any),
		updates: make(chan Snapshot, updatesBuffer),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		jobs:    make(chan func(ctx context.Context), jobsBuffer),
	}

	that.resetBoard(opts.GridSize)
	that.current = that.snapshot()

	return that, nil
}

func normalizeOptions(opts *Options) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.GridSize == 0 {
		opts.GridSize = entity.DefaultGridSize
	}

	if err := entity.ValidateGridSize(opts.GridSize); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	switch opts.Mode {
	case ModeLocal:
	case ModeComputer:
		if opts.Bot == nil {
			return fmt.Errorf("%w: computer mode needs a bot", ErrInvalidOptions)
		}

		if opts.HumanMark == entity.EmptyCell {
			opts.HumanMark = entity.PlayerX
		}

		if !opts.HumanMark.IsPlayer() {
			return fmt.Errorf("%w: human mark %q", ErrInvalidOptions, opts.HumanMark)
		}

		if opts.ComputerDelay <= 0 {
			opts.ComputerDelay = DefaultComputerDelay
		}
	case ModeLive:
		if opts.Store == nil || opts.GameID == "" || opts.Identity == "" {
			return fmt.Errorf("%w: live mode needs a store, a game id and an identity", ErrInvalidOptions)
		}
	default:
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidOptions, opts.Mode)
	}

	if opts.Spectator && opts.Mode != ModeLive {
		return fmt.Errorf("%w: spectators only exist in live games", ErrInvalidOptions)
	}

	return nil
}

// Start loads the initial state and runs the event loop until ctx is done or Close is called.
// Concurrent calls wait for the first one and start the loop once.
func (that *Controller) Start(ctx context.Context) error {
	that.startMu.Lock()
	defer that.startMu.Unlock()

	if that.started.Load() {
		return nil
	}

	if that.opts.Mode == ModeLive {
		if err := that.connect(ctx); err != nil {
			return err
		}
	}

	if that.opts.Mode == ModeComputer && that.opts.HumanMark != entity.PlayerX {
		that.scheduleComputer()
	}

	that.started.Store(true)

	go that.runJobs(context.WithoutCancel(ctx))
	go that.run(ctx)

	return nil
}

// connect subscribes first and reads second so no change is missed in between; stale
// notifications are dropped by version.
func (that *Controller) connect(ctx context.Context) error {
	log := that.logger.With("method", "connect", "identity", that.opts.Identity)

	sub, err := that.opts.Store.Subscribe(ctx, that.opts.GameID)
	if err != nil {
		return fmt.Errorf("failed to subscribe to game: %w", err)
	}
	that.sub = sub

	record, err := that.opts.Store.ReadRecord(ctx, that.opts.GameID)
	switch {
	case err != nil:
		log.Warn("no readable game record, starting from an empty board", "error", err)
	case record == nil:
		log.Warn("game record is missing, starting from an empty board")
	default:
		that.reconcile(record)
	}

	status := entity.StatusInGame
	if that.opts.Spectator {
		status = entity.StatusSpectating
	}

	if err = that.opts.Store.SetPresence(ctx, that.opts.Identity, status, that.opts.GameID); err != nil {
		log.Error("failed to set presence", "error", err)
	}

	return nil
}

// Submit offers a move at cell on behalf of the session's identity. Illegal moves are
// ignored: the returned flag is false and the state is unchanged.
func (that *Controller) Submit(ctx context.Context, cell int) (Snapshot, bool, error) {
	reply := make(chan submitResult, 1)

	if err := that.send(ctx, submitEvent{cell: cell, reply: reply}); err != nil {
		return that.Snapshot(), false, err
	}

	select {
	case res := <-reply:
		return res.snapshot, res.accepted, nil
	case <-that.done:
		return that.Snapshot(), false, apperror.ErrSessionClosed
	case <-ctx.Done():
		return that.Snapshot(), false, ctx.Err()
	}
}

// Reset discards the board and starts a fresh game. Live games can't be reset locally.
func (that *Controller) Reset(ctx context.Context) error {
	return that.request(ctx, func(reply chan error) any { return resetEvent{reply: reply} })
}

// Replay plays moves back from an empty board of the given size, one every delay.
// Calling it again restarts from scratch. Only local sessions replay.
func (that *Controller) Replay(ctx context.Context, size int, moves []entity.Move, delay time.Duration) error {
	return that.request(ctx, func(reply chan error) any {
		return replayEvent{size: size, moves: moves, delay: delay, reply: reply}
	})
}

func (that *Controller) request(ctx context.Context, build func(reply chan error) any) error {
	reply := make(chan error, 1)

	if err := that.send(ctx, build(reply)); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-that.done:
		return apperror.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (that *Controller) send(ctx context.Context, event any) error {
	if !that.started.Load() {
		return apperror.ErrNotStarted
	}

	select {
	case that.events <- event:
		return nil
	case <-that.done:
		return apperror.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the most recently published state.
func (that *Controller) Snapshot() Snapshot {
	that.currentMu.RLock()
	defer that.currentMu.RUnlock()

	return that.current
}

// Updates streams snapshots as they change. Slow readers only miss intermediate states.
// The channel is closed when the session ends.
func (that *Controller) Updates() <-chan Snapshot {
	return that.updates
}

// Done is closed once the session has torn down.
func (that *Controller) Done() <-chan struct{} {
	return that.done
}

// Close tears the session down and waits for the loop to finish.
func (that *Controller) Close() error {
	that.closeOnce.Do(func() {
		close(that.closing)
	})

	if that.started.Load() {
		<-that.done
	}

	return nil
}

func (that *Controller) run(ctx context.Context) {
	defer close(that.done)
	defer that.teardown(ctx)

	for {
		select {
		case <-that.closing:
			return
		case <-ctx.Done():
			return
		case event := <-that.events:
			that.handle(event)
		case record, ok := <-that.subUpdates():
			if !ok {
				that.logger.Warn("game subscription closed")
				that.sub = nil
				continue
			}
			that.reconcile(record)
		case <-that.computerC():
			that.computerTimer = nil
			that.playComputer()
		case <-that.replayC():
			that.replayStep()
		}
	}
}

func (that *Controller) handle(event any) {
	switch ev := event.(type) {
	case submitEvent:
		accepted := that.submit(ev.cell)
		ev.reply <- submitResult{snapshot: that.Snapshot(), accepted: accepted}
	case resetEvent:
		ev.reply <- that.reset()
	case replayEvent:
		ev.reply <- that.startReplay(ev.size, ev.moves, ev.delay)
	}
}

func (that *Controller) subUpdates() <-chan *entity.LiveGame {
	if that.sub == nil {
		return nil
	}
	return that.sub.Updates()
}

func (that *Controller) computerC() <-chan time.Time {
	if that.computerTimer == nil {
		return nil
	}
	return that.computerTimer.C
}

func (that *Controller) teardown(ctx context.Context) {
	log := that.logger.With("method", "teardown")

	that.stopComputer()
	that.stopReplay()

	if that.sub != nil {
		if err := that.sub.Release(); err != nil {
			log.Error("failed to release subscription", "error", err)
		}
		that.sub = nil
	}

	if that.opts.Mode == ModeLive {
		identity := that.opts.Identity
		that.enqueue(func(ctx context.Context) {
			if err := that.opts.Store.SetPresence(ctx, identity, entity.StatusOffline, ""); err != nil {
				log.Error("failed to clear presence", "error", err)
			}
		})
	}

	close(that.jobs)

	finished := make(chan struct{})
	go func() {
		that.jobsWG.Wait()
		close(finished)
	}()

	timer := time.NewTimer(teardownTimeout)
	defer timer.Stop()

	select {
	case <-finished:
	case <-timer.C:
		log.Warn("pending store writes did not finish before teardown")
	}

	close(that.updates)
	log.Debug("session closed", "ctxErr", ctx.Err())
}

// enqueue runs job on the writer goroutine, preserving submission order.
func (that *Controller) enqueue(job func(ctx context.Context)) {
	that.jobsWG.Add(1)
	that.jobs <- job
}

func (that *Controller) runJobs(ctx context.Context) {
	for job := range that.jobs {
		jobCtx, cancel := context.WithTimeout(ctx, teardownTimeout)
		job(jobCtx)
		cancel()
		that.jobsWG.Done()
	}
}

func (that *Controller) publish() {
	snap := that.snapshot()

	that.currentMu.Lock()
	that.current = snap
	that.currentMu.Unlock()

	select {
	case that.updates <- snap:
	default:
		// drop the oldest pending snapshot so the newest always gets through
		select {
		case <-that.updates:
		default:
		}
		select {
		case that.updates <- snap:
		default:
		}
	}
}

func (that *Controller) snapshot() Snapshot {
	snap := Snapshot{
		Mode:      that.opts.Mode.String(),
		GameID:    that.opts.GameID,
		GridSize:  that.state.board.Size(),
		Board:     that.state.board,
		Turn:      that.state.turn,
		Outcome:   that.state.outcome,
		Moves:     that.state.moves,
		Spectator: that.opts.Spectator,
		Replaying: that.replay != nil,
		Version:   that.state.version,
	}

	switch that.opts.Mode {
	case ModeComputer:
		snap.Mark = that.opts.HumanMark
	case ModeLive:
		if record := that.state.record; record != nil {
			snap.PlayerX = record.PlayerX
			snap.PlayerO = record.PlayerO
			snap.Mark = record.MarkOf(that.opts.Identity)
			snap.SpectatorCount = record.SpectatorCount
		}
	case ModeLocal:
	}

	return snap
}
