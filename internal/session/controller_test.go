package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

const (
	gameID  = "game-1"
	playerA = "alice"
	playerB = "bob"
	watcher = "carol"

	waitFor  = 2 * time.Second
	tickStep = 5 * time.Millisecond
)

type storeMock struct {
	mock.Mock
	updates chan *entity.LiveGame
}

func newStoreMock() *storeMock {
	return &storeMock{updates: make(chan *entity.LiveGame, 8)}
}

func (that *storeMock) ReadRecord(ctx context.Context, id string) (*entity.LiveGame, error) {
	args := that.Called(ctx, id)
	game, _ := args.Get(0).(*entity.LiveGame)
	return game, args.Error(1)
}

func (that *storeMock) WriteRecord(ctx context.Context, id string, patch entity.GamePatch) error {
	return that.Called(ctx, id, patch).Error(0)
}

func (that *storeMock) Subscribe(_ context.Context, _ string) (*entity.Subscription, error) {
	return entity.NewSubscription(that.updates, nil), nil
}

func (that *storeMock) SetPresence(ctx context.Context, identity string, status entity.PresenceStatus, id string) error {
	return that.Called(ctx, identity, status, id).Error(0)
}

type botMock struct {
	mock.Mock
}

func (that *botMock) ChooseCell(board entity.Board) (int, error) {
	args := that.Called(board)
	return args.Int(0), args.Error(1)
}

type recorderMock struct {
	mock.Mock
}

func (that *recorderMock) RecordMatch(ctx context.Context, match *entity.MatchRecord) error {
	return that.Called(ctx, match).Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newRecord(t *testing.T, version int64, positions ...int) *entity.LiveGame {
	t.Helper()

	game, err := entity.NewLiveGame(gameID, playerA, playerB, 3)
	require.NoError(t, err)

	mark := entity.PlayerX
	for _, pos := range positions {
		game.Board, err = tictactoe.ApplyMove(game.Board, pos, mark)
		require.NoError(t, err)

		game.Moves = append(game.Moves, entity.Move{Position: pos, Mark: mark})
		mark = tictactoe.NextTurn(mark)
	}

	game.Turn = mark
	game.Outcome = tictactoe.Evaluate(game.Board)
	game.Version = version

	return game
}

func startController(t *testing.T, opts Options) *Controller {
	t.Helper()

	if opts.Logger == nil {
		opts.Logger = testLogger()
	}

	controller, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, controller.Start(context.Background()))

	t.Cleanup(func() {
		_ = controller.Close()
	})

	return controller
}

func submit(t *testing.T, controller *Controller, cell int) (Snapshot, bool) {
	t.Helper()

	snap, accepted, err := controller.Submit(context.Background(), cell)
	require.NoError(t, err)

	return snap, accepted
}

func eventually(t *testing.T, controller *Controller, cond func(Snapshot) bool) {
	t.Helper()

	require.Eventually(t, func() bool {
		return cond(controller.Snapshot())
	}, waitFor, tickStep)
}

func TestNew(t *testing.T) {
	t.Run("Rejects unsupported grid sizes", func(t *testing.T) {
		_, err := New(Options{Mode: ModeLocal, GridSize: 6, Logger: testLogger()})
		require.ErrorIs(t, err, ErrInvalidOptions)
	})

	t.Run("Live mode requires a store and a game", func(t *testing.T) {
		_, err := New(Options{Mode: ModeLive, Identity: playerA, Logger: testLogger()})
		require.ErrorIs(t, err, ErrInvalidOptions)
	})

	t.Run("Spectators only exist in live mode", func(t *testing.T) {
		_, err := New(Options{Mode: ModeLocal, Spectator: true, Logger: testLogger()})
		require.ErrorIs(t, err, ErrInvalidOptions)
	})

	t.Run("Submit before Start fails", func(t *testing.T) {
		controller, err := New(Options{Mode: ModeLocal, Logger: testLogger()})
		require.NoError(t, err)

		_, _, err = controller.Submit(context.Background(), 0)
		require.ErrorIs(t, err, apperror.ErrNotStarted)
	})
}

func TestController_Start(t *testing.T) {
	t.Run("Concurrent starts connect and run the loop once", func(t *testing.T) {
		// Given: a live session that has not started
		store := newStoreMock()
		store.On("ReadRecord", mock.Anything, gameID).Return(newRecord(t, 1), nil)
		store.On("SetPresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		store.On("WriteRecord", mock.Anything, gameID, mock.Anything).Return(nil)

		controller, err := New(Options{Mode: ModeLive, Store: store, GameID: gameID, Identity: playerA, Logger: testLogger()})
		require.NoError(t, err)

		// When: several goroutines start it at once
		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- controller.Start(context.Background())
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		// Then: the record was read once, moves still go through and Close returns
		store.AssertNumberOfCalls(t, "ReadRecord", 1)

		_, accepted := submit(t, controller, 4)
		assert.True(t, accepted)

		require.NoError(t, controller.Close())
	})
}

func TestController_Local(t *testing.T) {
	t.Run("Marks alternate and occupied cells are ignored", func(t *testing.T) {
		controller := startController(t, Options{Mode: ModeLocal, GridSize: 4})

		// When: X plays 5 and O tries the same cell
		snap, accepted := submit(t, controller, 5)
		require.True(t, accepted)
		assert.Equal(t, entity.PlayerO, snap.Turn)

		snap, accepted = submit(t, controller, 5)

		// Then: the second move is ignored and nothing changes
		assert.False(t, accepted)
		assert.Equal(t, entity.PlayerO, snap.Turn)
		assert.Len(t, snap.Moves, 1)
		assert.Equal(t, 4, snap.GridSize)
	})

	t.Run("Scenario A ends the game and blocks further moves", func(t *testing.T) {
		recorder := &recorderMock{}
		recorder.On("RecordMatch", mock.Anything, mock.Anything).Return(nil).Once()

		controller := startController(t, Options{Mode: ModeLocal, Identity: playerA, Recorder: recorder})

		// Given: moves [0,4,1,5,2]
		for _, cell := range []int{0, 4, 1, 5, 2} {
			_, accepted := submit(t, controller, cell)
			require.True(t, accepted)
		}

		// When: O tries cell 3
		snap, accepted := submit(t, controller, 3)

		// Then: X has won, cell 3 is empty, and one match was recorded
		assert.False(t, accepted)
		assert.Equal(t, entity.OutcomeWinX, snap.Outcome)
		assert.Equal(t, entity.EmptyCell, snap.Board[3])

		require.NoError(t, controller.Close())
		recorder.AssertNumberOfCalls(t, "RecordMatch", 1)

		match, _ := recorder.Calls[0].Arguments.Get(1).(*entity.MatchRecord)
		require.NotNil(t, match)
		assert.Equal(t, entity.ResultWin, match.Result)
		assert.Len(t, match.Moves, 5)
	})

	t.Run("Reset starts a fresh board", func(t *testing.T) {
		controller := startController(t, Options{Mode: ModeLocal})

		submit(t, controller, 0)
		require.NoError(t, controller.Reset(context.Background()))

		snap := controller.Snapshot()
		assert.Empty(t, snap.Moves)
		assert.Equal(t, entity.PlayerX, snap.Turn)
		assert.Equal(t, entity.OutcomeInProgress, snap.Outcome)
	})
}

func TestController_Computer(t *testing.T) {
	t.Run("Computer answers after the delay", func(t *testing.T) {
		bot := &botMock{}
		bot.On("ChooseCell", mock.Anything).Return(8, nil).Once()

		controller := startController(t, Options{
			Mode:          ModeComputer,
			Bot:           bot,
			ComputerDelay: 50 * time.Millisecond,
		})

		// When: the human plays the centre
		_, accepted := submit(t, controller, 4)
		require.True(t, accepted)

		// Then: human input is ignored until the computer has played
		_, accepted = submit(t, controller, 0)
		assert.False(t, accepted)

		eventually(t, controller, func(snap Snapshot) bool {
			return len(snap.Moves) == 2
		})

		snap := controller.Snapshot()
		assert.Equal(t, entity.PlayerO, snap.Board[8])
		assert.Equal(t, entity.PlayerX, snap.Turn)
		bot.AssertExpectations(t)
	})

	t.Run("Computer opens when the human plays O", func(t *testing.T) {
		bot := &botMock{}
		bot.On("ChooseCell", mock.Anything).Return(0, nil).Once()

		controller := startController(t, Options{
			Mode:          ModeComputer,
			Bot:           bot,
			HumanMark:     entity.PlayerO,
			ComputerDelay: time.Millisecond,
		})

		eventually(t, controller, func(snap Snapshot) bool {
			return snap.Board[0] == entity.PlayerX
		})
		assert.Equal(t, entity.PlayerO, controller.Snapshot().Turn)
	})

	t.Run("Closing cancels a pending computer move", func(t *testing.T) {
		bot := &botMock{}

		controller := startController(t, Options{
			Mode:          ModeComputer,
			Bot:           bot,
			ComputerDelay: time.Hour,
		})

		// Given: the computer move is scheduled
		_, accepted := submit(t, controller, 0)
		require.True(t, accepted)

		// When: the session closes
		require.NoError(t, controller.Close())

		// Then: the computer never plays and updates are closed
		bot.AssertNotCalled(t, "ChooseCell", mock.Anything)
		_, accepted, err := controller.Submit(context.Background(), 1)
		require.ErrorIs(t, err, apperror.ErrSessionClosed)
		assert.False(t, accepted)
	})

	t.Run("Reset cancels a pending computer move", func(t *testing.T) {
		bot := &botMock{}

		controller := startController(t, Options{
			Mode:          ModeComputer,
			Bot:           bot,
			ComputerDelay: 50 * time.Millisecond,
		})

		submit(t, controller, 0)
		require.NoError(t, controller.Reset(context.Background()))

		time.Sleep(100 * time.Millisecond)

		bot.AssertNotCalled(t, "ChooseCell", mock.Anything)
		assert.Empty(t, controller.Snapshot().Moves)
	})
}

func TestController_Live(t *testing.T) {
	t.Run("Scenario D: the waiting player is ignored until the echo arrives", func(t *testing.T) {
		storeA, storeB := newStoreMock(), newStoreMock()
		for _, store := range []*storeMock{storeA, storeB} {
			store.On("ReadRecord", mock.Anything, gameID).Return(newRecord(t, 1), nil)
			store.On("SetPresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
			store.On("WriteRecord", mock.Anything, gameID, mock.Anything).Return(nil)
		}

		alice := startController(t, Options{Mode: ModeLive, Store: storeA, GameID: gameID, Identity: playerA})
		bob := startController(t, Options{Mode: ModeLive, Store: storeB, GameID: gameID, Identity: playerB})

		// When: B submits before A has moved
		_, accepted := submit(t, bob, 0)
		assert.False(t, accepted)

		// And: A plays cell 4
		snap, accepted := submit(t, alice, 4)
		require.True(t, accepted)
		assert.Equal(t, entity.PlayerO, snap.Turn)

		// Then: B still can't move before the store echoes the record
		_, accepted = submit(t, bob, 0)
		assert.False(t, accepted)

		storeB.updates <- newRecord(t, 2, 4)
		eventually(t, bob, func(snap Snapshot) bool {
			return snap.Version == 2
		})

		_, accepted = submit(t, bob, 0)
		assert.True(t, accepted)

		require.NoError(t, alice.Close())
		require.NoError(t, bob.Close())

		storeA.AssertNumberOfCalls(t, "WriteRecord", 1)
		storeB.AssertNumberOfCalls(t, "WriteRecord", 1)
		storeA.AssertCalled(t, "SetPresence", mock.Anything, playerA, entity.StatusInGame, gameID)
		storeA.AssertCalled(t, "SetPresence", mock.Anything, playerA, entity.StatusOffline, "")
	})

	t.Run("Stale records are dropped", func(t *testing.T) {
		store := newStoreMock()
		store.On("ReadRecord", mock.Anything, gameID).Return(newRecord(t, 3, 0, 4), nil)
		store.On("SetPresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		controller := startController(t, Options{Mode: ModeLive, Store: store, GameID: gameID, Identity: playerA})

		// When: an older version and then a newer one arrive
		store.updates <- newRecord(t, 2, 0)
		store.updates <- newRecord(t, 4, 0, 4, 8)

		// Then: only the newer one is shown
		eventually(t, controller, func(snap Snapshot) bool {
			return snap.Version == 4
		})
		assert.Len(t, controller.Snapshot().Moves, 3)
	})

	t.Run("Records whose turn contradicts the board are dropped", func(t *testing.T) {
		// Given: X is the local player on a fresh game
		store := newStoreMock()
		store.On("ReadRecord", mock.Anything, gameID).Return(newRecord(t, 1), nil)
		store.On("SetPresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		controller := startController(t, Options{Mode: ModeLive, Store: store, GameID: gameID, Identity: playerA})

		// When: a record arrives where X holds the centre but still has the turn,
		// followed by an older well-formed one
		forged := newRecord(t, 5, 4)
		forged.Turn = entity.PlayerX
		forged.Moves = nil
		store.updates <- forged
		store.updates <- newRecord(t, 3, 4)

		// Then: the older record still applies, so the newer one never did, and X waits for O
		eventually(t, controller, func(snap Snapshot) bool {
			return snap.Version == 3
		})
		assert.Equal(t, entity.PlayerO, controller.Snapshot().Turn)

		_, accepted := submit(t, controller, 0)
		assert.False(t, accepted)
		store.AssertNotCalled(t, "WriteRecord", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Outcome is recomputed from the board", func(t *testing.T) {
		store := newStoreMock()
		store.On("SetPresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		record := newRecord(t, 1, 0, 4, 1, 5, 2)
		record.Outcome = entity.OutcomeInProgress
		store.On("ReadRecord", mock.Anything, gameID).Return(record, nil)

		controller := startController(t, Options{Mode: ModeLive, Store: store, GameID: gameID, Identity: playerB})

		assert.Equal(t, entity.OutcomeWinX, controller.Snapshot().Outcome)
	})

	t.Run("Missing or malformed record starts from an empty board", func(t *testing.T) {
		store := newStoreMock()
		store.On("ReadRecord", mock.Anything, gameID).Return(nil, entity.ErrMalformedRecord)
		store.On("SetPresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		controller := startController(t, Options{Mode: ModeLive, Store: store, GameID: gameID, Identity: playerA})

		// Then: the board is empty and nobody owns a mark
		snap := controller.Snapshot()
		assert.Equal(t, entity.DefaultGridSize, snap.GridSize)
		assert.Len(t, snap.Board.EmptyCells(), 9)
		assert.Equal(t, entity.EmptyCell, snap.Mark)

		_, accepted := submit(t, controller, 0)
		assert.False(t, accepted)
	})

	t.Run("Failed writes keep the local move", func(t *testing.T) {
		store := newStoreMock()
		store.On("ReadRecord", mock.Anything, gameID).Return(newRecord(t, 1), nil)
		store.On("SetPresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		store.On("WriteRecord", mock.Anything, gameID, mock.Anything).Return(errors.New("connection refused"))

		controller := startController(t, Options{Mode: ModeLive, Store: store, GameID: gameID, Identity: playerA})

		snap, accepted := submit(t, controller, 0)

		require.True(t, accepted)
		assert.Equal(t, entity.PlayerX, snap.Board[0])
	})

	t.Run("Finishing the game releases both players and records the match", func(t *testing.T) {
		store := newStoreMock()
		store.On("ReadRecord", mock.Anything, gameID).Return(newRecord(t, 5, 0, 4, 1, 5), nil)
		store.On("SetPresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		store.On("WriteRecord", mock.Anything, gameID, mock.Anything).Return(nil)

		recorder := &recorderMock{}
		recorder.On("RecordMatch", mock.Anything, mock.Anything).Return(nil)

		controller := startController(t, Options{
			Mode:     ModeLive,
			Store:    store,
			GameID:   gameID,
			Identity: playerA,
			Recorder: recorder,
		})

		// When: X completes the top row
		snap, accepted := submit(t, controller, 2)
		require.True(t, accepted)
		assert.Equal(t, entity.OutcomeWinX, snap.Outcome)

		require.NoError(t, controller.Close())

		// Then: both players are back online and a win is recorded once
		store.AssertCalled(t, "SetPresence", mock.Anything, playerA, entity.StatusOnline, "")
		store.AssertCalled(t, "SetPresence", mock.Anything, playerB, entity.StatusOnline, "")
		recorder.AssertNumberOfCalls(t, "RecordMatch", 1)

		store.AssertCalled(t, "WriteRecord", mock.Anything, gameID, mock.MatchedBy(func(patch entity.GamePatch) bool {
			return patch.Outcome == entity.OutcomeWinX && patch.Move != nil && patch.Move.Position == 2
		}))
	})

	t.Run("Reset is not allowed", func(t *testing.T) {
		store := newStoreMock()
		store.On("ReadRecord", mock.Anything, gameID).Return(newRecord(t, 1), nil)
		store.On("SetPresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		controller := startController(t, Options{Mode: ModeLive, Store: store, GameID: gameID, Identity: playerA})

		require.ErrorIs(t, controller.Reset(context.Background()), apperror.ErrNotAllowed)
	})
}

func TestController_Spectator(t *testing.T) {
	t.Run("Scenario E: spectators never write", func(t *testing.T) {
		store := newStoreMock()
		store.On("ReadRecord", mock.Anything, gameID).Return(newRecord(t, 1), nil)
		store.On("SetPresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		controller := startController(t, Options{
			Mode:      ModeLive,
			Store:     store,
			GameID:    gameID,
			Identity:  watcher,
			Spectator: true,
		})

		// When: the spectator taps every cell
		for cell := range 9 {
			_, accepted := submit(t, controller, cell)
			assert.False(t, accepted)
		}

		// Then: remote updates still render
		store.updates <- newRecord(t, 2, 4)
		eventually(t, controller, func(snap Snapshot) bool {
			return snap.Board[4] == entity.PlayerX
		})

		require.NoError(t, controller.Close())

		store.AssertNotCalled(t, "WriteRecord", mock.Anything, mock.Anything, mock.Anything)
		store.AssertCalled(t, "SetPresence", mock.Anything, watcher, entity.StatusSpectating, gameID)
		store.AssertCalled(t, "SetPresence", mock.Anything, watcher, entity.StatusOffline, "")
		assert.True(t, controller.Snapshot().Spectator)
	})
}

func TestController_Replay(t *testing.T) {
	t.Run("Replays a recorded game to the same terminal state", func(t *testing.T) {
		// Given: a recorded draw
		record := newRecord(t, 1, 0, 1, 2, 4, 3, 5, 7, 6, 8)

		controller := startController(t, Options{Mode: ModeLocal})

		// When: it is replayed
		require.NoError(t, controller.Replay(context.Background(), 3, record.Moves, 5*time.Millisecond))

		// Then: moves are ignored while it runs
		_, accepted := submit(t, controller, 0)
		assert.False(t, accepted)

		eventually(t, controller, func(snap Snapshot) bool {
			return !snap.Replaying && len(snap.Moves) == len(record.Moves)
		})

		snap := controller.Snapshot()
		assert.Equal(t, record.Board, snap.Board)
		assert.Equal(t, entity.OutcomeDraw, snap.Outcome)
	})

	t.Run("Rejects move lists that do not alternate", func(t *testing.T) {
		controller := startController(t, Options{Mode: ModeLocal})

		moves := []entity.Move{
			{Position: 0, Mark: entity.PlayerX},
			{Position: 1, Mark: entity.PlayerX},
		}

		err := controller.Replay(context.Background(), 3, moves, time.Millisecond)

		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})

	t.Run("Replaying again restarts from scratch", func(t *testing.T) {
		record := newRecord(t, 1, 0, 4, 1, 5, 2)
		controller := startController(t, Options{Mode: ModeLocal})

		require.NoError(t, controller.Replay(context.Background(), 3, record.Moves, time.Hour))
		require.NoError(t, controller.Replay(context.Background(), 3, record.Moves, time.Millisecond))

		eventually(t, controller, func(snap Snapshot) bool {
			return snap.Outcome == entity.OutcomeWinX
		})
	})
}

func TestController_ReplayModes(t *testing.T) {
	t.Run("Computer sessions refuse to replay", func(t *testing.T) {
		// Given: a computer game where the human plays X
		bot := &botMock{}
		controller := startController(t, Options{Mode: ModeComputer, Bot: bot, ComputerDelay: time.Millisecond})

		// When: a replay ending on the computer's turn is requested
		err := controller.Replay(context.Background(), 3, []entity.Move{{Position: 0, Mark: entity.PlayerX}}, time.Millisecond)

		// Then: it is refused and the human can still open the game
		require.ErrorIs(t, err, apperror.ErrNotAllowed)
		bot.On("ChooseCell", mock.Anything).Return(8, nil).Once()

		_, accepted := submit(t, controller, 0)
		assert.True(t, accepted)
		eventually(t, controller, func(snap Snapshot) bool {
			return len(snap.Moves) == 2
		})
	})

	t.Run("Live sessions refuse to replay", func(t *testing.T) {
		store := newStoreMock()
		store.On("ReadRecord", mock.Anything, gameID).Return(newRecord(t, 1), nil)
		store.On("SetPresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		controller := startController(t, Options{Mode: ModeLive, Store: store, GameID: gameID, Identity: playerA})

		err := controller.Replay(context.Background(), 3, nil, time.Millisecond)

		require.ErrorIs(t, err, apperror.ErrNotAllowed)
	})

	t.Run("A game finished after an unfinished replay is recorded", func(t *testing.T) {
		// Given: a replay that stops with X having played 0 and 1 and O 3 and 4
		recorded := make(chan *entity.MatchRecord, 1)
		recorder := &recorderMock{}
		recorder.On("RecordMatch", mock.Anything, mock.Anything).Return(nil).Once().Run(func(args mock.Arguments) {
			match, _ := args.Get(1).(*entity.MatchRecord)
			recorded <- match
		})

		controller := startController(t, Options{Mode: ModeLocal, Identity: playerA, Recorder: recorder})

		moves := []entity.Move{
			{Position: 0, Mark: entity.PlayerX},
			{Position: 3, Mark: entity.PlayerO},
			{Position: 1, Mark: entity.PlayerX},
			{Position: 4, Mark: entity.PlayerO},
		}
		require.NoError(t, controller.Replay(context.Background(), 3, moves, time.Millisecond))
		eventually(t, controller, func(snap Snapshot) bool {
			return !snap.Replaying && len(snap.Moves) == len(moves)
		})

		// When: X completes the top row
		_, accepted := submit(t, controller, 2)
		require.True(t, accepted)

		// Then: the win is recorded
		var match *entity.MatchRecord
		select {
		case match = <-recorded:
		case <-time.After(waitFor):
			t.Fatal("match was not recorded")
		}

		require.NotNil(t, match)
		assert.Equal(t, entity.OutcomeWinX, match.Outcome)
		assert.Len(t, match.Moves, 5)
	})

	t.Run("A replayed finished game is not recorded again", func(t *testing.T) {
		recorder := &recorderMock{}
		controller := startController(t, Options{Mode: ModeLocal, Identity: playerA, Recorder: recorder})
		record := newRecord(t, 1, 0, 4, 1, 5, 2)

		require.NoError(t, controller.Replay(context.Background(), 3, record.Moves, time.Millisecond))
		eventually(t, controller, func(snap Snapshot) bool {
			return !snap.Replaying && snap.Outcome == entity.OutcomeWinX
		})
		require.NoError(t, controller.Close())

		recorder.AssertNotCalled(t, "RecordMatch", mock.Anything, mock.Anything)
	})
}

func TestController_Updates(t *testing.T) {
	controller := startController(t, Options{Mode: ModeLocal})

	submit(t, controller, 0)

	var last Snapshot
	require.Eventually(t, func() bool {
		select {
		case last = <-controller.Updates():
		default:
		}
		return len(last.Moves) == 1
	}, waitFor, tickStep)

	require.NoError(t, controller.Close())

	// the channel drains and then closes
	for range controller.Updates() {
	}
}
