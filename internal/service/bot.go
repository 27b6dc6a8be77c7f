package service

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

var ErrNoAvailableMoves = errors.New("no available moves")

// BotService picks the computer's next cell.
type BotService interface {
	ChooseCell(board entity.Board) (int, error)
}

type botService struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewBotService returns the random opponent: every empty cell is equally likely.
func NewBotService() BotService {
	return NewSeededBotService(time.Now().UnixNano())
}

func NewSeededBotService(seed int64) BotService {
	return &botService{
		rnd: rand.New(rand.NewSource(seed)), //nolint: gosec // it's ok
	}
}

func (that *botService) ChooseCell(board entity.Board) (int, error) {
	availableCells := board.EmptyCells()
	if len(availableCells) == 0 {
		return -1, ErrNoAvailableMoves
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	return availableCells[that.rnd.Intn(len(availableCells))], nil
}
