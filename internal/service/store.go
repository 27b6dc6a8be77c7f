package service

// GameStore is the external store a live session reads, writes and watches.
type GameStore struct {
	GameService
	PresenceService
}

func NewGameStore(games GameService, presence PresenceService) *GameStore {
	return &GameStore{
		GameService:     games,
		PresenceService: presence,
	}
}
