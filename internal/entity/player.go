package entity

import "time"

type PresenceStatus string

const (
	StatusOnline     PresenceStatus = "online"
	StatusInGame     PresenceStatus = "in_game"
	StatusIdle       PresenceStatus = "idle"
	StatusSpectating PresenceStatus = "spectating"
	StatusOffline    PresenceStatus = "offline"
)

// Presence is the lobby view of an identity.
type Presence struct {
	ID            string         `json:"id"`
	Username      string         `json:"username,omitempty"`
	Status        PresenceStatus `json:"status"`
	CurrentGameID string         `json:"current_game_id,omitempty"`
	LastSeen      time.Time      `json:"last_seen"`
}

func (that *Presence) IsInGame() bool {
	return that.Status == StatusInGame && that.CurrentGameID != ""
}
