// models/models.go
package models

import (
	"time"

	"github.com/wfunc/royalur/state"
)

// GameRecord is the stored snapshot of a live game. It is overwritten after
// every accepted operation and removed once the game is over.
type GameRecord struct {
	GameID    string         `json:"game_id"`
	Phase     string         `json:"phase"`
	Snapshot  state.Snapshot `json:"snapshot"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewGameRecord wraps a snapshot for storage.
func NewGameRecord(gameID string, snap state.Snapshot) GameRecord {
	now := time.Now().UTC()
	return GameRecord{
		GameID:    gameID,
		Phase:     snap.Phase.Kind.String(),
		Snapshot:  snap,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
