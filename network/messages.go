package network

import (
	"encoding/json"

	"github.com/wfunc/royalur/game"
	"github.com/wfunc/royalur/state"
)

type CreateGameRequest struct {
	Seed *int64 `json:"seed,omitempty"`
}

type AttachRequest struct {
	GameID string `json:"game_id"`
}

type MoveRequest struct {
	Move game.Move `json:"move"`
}

type BonusGateRequest struct {
	Earned bool `json:"earned"`
}

// GameView is what clients see of a game after every change.
type GameView struct {
	GameID string      `json:"game_id"`
	State  game.State  `json:"state"`
	Phase  state.Phase `json:"phase"`
}

type RolledEvent struct {
	GameID  string            `json:"game_id"`
	Outcome state.RollOutcome `json:"outcome"`
}

type CapturedEvent struct {
	GameID      string           `json:"game_id"`
	Consequence game.Consequence `json:"consequence"`
}

type PhaseEvent struct {
	GameID string      `json:"game_id"`
	Phase  state.Phase `json:"phase"`
}

type GameOverEvent struct {
	GameID string      `json:"game_id"`
	Winner game.Player `json:"winner"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Sender is anything that can write a packet: a connection or a session.
type Sender interface {
	Send(msgID uint16, data []byte) error
}

// SendJSON encodes v as the payload of msgID. A nil v sends an empty payload.
func SendJSON(to Sender, msgID uint16, v interface{}) error {
	var data []byte
	if v != nil {
		var err error
		if data, err = json.Marshal(v); err != nil {
			return err
		}
	}
	return to.Send(msgID, data)
}

// Unmarshal decodes the JSON payload into v.
func (p *Packet) Unmarshal(v interface{}) error {
	return json.Unmarshal(p.Data, v)
}
