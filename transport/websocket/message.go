package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/tictactoe"
)

const (
	actionNewGame = "game:new"
	actionJoin    = "game:join"
	actionMove    = "game:move"
	actionJump    = "game:jump"
	actionRestart = "game:restart"
	actionLeave   = "game:leave"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Payload struct {
	GameID string          `json:"game_id,omitempty"`
	Cell   *int            `json:"cell,omitempty"`
	Step   *int            `json:"step,omitempty"`
	Game   *tictactoe.View `json:"game,omitempty"`
	Error  string          `json:"error,omitempty"`
}
