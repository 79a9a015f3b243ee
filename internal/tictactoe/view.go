package tictactoe

import (
	"strconv"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
)

const labelGameStart = "Go to game start"

// View is what a renderer needs to display one game.
type View struct {
	ID          string       `json:"id"`
	Board       entity.Board `json:"board"`
	CurrentStep int          `json:"current_step"`
	HistoryLen  int          `json:"history_len"`
	NextPlayer  entity.Cell  `json:"next_player"`
	Winner      entity.Cell  `json:"winner"`
	Draw        bool         `json:"draw"`
	Status      string       `json:"status"`
	Moves       []string     `json:"moves"`
}

func NewView(game entity.Game) View {
	moves := make([]string, game.HistoryLen())
	for step := range moves {
		moves[step] = MoveLabel(step)
	}

	return View{
		ID:          game.ID(),
		Board:       game.Current(),
		CurrentStep: game.CurrentStep(),
		HistoryLen:  game.HistoryLen(),
		NextPlayer:  game.Turn(),
		Winner:      game.Winner(),
		Draw:        game.IsDraw(),
		Status:      game.Status(),
		Moves:       moves,
	}
}

// MoveLabel is the caption of the jump control for step.
func MoveLabel(step int) string {
	if step == 0 {
		return labelGameStart
	}

	return "Go to move #" + strconv.Itoa(step)
}
