package entity

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/apperror"
)

const (
	StatusDraw = "Draw"

	statusWinnerPrefix = "Winner: "
	statusNextPrefix   = "Next player: "
)

// Game is the state of one session: every board produced so far and the step being shown.
// A Game is never modified after creation; transitions return a new value.
type Game struct {
	id          string
	history     []Board
	currentStep int
}

type gameJSON struct {
	ID          string  `json:"id"`
	History     []Board `json:"history"`
	CurrentStep int     `json:"current_step"`
}

func NewGame(id string) Game {
	return Game{
		id:      id,
		history: []Board{{}},
	}
}

func (that Game) ID() string {
	return that.id
}

func (that Game) CurrentStep() int {
	return that.currentStep
}

func (that Game) HistoryLen() int {
	return len(that.history)
}

// History returns a copy of every board in the game.
func (that Game) History() []Board {
	history := make([]Board, len(that.history))
	copy(history, that.history)

	return history
}

// Current is the board at the current step.
func (that Game) Current() Board {
	if len(that.history) == 0 {
		return Board{}
	}

	return that.history[that.currentStep]
}

// Turn is X on even steps and O on odd ones.
func (that Game) Turn() Cell {
	if that.currentStep%2 == 0 {
		return X
	}

	return O
}

func (that Game) Winner() Cell {
	return CalculateWinner(that.Current())
}

func (that Game) IsDraw() bool {
	board := that.Current()
	return board.IsFull() && CalculateWinner(board) == Empty
}

func (that Game) IsOver() bool {
	return that.Winner() != Empty || that.IsDraw()
}

func (that Game) Status() string {
	if winner := that.Winner(); winner != Empty {
		return statusWinnerPrefix + string(winner)
	}

	if that.IsDraw() {
		return StatusDraw
	}

	return statusNextPrefix + string(that.Turn())
}

// ApplyMove places the mark of the player to move at index.
// Clicking a filled cell or playing after a win leaves the game as it is.
// Any history past the current step is discarded.
func (that Game) ApplyMove(index int) (Game, error) {
	if index < 0 || index >= BoardSize {
		return that, fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, index)
	}

	if len(that.history) == 0 {
		that = NewGame(that.id)
	}

	board := that.Current()
	if CalculateWinner(board) != Empty || board[index] != Empty {
		return that, nil
	}

	history := make([]Board, that.currentStep+1, that.currentStep+2)
	copy(history, that.history[:that.currentStep+1])
	history = append(history, board.Place(index, that.Turn()))

	return Game{
		id:          that.id,
		history:     history,
		currentStep: that.currentStep + 1,
	}, nil
}

// JumpTo shows the board at step without touching the history.
func (that Game) JumpTo(step int) (Game, error) {
	if step < 0 || step >= len(that.history) {
		return that, fmt.Errorf("%w: step %d of %d", apperror.ErrInvalidStep, step, len(that.history))
	}

	that.currentStep = step

	return that, nil
}

func (that Game) Equal(other Game) bool {
	if that.id != other.id || that.currentStep != other.currentStep || len(that.history) != len(other.history) {
		return false
	}

	for i := range that.history {
		if that.history[i] != other.history[i] {
			return false
		}
	}

	return true
}

func (that Game) MarshalJSON() ([]byte, error) {
	return json.Marshal(gameJSON{
		ID:          that.id,
		History:     that.history,
		CurrentStep: that.currentStep,
	})
}

func (that *Game) UnmarshalJSON(data []byte) error {
	var raw gameJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal game: %w", err)
	}

	if len(raw.History) == 0 {
		return fmt.Errorf("%w: empty history", apperror.ErrCorruptedGame)
	}

	if raw.History[0] != (Board{}) {
		return fmt.Errorf("%w: first board is not empty", apperror.ErrCorruptedGame)
	}

	if raw.CurrentStep < 0 || raw.CurrentStep >= len(raw.History) {
		return fmt.Errorf("%w: step %d out of range", apperror.ErrCorruptedGame, raw.CurrentStep)
	}

	for i, board := range raw.History {
		if err := board.Validate(); err != nil {
			return fmt.Errorf("%w: board %d: %w", apperror.ErrCorruptedGame, i, err)
		}
	}

	*that = Game{
		id:          raw.ID,
		history:     raw.History,
		currentStep: raw.CurrentStep,
	}

	return nil
}
