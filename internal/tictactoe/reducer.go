package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
)

// Action is a user intent forwarded by a renderer.
type Action interface {
	isAction()
}

// Move places the next mark on Cell.
type Move struct {
	Cell int
}

// Jump shows the board at Step.
type Jump struct {
	Step int
}

// Restart replaces the game with an empty one under the same id.
type Restart struct{}

func (Move) isAction()    {}
func (Jump) isAction()    {}
func (Restart) isAction() {}

// Reduce returns the game that results from applying action to game.
func Reduce(game entity.Game, action Action) (entity.Game, error) {
	switch act := action.(type) {
	case Move:
		return game.ApplyMove(act.Cell)
	case Jump:
		return game.JumpTo(act.Step)
	case Restart:
		return entity.NewGame(game.ID()), nil
	default:
		return game, fmt.Errorf("%w: %T", apperror.ErrUnknownAction, action)
	}
}
