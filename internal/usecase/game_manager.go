package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/tictactoe"
)

type gameRepo interface {
	CreateOrUpdate(ctx context.Context, game entity.Game) error
	GetByID(ctx context.Context, id string) (entity.Game, error)
	DeleteByID(ctx context.Context, id string) error
}

// GameManager owns the server-side sessions. Transitions are serialised so each
// event is applied to the latest stored game before the next one is read.
type GameManager struct {
	logger   *slog.Logger
	gameRepo gameRepo

	mu sync.Mutex
}

func NewGameManager(logger *slog.Logger, gameRepo gameRepo) *GameManager {
	return &GameManager{
		logger: logger.With("component", "game_manager"),

		gameRepo: gameRepo,
	}
}

func (that *GameManager) NewGame(ctx context.Context) (entity.Game, error) {
	game := entity.NewGame(pkg.GenerateGameID())

	if err := that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return entity.Game{}, fmt.Errorf("failed to create game: %w", err)
	}

	that.logger.Info("game created", "gameID", game.ID())

	return game, nil
}

func (that *GameManager) GetGame(ctx context.Context, id string) (entity.Game, error) {
	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return entity.Game{}, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// MakeMove applies a move and reports whether the game changed.
func (that *GameManager) MakeMove(ctx context.Context, id string, cell int) (entity.Game, bool, error) {
	return that.dispatch(ctx, id, tictactoe.Move{Cell: cell})
}

// JumpTo moves the game to step and reports whether the game changed.
func (that *GameManager) JumpTo(ctx context.Context, id string, step int) (entity.Game, bool, error) {
	return that.dispatch(ctx, id, tictactoe.Jump{Step: step})
}

// Restart empties the board and reports whether the game changed.
func (that *GameManager) Restart(ctx context.Context, id string) (entity.Game, bool, error) {
	return that.dispatch(ctx, id, tictactoe.Restart{})
}

// EndGame deletes the game once its session is over.
func (that *GameManager) EndGame(ctx context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.gameRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	that.logger.Info("game ended", "gameID", id)

	return nil
}

func (that *GameManager) dispatch(ctx context.Context, id string, action tictactoe.Action) (entity.Game, bool, error) {
	log := that.logger.With("method", "dispatch", "gameID", id)

	that.mu.Lock()
	defer that.mu.Unlock()

	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return entity.Game{}, false, fmt.Errorf("failed to get game: %w", err)
	}

	next, err := tictactoe.Reduce(game, action)
	if err != nil {
		return game, false, fmt.Errorf("failed to apply %T: %w", action, err)
	}

	if next.Equal(game) {
		log.Debug("action did not change the game", "action", fmt.Sprintf("%+v", action))
		return game, false, nil
	}

	if err = that.gameRepo.CreateOrUpdate(ctx, next); err != nil {
		return game, false, fmt.Errorf("failed to update game: %w", err)
	}

	log.Debug("game updated", "step", next.CurrentStep(), "board", next.Current().String())

	return next, true, nil
}
