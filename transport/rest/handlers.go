package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/repository"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/tictactoe"
)

type Handlers interface {
	Ping(w http.ResponseWriter, r *http.Request)
	GetGame(w http.ResponseWriter, r *http.Request)
}

type gameReader interface {
	GetGame(ctx context.Context, id string) (entity.Game, error)
}

var _ Handlers = (*handlers)(nil)

type handlers struct {
	logger *slog.Logger
	games  gameReader
}

func NewHandlers(logger *slog.Logger, games gameReader) Handlers {
	return &handlers{
		logger: logger.With("component", "rest"),
		games:  games,
	}
}

// GetGame - returns the current view of a game session.
func (that *handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "GetGame")

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "game id is required", http.StatusBadRequest)
		return
	}

	game, err := that.games.GetGame(r.Context(), id)
	if errors.Is(err, repository.ErrGameNotFound) {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}

	if err != nil {
		log.Error("failed to get game", "gameID", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err = json.NewEncoder(w).Encode(tictactoe.NewView(game)); err != nil {
		log.Error("failed to encode game", "gameID", id, "error", err)
	}
}
