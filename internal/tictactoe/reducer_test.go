package tictactoe

import (
	"testing"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unknownAction struct{}

func (unknownAction) isAction() {}

func reduceAll(t *testing.T, game entity.Game, actions ...Action) entity.Game {
	t.Helper()

	for _, action := range actions {
		next, err := Reduce(game, action)
		require.NoError(t, err)

		game = next
	}

	return game
}

func TestReduce(t *testing.T) {
	t.Run("Move after a win is ignored", func(t *testing.T) {
		// Given: X completes the 0-3-6 column
		game := reduceAll(t, entity.NewGame("g1"), Move{0}, Move{1}, Move{3}, Move{4}, Move{6})
		require.Equal(t, entity.X, game.Winner())

		// When: another move arrives
		next, err := Reduce(game, Move{Cell: 2})

		// Then: the board and step do not change
		require.NoError(t, err)
		assert.Equal(t, game.Current(), next.Current())
		assert.Equal(t, game.CurrentStep(), next.CurrentStep())
	})

	t.Run("Jump then move discards the future", func(t *testing.T) {
		// Given: three moves then a jump to step 1
		game := reduceAll(t, entity.NewGame("g1"), Move{0}, Move{1}, Move{2}, Jump{1})
		require.Equal(t, entity.Board{0: entity.X}, game.Current())

		// When: the player to move (O) picks the center
		game = reduceAll(t, game, Move{4})

		// Then: the old step 2 is gone
		assert.Equal(t, 3, game.HistoryLen())
		assert.Equal(t, entity.Board{0: entity.X, 4: entity.O}, game.Current())
	})

	t.Run("Jump never changes history length", func(t *testing.T) {
		game := reduceAll(t, entity.NewGame("g1"), Move{0}, Move{1}, Move{2})

		for step := 0; step < game.HistoryLen(); step++ {
			jumped := reduceAll(t, game, Jump{step})
			assert.Equal(t, game.HistoryLen(), jumped.HistoryLen())
			assert.Equal(t, step, jumped.CurrentStep())
		}
	})

	t.Run("Restart keeps the id and clears the board", func(t *testing.T) {
		game := reduceAll(t, entity.NewGame("g1"), Move{0}, Move{1}, Restart{})

		assert.True(t, game.Equal(entity.NewGame("g1")))
	})

	t.Run("Out of range values are reported", func(t *testing.T) {
		game := entity.NewGame("g1")

		_, err := Reduce(game, Move{Cell: 12})
		require.ErrorIs(t, err, apperror.ErrInvalidCell)

		_, err = Reduce(game, Jump{Step: 3})
		require.ErrorIs(t, err, apperror.ErrInvalidStep)
	})

	t.Run("Unknown action", func(t *testing.T) {
		game := entity.NewGame("g1")

		next, err := Reduce(game, unknownAction{})

		require.ErrorIs(t, err, apperror.ErrUnknownAction)
		assert.True(t, next.Equal(game))
	})
}

func TestNewView(t *testing.T) {
	t.Run("Fresh game", func(t *testing.T) {
		view := NewView(entity.NewGame("g1"))

		assert.Equal(t, View{
			ID:         "g1",
			HistoryLen: 1,
			NextPlayer: entity.X,
			Status:     "Next player: X",
			Moves:      []string{"Go to game start"},
		}, view)
	})

	t.Run("Rewound won game", func(t *testing.T) {
		// Given: X wins and the player jumps back two steps
		game := reduceAll(t, entity.NewGame("g1"), Move{0}, Move{1}, Move{3}, Move{4}, Move{6})
		won := NewView(game)
		rewound := NewView(reduceAll(t, game, Jump{3}))

		// Then: the winning view announces X
		assert.Equal(t, entity.X, won.Winner)
		assert.Equal(t, "Winner: X", won.Status)

		// Then: the rewound view shows step 3 with O to move and all jump labels
		assert.Equal(t, entity.Empty, rewound.Winner)
		assert.Equal(t, entity.O, rewound.NextPlayer)
		assert.Equal(t, "Next player: O", rewound.Status)
		assert.Equal(t, 3, rewound.CurrentStep)
		assert.Len(t, rewound.Moves, 6)
		assert.Equal(t, "Go to move #5", rewound.Moves[5])
	})
}
