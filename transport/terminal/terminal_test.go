package terminal

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/tictactoe"
)

func newTestApp(t *testing.T) (*App, tcell.SimulationScreen, *tictactoe.Store) {
	t.Helper()

	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(80, 20)
	t.Cleanup(screen.Fini)

	store := tictactoe.NewStore(entity.NewGame("local"))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app := New(logger, screen, store)
	unsubscribe := store.Subscribe(app.Draw)
	t.Cleanup(unsubscribe)

	app.Draw(store.State())

	return app, screen, store
}

func line(screen tcell.SimulationScreen, y int) string {
	cells, width, _ := screen.GetContents()

	var sb strings.Builder
	for x := range width {
		runes := cells[y*width+x].Runes
		if len(runes) == 0 {
			sb.WriteRune(' ')
			continue
		}
		sb.WriteRune(runes[0])
	}

	return strings.TrimRight(sb.String(), " ")
}

// row is a screen line with board text on the left and a history line at historyX.
func row(board, history string) string {
	if history == "" {
		return board
	}

	return board + strings.Repeat(" ", historyX-len(board)) + history
}

func key(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func click(app *App, x, y int) {
	app.HandleEvent(tcell.NewEventMouse(x, y, tcell.Button1, tcell.ModNone))
	app.HandleEvent(tcell.NewEventMouse(x, y, tcell.ButtonNone, tcell.ModNone))
}

func TestApp_Draw(t *testing.T) {
	_, screen, _ := newTestApp(t)

	assert.Equal(t, "Next player: X", line(screen, statusY))
	assert.Equal(t, row("  [1] [2] [3]", "> Go to game start"), line(screen, boardY))
	assert.Equal(t, "", line(screen, boardY+1))
	assert.Equal(t, "  [4] [5] [6]", line(screen, boardY+cellH))
	assert.Equal(t, "  [7] [8] [9]", line(screen, boardY+2*cellH))
	assert.Equal(t, helpText, line(screen, helpY))
}

func TestApp_KeyMoves(t *testing.T) {
	app, screen, store := newTestApp(t)

	// When: X presses 5 and O presses 1
	assert.True(t, app.HandleEvent(key('5')))
	assert.True(t, app.HandleEvent(key('1')))

	// Then: both marks are placed and the screen shows them
	game := store.State()
	assert.Equal(t, entity.X, game.Current()[4])
	assert.Equal(t, entity.O, game.Current()[0])
	assert.Equal(t, "Next player: X", line(screen, statusY))
	assert.Equal(t, row("  [O] [2] [3]", "  Go to game start"), line(screen, boardY))
	assert.Equal(t, row("", "  Go to move #1"), line(screen, boardY+1))
	assert.Equal(t, row("  [4] [X] [6]", "> Go to move #2"), line(screen, boardY+cellH))

	// When: O presses an occupied cell
	app.HandleEvent(key('5'))

	// Then: nothing changes
	assert.Equal(t, game, store.State())
}

func TestApp_StepKeys(t *testing.T) {
	app, _, store := newTestApp(t)

	for _, r := range "123" {
		app.HandleEvent(key(r))
	}

	// When: stepping back twice
	app.HandleEvent(tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone))
	app.HandleEvent(tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone))

	// Then: step 1 is shown and history is kept
	assert.Equal(t, 1, store.State().CurrentStep())
	assert.Equal(t, 4, store.State().HistoryLen())

	// When: stepping past the start and back past the end
	for range 5 {
		app.HandleEvent(tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone))
	}
	assert.Equal(t, 0, store.State().CurrentStep())

	for range 5 {
		app.HandleEvent(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone))
	}
	assert.Equal(t, 3, store.State().CurrentStep())
}

func TestApp_Mouse(t *testing.T) {
	app, screen, store := newTestApp(t)

	// When: clicking the center cell
	click(app, boardX+cellW+1, boardY+cellH)

	// Then: X is placed there
	assert.Equal(t, entity.X, store.State().Current()[4])

	// When: clicking the bottom-right cell and then between cells
	click(app, boardX+2*cellW, boardY+2*cellH)
	click(app, boardX+3, boardY)
	click(app, boardX, boardY+1)

	// Then: only the cell click counts
	assert.Equal(t, entity.O, store.State().Current()[8])
	assert.Equal(t, 3, store.State().HistoryLen())

	// When: clicking the "Go to game start" line
	click(app, historyX+2, boardY)

	// Then: the empty board is shown and the moves remain
	assert.Equal(t, entity.Board{}, store.State().Current())
	assert.Equal(t, 3, store.State().HistoryLen())
	assert.Equal(t, row("  [1] [2] [3]", "> Go to game start"), line(screen, boardY))

	// When: a held button is dragged over a cell
	app.HandleEvent(tcell.NewEventMouse(boardX, boardY, tcell.Button1, tcell.ModNone))
	app.HandleEvent(tcell.NewEventMouse(boardX+cellW, boardY, tcell.Button1, tcell.ModNone))

	// Then: only the press places a mark
	assert.Equal(t, entity.Board{0: entity.X}, store.State().Current())
	assert.Equal(t, 2, store.State().HistoryLen())
}

func TestApp_WinAndRestart(t *testing.T) {
	app, screen, store := newTestApp(t)

	for _, r := range "14273" {
		app.HandleEvent(key(r))
	}

	// Then: X has won and empty cells lose their numbers
	assert.Equal(t, "Winner: X", line(screen, statusY))
	assert.Equal(t, "  [X] [X] [X]", line(screen, boardY)[:13])
	assert.Equal(t, "  [O] [ ] [ ]", line(screen, boardY+cellH)[:13])
	assert.Equal(t, "  [O] [ ] [ ]", line(screen, boardY+2*cellH)[:13])

	// When: a cell is pressed after the win
	app.HandleEvent(key('9'))

	// Then: the game is unchanged
	assert.Equal(t, 6, store.State().HistoryLen())

	// When: restarting
	app.HandleEvent(key('n'))

	// Then: the game starts over under the same id
	assert.Equal(t, entity.NewGame("local"), store.State())
	assert.Equal(t, "Next player: X", line(screen, statusY))
}

func TestApp_Quit(t *testing.T) {
	app, _, _ := newTestApp(t)

	assert.False(t, app.HandleEvent(key('q')))
	assert.False(t, app.HandleEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
	assert.False(t, app.HandleEvent(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModNone)))
	assert.False(t, app.HandleEvent(tcell.NewEventInterrupt(nil)))
}

func TestApp_Run(t *testing.T) {
	t.Run("Quit key", func(t *testing.T) {
		app, screen, store := newTestApp(t)

		errCh := make(chan error, 1)
		go func() { errCh <- app.Run(context.Background()) }()

		screen.InjectKey(tcell.KeyRune, '5', tcell.ModNone)
		screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

		select {
		case err := <-errCh:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return after q")
		}

		assert.Equal(t, entity.X, store.State().Current()[4])
	})

	t.Run("Context cancel", func(t *testing.T) {
		app, _, _ := newTestApp(t)

		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() { errCh <- app.Run(ctx) }()

		cancel()

		select {
		case err := <-errCh:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
	})
}

func TestCellAt(t *testing.T) {
	tests := []struct {
		name string
		x, y int
		cell int
		ok   bool
	}{
		{name: "Top left bracket", x: boardX, y: boardY, cell: 0, ok: true},
		{name: "Top right mark", x: boardX + 2*cellW + 1, y: boardY, cell: 2, ok: true},
		{name: "Bottom middle", x: boardX + cellW + 2, y: boardY + 2*cellH, cell: 7, ok: true},
		{name: "Gap between cells", x: boardX + 3, y: boardY},
		{name: "Gap between rows", x: boardX, y: boardY + 1},
		{name: "Left of board", x: boardX - 1, y: boardY},
		{name: "Right of board", x: boardX + 3*cellW, y: boardY},
		{name: "Below board", x: boardX, y: boardY + 3*cellH},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cell, ok := cellAt(tt.x, tt.y)

			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.cell, cell)
			}
		})
	}
}
