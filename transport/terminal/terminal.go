package terminal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/tictactoe"
)

// Screen layout, in terminal cells.
const (
	statusY  = 0
	boardX   = 2
	boardY   = 2
	cellW    = 4
	cellH    = 2
	historyX = 20
	helpY    = boardY + entity.BoardSize + 3

	helpText = "1-9/click: move  <-/->: step  n: restart  q: quit"
)

var (
	styleDefault  = tcell.StyleDefault
	styleDisabled = tcell.StyleDefault.Dim(true)
	styleCurrent  = tcell.StyleDefault.Bold(true).Reverse(true)
	styleStatus   = tcell.StyleDefault.Bold(true)
	styleMark     = map[entity.Cell]tcell.Style{
		entity.X: tcell.StyleDefault.Bold(true).Foreground(tcell.ColorRed),
		entity.O: tcell.StyleDefault.Bold(true).Foreground(tcell.ColorBlue),
	}
)

// App renders a local hot-seat game and forwards key presses and clicks to the store.
type App struct {
	logger *slog.Logger
	screen tcell.Screen
	store  *tictactoe.Store

	buttons tcell.ButtonMask
}

func New(logger *slog.Logger, screen tcell.Screen, store *tictactoe.Store) *App {
	return &App{
		logger: logger.With("component", "terminal"),
		screen: screen,
		store:  store,
	}
}

// Run draws the game and processes events until the player quits or ctx is done.
// The screen must already be initialised.
func (that *App) Run(ctx context.Context) error {
	that.screen.EnableMouse()

	unsubscribe := that.store.Subscribe(that.Draw)
	defer unsubscribe()

	that.Draw(that.store.State())

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			if err := that.screen.PostEvent(tcell.NewEventInterrupt(ctx.Err())); err != nil {
				that.logger.Error("failed to post interrupt", "error", err)
			}
		case <-done:
		}
	}()

	for {
		ev := that.screen.PollEvent()
		if ev == nil {
			return nil
		}

		if !that.HandleEvent(ev) {
			return nil
		}
	}
}

// HandleEvent applies one screen event and reports whether the app keeps running.
func (that *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventInterrupt:
		return false
	case *tcell.EventResize:
		that.screen.Sync()
		that.Draw(that.store.State())
	case *tcell.EventKey:
		return that.handleKey(ev)
	case *tcell.EventMouse:
		that.handleMouse(ev)
	}

	return true
}

func (that *App) handleKey(ev *tcell.EventKey) bool {
	game := that.store.State()

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyLeft:
		if game.CurrentStep() > 0 {
			that.dispatch(tictactoe.Jump{Step: game.CurrentStep() - 1})
		}
	case tcell.KeyRight:
		if game.CurrentStep() < game.HistoryLen()-1 {
			that.dispatch(tictactoe.Jump{Step: game.CurrentStep() + 1})
		}
	case tcell.KeyRune:
		switch r := ev.Rune(); {
		case r == 'q':
			return false
		case r == 'n':
			that.dispatch(tictactoe.Restart{})
		case r >= '1' && r <= '9':
			that.dispatch(tictactoe.Move{Cell: int(r - '1')})
		}
	}

	return true
}

// handleMouse reacts to the press edge of the primary button only.
func (that *App) handleMouse(ev *tcell.EventMouse) {
	pressed := ev.Buttons()&tcell.Button1 != 0 && that.buttons&tcell.Button1 == 0
	that.buttons = ev.Buttons()

	if !pressed {
		return
	}

	x, y := ev.Position()

	if cell, ok := cellAt(x, y); ok {
		that.dispatch(tictactoe.Move{Cell: cell})
		return
	}

	if step, ok := stepAt(x, y, that.store.State().HistoryLen()); ok {
		that.dispatch(tictactoe.Jump{Step: step})
	}
}

func (that *App) dispatch(action tictactoe.Action) {
	if _, err := that.store.Dispatch(action); err != nil {
		that.logger.Warn("action rejected", "action", fmt.Sprintf("%T", action), "error", err)
	}
}

// Draw repaints the whole screen for game.
func (that *App) Draw(game entity.Game) {
	view := tictactoe.NewView(game)

	that.screen.Clear()

	that.drawText(0, statusY, styleStatus, view.Status)

	for i, mark := range view.Board {
		x := boardX + (i%3)*cellW
		y := boardY + (i/3)*cellH

		switch {
		case mark != entity.Empty:
			that.drawText(x, y, styleDefault, "[ ]")
			that.drawText(x+1, y, styleMark[mark], string(mark))
		case game.IsOver():
			that.drawText(x, y, styleDisabled, "[ ]")
		default:
			that.drawText(x, y, styleDisabled, fmt.Sprintf("[%d]", i+1))
		}
	}

	for step, label := range view.Moves {
		style, prefix := styleDefault, "  "
		if step == view.CurrentStep {
			style, prefix = styleCurrent, "> "
		}

		that.drawText(historyX, boardY+step, style, prefix+label)
	}

	that.drawText(0, helpY, styleDisabled, helpText)

	that.screen.Show()
}

func (that *App) drawText(x, y int, style tcell.Style, text string) {
	for _, r := range text {
		that.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// cellAt maps a screen position to the board cell drawn there.
func cellAt(x, y int) (int, bool) {
	dx, dy := x-boardX, y-boardY
	if dx < 0 || dy < 0 || dx%cellW > 2 || dy%cellH != 0 {
		return 0, false
	}

	col, row := dx/cellW, dy/cellH
	if col > 2 || row > 2 {
		return 0, false
	}

	return row*3 + col, true
}

// stepAt maps a screen position to the history line drawn there.
func stepAt(x, y, historyLen int) (int, bool) {
	step := y - boardY
	if x < historyX || step < 0 || step >= historyLen {
		return 0, false
	}

	return step, true
}
