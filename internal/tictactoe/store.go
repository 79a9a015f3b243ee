package tictactoe

import (
	"sync"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
)

// Listener is called with the new game after every dispatch that changed it.
type Listener func(game entity.Game)

type subscription struct {
	id       int
	listener Listener
}

// Store owns the game of a single session and publishes every change to its listeners.
type Store struct {
	mu            sync.Mutex
	game          entity.Game
	subscriptions []subscription
	nextID        int
}

func NewStore(game entity.Game) *Store {
	return &Store{
		game: game,
	}
}

func (that *Store) State() entity.Game {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.game
}

// Subscribe registers listener and returns a function that removes it.
func (that *Store) Subscribe(listener Listener) func() {
	that.mu.Lock()
	defer that.mu.Unlock()

	id := that.nextID
	that.nextID++
	that.subscriptions = append(that.subscriptions, subscription{id: id, listener: listener})

	return func() {
		that.mu.Lock()
		defer that.mu.Unlock()

		for i, sub := range that.subscriptions {
			if sub.id == id {
				that.subscriptions = append(that.subscriptions[:i:i], that.subscriptions[i+1:]...)
				return
			}
		}
	}
}

// Dispatch reduces action against the current game. Listeners run after the lock is
// released, in subscription order, and only when the game changed.
func (that *Store) Dispatch(action Action) (entity.Game, error) {
	that.mu.Lock()

	next, err := Reduce(that.game, action)
	if err != nil {
		game := that.game
		that.mu.Unlock()

		return game, err
	}

	if next.Equal(that.game) {
		that.mu.Unlock()
		return next, nil
	}

	that.game = next
	subscriptions := make([]subscription, len(that.subscriptions))
	copy(subscriptions, that.subscriptions)
	that.mu.Unlock()

	for _, sub := range subscriptions {
		sub.listener(next)
	}

	return next, nil
}
