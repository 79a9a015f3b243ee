package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
)

const (
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

type gameManager interface {
	NewGame(ctx context.Context) (entity.Game, error)
	GetGame(ctx context.Context, id string) (entity.Game, error)
	MakeMove(ctx context.Context, id string, cell int) (entity.Game, bool, error)
	JumpTo(ctx context.Context, id string, step int) (entity.Game, bool, error)
	Restart(ctx context.Context, id string) (entity.Game, bool, error)
	EndGame(ctx context.Context, id string) error
}

type handlerFunc func(ctx context.Context, conn *connection, message *Message) error

// connection serialises writes, since broadcasts reach it from other connections' goroutines.
type connection struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (that *connection) send(message Message) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := that.ws.WriteJSON(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

type gameLock struct {
	mu   sync.Mutex
	refs int
}

type Server struct {
	logger   *slog.Logger
	games    gameManager
	upgrader websocket.Upgrader

	handlers map[string]handlerFunc

	watchersMutex sync.RWMutex
	watchers      map[string]map[*connection]struct{}

	locksMutex sync.Mutex
	locks      map[string]*gameLock
}

func New(logger *slog.Logger, games gameManager, allowedOrigins []string) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		games:  games,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin(allowedOrigins),
		},

		handlers: make(map[string]handlerFunc),
		watchers: make(map[string]map[*connection]struct{}),
		locks:    make(map[string]*gameLock),
	}

	server.handlers[actionNewGame] = server.handleNewGame
	server.handlers[actionJoin] = server.handleJoinGame
	server.handlers[actionMove] = server.handleMove
	server.handlers[actionJump] = server.handleJump
	server.handlers[actionRestart] = server.handleRestart
	server.handlers[actionLeave] = server.handleLeave

	return server
}

// Handler serves the /ws endpoint. Sessions use ctx for every game operation.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveWS(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down websocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// serveWS - upgrades the connection to WebSocket and processes its messages until it closes.
func (that *Server) serveWS(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveWS")

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	conn := &connection{ws: ws}

	defer func() {
		that.disconnect(ctx, conn)

		if err = ws.Close(); err != nil {
			log.Debug("failed to close connection", "error", err)
		}
	}()

	log.Info("WebSocket connection established", "remote", req.RemoteAddr)

	that.handleMessages(ctx, conn)
}

// handleMessages - processes messages from the client.
func (that *Server) handleMessages(ctx context.Context, conn *connection) {
	log := that.logger.With("method", "handleMessages")

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("error reading message", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)

			if err = that.sendErrorResponse(conn, message.Action, "unknown action"); err != nil {
				log.Error("failed to send error response", "error", err)
			}
			continue
		}

		if err = handler(ctx, conn, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// lockGame serialises the transitions, joins and leaves of one game together
// with the messages they publish. The returned func releases the lock.
func (that *Server) lockGame(gameID string) func() {
	that.locksMutex.Lock()
	lock, ok := that.locks[gameID]
	if !ok {
		lock = &gameLock{}
		that.locks[gameID] = lock
	}
	lock.refs++
	that.locksMutex.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		that.locksMutex.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(that.locks, gameID)
		}
		that.locksMutex.Unlock()
	}
}

func (that *Server) watch(gameID string, conn *connection) {
	that.watchersMutex.Lock()
	defer that.watchersMutex.Unlock()

	if that.watchers[gameID] == nil {
		that.watchers[gameID] = make(map[*connection]struct{})
	}

	that.watchers[gameID][conn] = struct{}{}
}

func (that *Server) isWatching(gameID string, conn *connection) bool {
	that.watchersMutex.RLock()
	defer that.watchersMutex.RUnlock()

	_, ok := that.watchers[gameID][conn]

	return ok
}

// unwatch reports whether conn was the last watcher of the game.
func (that *Server) unwatch(gameID string, conn *connection) bool {
	that.watchersMutex.Lock()
	defer that.watchersMutex.Unlock()

	watchers, ok := that.watchers[gameID]
	if !ok {
		return false
	}

	if _, ok = watchers[conn]; !ok {
		return false
	}

	delete(watchers, conn)
	if len(watchers) > 0 {
		return false
	}

	delete(that.watchers, gameID)

	return true
}

// disconnect ends every session whose last watcher was conn.
func (that *Server) disconnect(ctx context.Context, conn *connection) {
	log := that.logger.With("method", "disconnect")

	that.watchersMutex.RLock()
	var gameIDs []string
	for gameID, watchers := range that.watchers {
		if _, ok := watchers[conn]; ok {
			gameIDs = append(gameIDs, gameID)
		}
	}
	that.watchersMutex.RUnlock()

	for _, gameID := range gameIDs {
		that.leave(ctx, gameID, conn)
	}

	log.Info("connection closed", "games", len(gameIDs))
}

func (that *Server) leave(ctx context.Context, gameID string, conn *connection) {
	unlock := that.lockGame(gameID)
	defer unlock()

	if !that.unwatch(gameID, conn) {
		return
	}

	if err := that.games.EndGame(ctx, gameID); err != nil {
		that.logger.Error("failed to end game", "gameID", gameID, "error", err)
	}
}

// broadcast sends the game to every watcher except skip.
func (that *Server) broadcast(action string, game entity.Game, skip *connection) {
	log := that.logger.With("method", "broadcast", "gameID", game.ID())

	that.watchersMutex.RLock()
	conns := make([]*connection, 0, len(that.watchers[game.ID()]))
	for conn := range that.watchers[game.ID()] {
		if conn != skip {
			conns = append(conns, conn)
		}
	}
	that.watchersMutex.RUnlock()

	for _, conn := range conns {
		if err := that.sendGame(conn, action, game); err != nil {
			log.Error("failed to send game update", "error", err)
		}
	}
}

func checkOrigin(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowedOrigins, origin) {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil {
			return false
		}

		return strings.EqualFold(u.Host, r.Host)
	}
}
