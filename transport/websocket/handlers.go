package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/tictactoe"
)

func (that *Server) handleNewGame(ctx context.Context, conn *connection, msg *Message) error {
	log := that.logger.With("method", "handleNewGame")

	game, err := that.games.NewGame(ctx)
	if err != nil {
		log.Error("failed to create game", "error", err)
		return that.sendErrorResponse(conn, msg.Action, "failed to create a new game")
	}

	that.watch(game.ID(), conn)

	log.Info("game started", "gameID", game.ID())

	return that.sendGame(conn, msg.Action, game)
}

func (that *Server) handleJoinGame(ctx context.Context, conn *connection, msg *Message) error {
	log := that.logger.With("method", "handleJoinGame")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		return that.sendErrorResponse(conn, msg.Action, err.Error())
	}

	if payloadReq.GameID == "" {
		return that.sendErrorResponse(conn, msg.Action, "game_id is required")
	}

	unlock := that.lockGame(payloadReq.GameID)
	defer unlock()

	game, err := that.games.GetGame(ctx, payloadReq.GameID)
	if err != nil {
		log.Error("failed to join game", "gameID", payloadReq.GameID, "error", err)
		return that.sendErrorResponse(conn, msg.Action, fmt.Sprintf("game %s: %v", payloadReq.GameID, err))
	}

	that.watch(game.ID(), conn)

	log.Info("watcher joined game", "gameID", game.ID())

	return that.sendGame(conn, msg.Action, game)
}

func (that *Server) handleMove(ctx context.Context, conn *connection, msg *Message) error {
	payloadReq, ok, err := that.watchedPayload(conn, msg)
	if !ok {
		return err
	}

	if payloadReq.Cell == nil {
		return that.sendErrorResponse(conn, msg.Action, "cell is required")
	}

	unlock := that.lockGame(payloadReq.GameID)
	defer unlock()

	game, changed, err := that.games.MakeMove(ctx, payloadReq.GameID, *payloadReq.Cell)

	return that.respond(conn, msg.Action, game, changed, err)
}

func (that *Server) handleJump(ctx context.Context, conn *connection, msg *Message) error {
	payloadReq, ok, err := that.watchedPayload(conn, msg)
	if !ok {
		return err
	}

	if payloadReq.Step == nil {
		return that.sendErrorResponse(conn, msg.Action, "step is required")
	}

	unlock := that.lockGame(payloadReq.GameID)
	defer unlock()

	game, changed, err := that.games.JumpTo(ctx, payloadReq.GameID, *payloadReq.Step)

	return that.respond(conn, msg.Action, game, changed, err)
}

func (that *Server) handleRestart(ctx context.Context, conn *connection, msg *Message) error {
	payloadReq, ok, err := that.watchedPayload(conn, msg)
	if !ok {
		return err
	}

	unlock := that.lockGame(payloadReq.GameID)
	defer unlock()

	game, changed, err := that.games.Restart(ctx, payloadReq.GameID)

	return that.respond(conn, msg.Action, game, changed, err)
}

func (that *Server) handleLeave(ctx context.Context, conn *connection, msg *Message) error {
	payloadReq, ok, err := that.watchedPayload(conn, msg)
	if !ok {
		return err
	}

	that.leave(ctx, payloadReq.GameID, conn)

	return that.sendMessage(conn, msg.Action, Payload{GameID: payloadReq.GameID})
}

// watchedPayload decodes the request and checks that conn watches the game it names.
// When ok is false the client has already been answered and err is the send error.
func (that *Server) watchedPayload(conn *connection, msg *Message) (Payload, bool, error) {
	payloadReq, err := decodePayload(msg)
	if err != nil {
		return Payload{}, false, that.sendErrorResponse(conn, msg.Action, err.Error())
	}

	if payloadReq.GameID == "" {
		return Payload{}, false, that.sendErrorResponse(conn, msg.Action, "game_id is required")
	}

	if !that.isWatching(payloadReq.GameID, conn) {
		return Payload{}, false, that.sendErrorResponse(conn, msg.Action, "join the game first")
	}

	return payloadReq, true, nil
}

// respond answers the requester and, when the game changed, re-displays it for the other watchers.
// Callers hold the game lock so watchers see updates in the order they were applied.
func (that *Server) respond(conn *connection, action string, game entity.Game, changed bool, err error) error {
	log := that.logger.With("method", "respond", "action", action)

	if err != nil {
		log.Warn("action rejected", "error", err)
		return that.sendErrorResponse(conn, action, err.Error())
	}

	if changed {
		that.broadcast(action, game, conn)
	}

	return that.sendGame(conn, action, game)
}

func decodePayload(msg *Message) (Payload, error) {
	var payload Payload

	if len(msg.Payload) == 0 {
		return payload, nil
	}

	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return Payload{}, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return payload, nil
}

func (that *Server) sendGame(conn *connection, action string, game entity.Game) error {
	view := tictactoe.NewView(game)

	return that.sendMessage(conn, action, Payload{GameID: game.ID(), Game: &view})
}

func (that *Server) sendErrorResponse(conn *connection, action, errorMsg string) error {
	if err := that.sendMessage(conn, action, Payload{Error: errorMsg}); err != nil {
		return fmt.Errorf("failed to send error response: %w", err)
	}

	return nil
}

func (that *Server) sendMessage(conn *connection, action string, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	if err = conn.send(Message{Action: action, Payload: data}); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	return nil
}
