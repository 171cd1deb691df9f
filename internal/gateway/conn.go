package gateway

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/apperrors"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/session"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/observability"
)

// conn is one websocket client. readLoop owns joined; writeLoop is the
// only writer to ws.
type conn struct {
	srv         *Server
	ws          *websocket.Conn
	participant *session.Participant
	joined      map[string]struct{}
	logger      *zap.Logger
}

// readLoop decodes client messages until the connection fails, then leaves
// every joined session and closes the participant, which ends writeLoop.
func (c *conn) readLoop() {
	defer func() {
		for id := range c.joined {
			if err := c.srv.sessions.Leave(id, c.participant.ID()); err != nil {
				c.logger.Debug("leave on disconnect", observability.Session(id), zap.Error(err))
			}
		}
		c.participant.Close()
		c.logger.Info("client disconnected", zap.Int("sessions", len(c.joined)))
	}()

	c.ws.SetReadLimit(c.srv.cfg.MaxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.srv.cfg.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.srv.cfg.ReadTimeout))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read failed", zap.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.srv.cfg.ReadTimeout))

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reject("", apperrors.Wrap(apperrors.CodeInvalidAction, "malformed message", err))
			continue
		}
		c.handle(msg)
	}
}

func (c *conn) handle(msg ClientMessage) {
	id := c.participant.ID()
	var err error
	switch msg.Type {
	case MsgJoinBattle:
		if _, err = c.srv.sessions.Join(msg.BattleID, c.participant, msg.Team); err == nil {
			c.joined[msg.BattleID] = struct{}{}
		}
	case MsgBattleAction:
		if msg.Action == nil {
			err = apperrors.New(apperrors.CodeInvalidAction, "battle_action requires an action")
			break
		}
		_, err = c.srv.sessions.SubmitAction(msg.BattleID, id, *msg.Action)
	case MsgLeaveBattle:
		if err = c.srv.sessions.Leave(msg.BattleID, id); err == nil {
			delete(c.joined, msg.BattleID)
		}
	case MsgAck:
		err = c.srv.sessions.Ack(msg.BattleID, id)
	case MsgChatMessage:
		err = c.srv.sessions.Chat(msg.BattleID, id, truncateChat(msg.Message))
	default:
		err = apperrors.Newf(apperrors.CodeInvalidAction, "unknown message type %q", msg.Type)
	}
	if err != nil {
		c.reject(msg.BattleID, err)
	}
}

// reject reports err to this client only.
func (c *conn) reject(battleID string, err error) {
	c.logger.Debug("request rejected", observability.Session(battleID), zap.Error(err))
	if perr := c.participant.Push(session.ErrorEvent(battleID, err)); perr != nil {
		c.logger.Warn("dropping error event", zap.Error(perr))
	}
}

// writeLoop relays participant events and keeps the connection alive with
// pings. It closes ws when the participant closes or a write fails.
func (c *conn) writeLoop() {
	ticker := time.NewTicker(c.srv.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case ev, ok := <-c.participant.Events():
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.srv.cfg.WriteTimeout))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteJSON(ev); err != nil {
				c.logger.Debug("write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.srv.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
