package session

import (
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/apperrors"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/battle"
)

// EventType names an outbound event shape.
type EventType string

const (
	EventWaitingForOpponent EventType = "waiting_for_opponent"
	EventBattleStart        EventType = "battle_start"
	EventStateUpdate        EventType = "state_update"
	EventActionResult       EventType = "action_result"
	EventBattleEnd          EventType = "battle_end"
	EventOpponentLeft       EventType = "opponent_left"
	EventChatMessage        EventType = "chat_message"
	EventError              EventType = "error"
)

// Event is one message for a participant, relayed verbatim by the transport.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"battle_id"`
	Payload   any       `json:"payload,omitempty"`
}

// WaitingPayload accompanies EventWaitingForOpponent.
type WaitingPayload struct {
	Side battle.Side `json:"side"`
}

// StartPayload accompanies EventBattleStart. Opponent is the other side's
// roster as it stands at turn 1.
type StartPayload struct {
	Side     battle.Side       `json:"side"`
	Opponent battle.RosterView `json:"opponent"`
	State    battle.State      `json:"state"`
}

// ActionResultPayload accompanies EventActionResult.
type ActionResultPayload struct {
	Turn    int                   `json:"turn"`
	Results []battle.ActionResult `json:"results"`
}

// EndPayload accompanies EventBattleEnd.
type EndPayload struct {
	Winner battle.Winner `json:"winner"`
	Reason string        `json:"reason"`
	Turns  int           `json:"turns"`
}

// OpponentLeftPayload accompanies EventOpponentLeft.
type OpponentLeftPayload struct {
	Participant string `json:"participant"`
}

// ChatPayload accompanies EventChatMessage.
type ChatPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// ErrorPayload accompanies EventError.
type ErrorPayload struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

// ErrorEvent builds an EventError from err.
func ErrorEvent(sessionID string, err error) Event {
	return Event{
		Type:      EventError,
		SessionID: sessionID,
		Payload:   ErrorPayload{Code: apperrors.CodeOf(err), Message: apperrors.MessageOf(err)},
	}
}
