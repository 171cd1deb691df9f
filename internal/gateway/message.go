package gateway

import (
	"unicode/utf8"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/battle"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/roster"
)

// Client message types.
const (
	MsgJoinBattle   = "join_battle"
	MsgBattleAction = "battle_action"
	MsgLeaveBattle  = "leave_battle"
	MsgAck          = "ack"
	MsgChatMessage  = "chat_message"
)

// maxChatLen truncates chat messages, counted in bytes.
const maxChatLen = 500

// truncateChat cuts text to at most maxChatLen bytes without splitting a rune.
func truncateChat(text string) string {
	if len(text) <= maxChatLen {
		return text
	}
	n := maxChatLen
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}

// ClientMessage is one inbound websocket frame. Only the fields relevant to
// Type are read.
type ClientMessage struct {
	Type     string         `json:"type"`
	BattleID string         `json:"battle_id"`
	Team     roster.Team    `json:"team,omitempty"`
	Action   *battle.Action `json:"action,omitempty"`
	Message  string         `json:"message,omitempty"`
}
