package gateway_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/config"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/roster"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/session"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/gateway"
)

type fixedSrc struct{ val int }

func (f fixedSrc) Intn(n int) int {
	if f.val >= n {
		return n - 1
	}
	return f.val
}

type wireEvent struct {
	Type     string          `json:"type"`
	BattleID string          `json:"battle_id"`
	Payload  json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	reg, err := catalog.LoadDirectory(filepath.Join("..", "..", "content", "catalog"))
	require.NoError(t, err)
	mgr := session.NewManager(session.DefaultConfig(), roster.NewResolver(reg, 6), reg, nil, fixedSrc{val: 10}, nil, logger)
	cfg := config.GatewayConfig{
		Host:            "127.0.0.1",
		Port:            8080,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    time.Second,
		PingInterval:    time.Second,
		EventBuffer:     16,
		MaxMessageBytes: 1 << 16,
	}
	srv := httptest.NewServer(gateway.NewServer(cfg, mgr, logger).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, msg gateway.ClientMessage) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(msg))
}

func next(t *testing.T, ws *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	var ev wireEvent
	require.NoError(t, ws.ReadJSON(&ev))
	return ev
}

func team() roster.Team {
	return roster.Team{{
		CatalogID:  "kyubi",
		Level:      50,
		IVs:        [5]int{8, 8, 8, 8, 8},
		AttitudeID: "calm",
	}}
}

func joinBoth(t *testing.T, srv *httptest.Server) (*websocket.Conn, *websocket.Conn) {
	t.Helper()
	a, b := dial(t, srv), dial(t, srv)
	send(t, a, gateway.ClientMessage{Type: gateway.MsgJoinBattle, BattleID: "b1", Team: team()})
	assert.Equal(t, string(session.EventWaitingForOpponent), next(t, a).Type)
	send(t, b, gateway.ClientMessage{Type: gateway.MsgJoinBattle, BattleID: "b1", Team: team()})
	assert.Equal(t, string(session.EventBattleStart), next(t, a).Type)
	assert.Equal(t, string(session.EventBattleStart), next(t, b).Type)
	return a, b
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGateway_FullTurnRelayedToBoth(t *testing.T) {
	srv := newTestServer(t)
	a, b := joinBoth(t, srv)

	raw := []byte(`{"type":"battle_action","battle_id":"b1","action":{"category":"attack"}}`)
	require.NoError(t, a.WriteMessage(websocket.TextMessage, raw))
	require.NoError(t, b.WriteMessage(websocket.TextMessage, raw))

	for _, ws := range []*websocket.Conn{a, b} {
		ev := next(t, ws)
		assert.Equal(t, string(session.EventActionResult), ev.Type)
		assert.Equal(t, "b1", ev.BattleID)
		assert.Equal(t, string(session.EventStateUpdate), next(t, ws).Type)
	}
}

func TestGateway_ChatRelaysToOpponent(t *testing.T) {
	srv := newTestServer(t)
	a, b := joinBoth(t, srv)

	send(t, a, gateway.ClientMessage{Type: gateway.MsgChatMessage, BattleID: "b1", Message: "good luck"})
	ev := next(t, b)
	require.Equal(t, string(session.EventChatMessage), ev.Type)
	var chat session.ChatPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &chat))
	assert.Equal(t, "good luck", chat.Message)
}

func TestGateway_ChatTruncatesOnRuneBoundary(t *testing.T) {
	srv := newTestServer(t)
	a, b := joinBoth(t, srv)

	long := strings.Repeat("x", 499) + "é" + strings.Repeat("y", 10)
	send(t, a, gateway.ClientMessage{Type: gateway.MsgChatMessage, BattleID: "b1", Message: long})
	ev := next(t, b)
	require.Equal(t, string(session.EventChatMessage), ev.Type)
	var chat session.ChatPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &chat))
	assert.Equal(t, strings.Repeat("x", 499), chat.Message)
	assert.True(t, utf8.ValidString(chat.Message))

	send(t, a, gateway.ClientMessage{Type: gateway.MsgChatMessage, BattleID: "b1", Message: strings.Repeat("é", 300)})
	ev = next(t, b)
	require.NoError(t, json.Unmarshal(ev.Payload, &chat))
	assert.Equal(t, strings.Repeat("é", 250), chat.Message)
}

func TestGateway_ErrorsGoToSender(t *testing.T) {
	srv := newTestServer(t)
	ws := dial(t, srv)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{not json`)))
	ev := next(t, ws)
	assert.Equal(t, string(session.EventError), ev.Type)

	send(t, ws, gateway.ClientMessage{Type: "dance"})
	ev = next(t, ws)
	var payload session.ErrorPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, "INVALID_ACTION", string(payload.Code))

	send(t, ws, gateway.ClientMessage{Type: gateway.MsgBattleAction, BattleID: "nope"})
	ev = next(t, ws)
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, "INVALID_ACTION", string(payload.Code), "missing action body")

	send(t, ws, gateway.ClientMessage{Type: gateway.MsgAck, BattleID: "nope"})
	ev = next(t, ws)
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, "SESSION_NOT_FOUND", string(payload.Code))
}

func TestGateway_DisconnectForfeits(t *testing.T) {
	srv := newTestServer(t)
	a, b := joinBoth(t, srv)

	require.NoError(t, b.Close())

	assert.Equal(t, string(session.EventOpponentLeft), next(t, a).Type)
	ev := next(t, a)
	require.Equal(t, string(session.EventBattleEnd), ev.Type)
	var end struct {
		Winner string `json:"winner"`
	}
	require.NoError(t, json.Unmarshal(ev.Payload, &end))
	assert.Equal(t, "a", end.Winner)
}
