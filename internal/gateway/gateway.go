// Package gateway exposes the session manager over websockets. Session
// events are written to clients verbatim as JSON.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/config"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/battle"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/roster"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/session"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/observability"
)

// Sessions is the subset of *session.Manager the gateway drives.
type Sessions interface {
	Join(sessionID string, p *session.Participant, team roster.Team) (session.JoinResult, error)
	SubmitAction(sessionID, participantID string, action battle.Action) (battle.SubmitResult, error)
	Leave(sessionID, participantID string) error
	Ack(sessionID, participantID string) error
	Chat(sessionID, participantID, message string) error
}

// Server is the websocket front door. It implements server.Service.
type Server struct {
	cfg      config.GatewayConfig
	sessions Sessions
	logger   *zap.Logger
	upgrader websocket.Upgrader
	http     *http.Server
}

// NewServer creates a gateway bound to cfg.Addr().
//
// Precondition: sessions and logger must be non-nil.
func NewServer(cfg config.GatewayConfig, sessions Sessions, logger *zap.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		logger:   logger,
		upgrader: websocket.Upgrader{
			// Browser clients are served from other origins during development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler routes GET /ws to the websocket upgrade and GET /healthz to a
// liveness probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.serveWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start listens until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("gateway listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the listener down. Hijacked websocket connections are not
// tracked by http.Server; they end when their reads fail.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("gateway shutdown", zap.Error(err))
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	id := uuid.NewString()
	c := &conn{
		srv:         s,
		ws:          ws,
		participant: session.NewParticipant(id, s.cfg.EventBuffer),
		joined:      make(map[string]struct{}),
		logger:      s.logger.With(observability.Participant(id)),
	}
	c.logger.Info("client connected", zap.String("remote", r.RemoteAddr))
	go c.writeLoop()
	c.readLoop()
}
