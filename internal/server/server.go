// Package server wires the matchmaking engine to its transports: the
// line-oriented TCP protocol, a WebSocket endpoint speaking the same JSON
// envelopes, and a small HTTP admin surface.
package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/XR-stb/GMatch/internal/analytics"
	"github.com/XR-stb/GMatch/internal/config"
	"github.com/XR-stb/GMatch/internal/match"
	"github.com/XR-stb/GMatch/internal/protocol"
)

// Server accepts client connections and routes their requests into the
// match manager. It installs itself as the manager's notification sink.
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	manager   *match.Manager
	analytics *analytics.Service
	registry  *Registry

	listener   net.Listener
	httpServer *http.Server

	sessionsMu sync.Mutex
	sessions   map[uuid.UUID]Session

	closed atomic.Bool
	wg     sync.WaitGroup
}

// New creates a server over an initialized manager and installs the
// match-notify and player-status callbacks.
func New(cfg *config.Config, logger *zap.Logger, manager *match.Manager, analyticsSvc *analytics.Service) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if analyticsSvc == nil {
		analyticsSvc = analytics.NewService(nil, false)
	}
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		manager:   manager,
		analytics: analyticsSvc,
		registry:  NewRegistry(),
		sessions:  make(map[uuid.UUID]Session),
	}
	manager.SetMatchNotifyCallback(s.onMatchNotify)
	manager.SetPlayerStatusCallback(s.onPlayerStatus)
	return s
}

// Start binds the TCP listener (and the HTTP listener when configured) and
// launches the accept loop. A bind failure is fatal and returned to the
// caller.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.TCPAddr())
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.cfg.TCPAddr(), err)
	}
	s.listener = ln
	s.logger.Info("listening", zap.String("address", ln.Addr().String()))

	s.wg.Add(1)
	go s.acceptLoop()

	if s.cfg.HTTPAddress != "" {
		s.httpServer = &http.Server{
			Addr:         s.cfg.HTTPAddress,
			Handler:      s.Router(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			s.logger.Info("http listening", zap.String("address", s.cfg.HTTPAddress))
			if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("http server failed", zap.Error(err))
			}
		}()
	}
	return nil
}

// Addr returns the bound TCP address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting, closes every session and waits for connection
// goroutines to drain or the context to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.listener != nil {
		s.listener.Close()
	}

	s.sessionsMu.Lock()
	for _, sess := range s.sessions {
		sess.Close()
	}
	s.sessionsMu.Unlock()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warn("http shutdown", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", zap.Error(err))
			continue
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()

	sess := newTCPSession(conn)
	s.addSession(sess)
	s.logger.Info("client connected",
		zap.String("session", sess.ID().String()),
		zap.String("remote", sess.RemoteAddr()))

	defer func() {
		conn.Close()
		s.dropSession(sess)
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 256*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		resp := s.dispatch(sess, line)
		if err := sess.Send(resp); err != nil {
			return
		}
	}
}

func (s *Server) addSession(sess Session) {
	s.sessionsMu.Lock()
	s.sessions[sess.ID()] = sess
	s.sessionsMu.Unlock()
}

// dropSession tears down a disconnected client: every player reachable only
// through this session is removed, mirroring an explicit remove_player.
func (s *Server) dropSession(sess Session) {
	s.sessionsMu.Lock()
	delete(s.sessions, sess.ID())
	s.sessionsMu.Unlock()

	orphaned := s.registry.UnbindSession(sess.ID())
	for _, playerID := range orphaned {
		s.manager.RemovePlayer(playerID)
		s.analytics.PlayerRemoved(playerID)
	}
	s.logger.Info("client disconnected",
		zap.String("session", sess.ID().String()),
		zap.Int("players_removed", len(orphaned)))
}

// onMatchNotify pushes match_notify to every member of the new room.
func (s *Server) onMatchNotify(room *match.Room) {
	players := room.Players()
	briefs := make([]protocol.PlayerBrief, 0, len(players))
	for _, p := range players {
		briefs = append(briefs, protocol.PlayerBrief{
			PlayerID: uint64(p.ID()),
			Name:     p.Name(),
			Rating:   p.Rating(),
		})
	}
	resp := protocol.OK(protocol.CmdMatchNotify, "Match found", protocol.MatchNotifyData{
		RoomID:  uint64(room.ID()),
		Players: briefs,
	})

	for _, p := range players {
		for _, sess := range s.registry.SessionsFor(p.ID()) {
			if err := sess.Send(resp); err != nil {
				s.logger.Warn("failed to push match notification",
					zap.Uint64("player_id", uint64(p.ID())), zap.Error(err))
			}
		}
	}
	s.analytics.MatchCreated(room)
}

// onPlayerStatus pushes status_changed to the affected player's sessions.
func (s *Server) onPlayerStatus(id match.PlayerID, inQueue bool) {
	status := protocol.StatusLeftQueue
	if inQueue {
		status = protocol.StatusInQueue
	}
	resp := protocol.OK(protocol.CmdStatusChanged, "Player status changed", protocol.StatusChangedData{
		PlayerID: uint64(id),
		Status:   status,
	})
	for _, sess := range s.registry.SessionsFor(id) {
		if err := sess.Send(resp); err != nil {
			s.logger.Warn("failed to push status notification",
				zap.Uint64("player_id", uint64(id)), zap.Error(err))
		}
	}
	s.analytics.PlayerQueueStatus(id, inQueue, s.manager.QueueSize())
}
