package server

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/XR-stb/GMatch/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsSession speaks the same JSON envelopes as the TCP transport, one
// envelope per WebSocket text message.
type wsSession struct {
	id   uuid.UUID
	conn *websocket.Conn

	writeMu sync.Mutex
}

func newWSSession(conn *websocket.Conn) *wsSession {
	return &wsSession{
		id:   uuid.New(),
		conn: conn,
	}
}

func (s *wsSession) ID() uuid.UUID { return s.id }

func (s *wsSession) RemoteAddr() string { return s.conn.RemoteAddr().String() }

func (s *wsSession) Send(resp *protocol.Response) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(resp)
}

func (s *wsSession) Close() error {
	return s.conn.Close()
}

// handleWebSocket upgrades the connection and runs the request loop until
// the peer disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sess := newWSSession(conn)
	s.addSession(sess)
	s.logger.Info("websocket client connected",
		zap.String("session", sess.ID().String()),
		zap.String("remote", sess.RemoteAddr()))

	defer func() {
		conn.Close()
		s.dropSession(sess)
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		resp := s.dispatch(sess, message)
		if err := sess.Send(resp); err != nil {
			return
		}
	}
}
