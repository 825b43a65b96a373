package server

import (
	"encoding/json"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/XR-stb/GMatch/internal/protocol"
)

// Session is one connected client, independent of transport. Send must be
// safe for concurrent use: responses and pushed notifications can race.
type Session interface {
	ID() uuid.UUID
	RemoteAddr() string
	Send(resp *protocol.Response) error
	Close() error
}

// tcpSession speaks newline-delimited JSON envelopes over a raw TCP
// connection.
type tcpSession struct {
	id   uuid.UUID
	conn net.Conn

	writeMu sync.Mutex
}

func newTCPSession(conn net.Conn) *tcpSession {
	return &tcpSession{
		id:   uuid.New(),
		conn: conn,
	}
}

func (s *tcpSession) ID() uuid.UUID { return s.id }

func (s *tcpSession) RemoteAddr() string { return s.conn.RemoteAddr().String() }

func (s *tcpSession) Send(resp *protocol.Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	payload = append(payload, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err = s.conn.Write(payload)
	return err
}

func (s *tcpSession) Close() error {
	return s.conn.Close()
}
