package server

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/XR-stb/GMatch/internal/match"
	"github.com/XR-stb/GMatch/internal/protocol"
)

// dispatch parses one request envelope and routes it to the matching
// handler. All failures come back as success=false responses; nothing here
// may panic or kill the connection.
func (s *Server) dispatch(sess Session, raw []byte) *protocol.Response {
	req, err := protocol.DecodeRequest(raw)
	if err != nil {
		return protocol.Fail(protocol.CmdError, "Invalid JSON format")
	}
	s.logger.Debug("request",
		zap.String("session", sess.ID().String()),
		zap.String("cmd", req.Cmd))

	switch req.Cmd {
	case protocol.CmdCreatePlayer:
		return s.handleCreatePlayer(sess, req.Data)
	case protocol.CmdJoinMatchmaking:
		return s.handleJoinMatchmaking(req)
	case protocol.CmdLeaveMatchmaking:
		return s.handleLeaveMatchmaking(req)
	case protocol.CmdGetRooms:
		return s.handleGetRooms()
	case protocol.CmdGetPlayerInfo:
		return s.handleGetPlayerInfo(req)
	case protocol.CmdGetQueueStatus:
		return s.handleGetQueueStatus()
	default:
		return protocol.Fail(req.Cmd, "Unknown command")
	}
}

func (s *Server) handleCreatePlayer(sess Session, data json.RawMessage) *protocol.Response {
	payload := protocol.CreatePlayerRequest{Name: "Player"}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return protocol.Fail(protocol.CmdCreatePlayer, "Invalid request data")
		}
	}
	if payload.Name == "" {
		payload.Name = "Player"
	}
	rating := match.DefaultRating
	if payload.Rating != nil {
		rating = *payload.Rating
	}

	p := s.manager.CreatePlayer(payload.Name, rating)
	s.registry.Bind(sess, p.ID())
	s.analytics.PlayerCreated(p)

	return protocol.OK(protocol.CmdCreatePlayer, "Player created successfully", protocol.CreatePlayerData{
		PlayerID: uint64(p.ID()),
		Name:     p.Name(),
		Rating:   p.Rating(),
	})
}

func (s *Server) handleJoinMatchmaking(req *protocol.Request) *protocol.Response {
	id, resp := parsePlayerID(req)
	if resp != nil {
		return resp
	}
	if err := s.manager.JoinMatchmaking(id); err != nil {
		return protocol.Fail(protocol.CmdJoinMatchmaking, "Failed to join matchmaking queue: "+err.Error())
	}
	return protocol.OK(protocol.CmdJoinMatchmaking, "Joined matchmaking queue", struct{}{})
}

func (s *Server) handleLeaveMatchmaking(req *protocol.Request) *protocol.Response {
	id, resp := parsePlayerID(req)
	if resp != nil {
		return resp
	}
	if err := s.manager.LeaveMatchmaking(id); err != nil {
		return protocol.Fail(protocol.CmdLeaveMatchmaking, "Failed to leave matchmaking queue: "+err.Error())
	}
	return protocol.OK(protocol.CmdLeaveMatchmaking, "Left matchmaking queue", struct{}{})
}

func (s *Server) handleGetRooms() *protocol.Response {
	rooms := s.manager.Rooms()
	data := make([]protocol.RoomData, 0, len(rooms))
	for _, r := range rooms {
		data = append(data, protocol.RoomData{
			RoomID:      uint64(r.ID()),
			Status:      r.Status().String(),
			PlayerCount: r.PlayerCount(),
			Capacity:    r.Capacity(),
			AvgRating:   r.AverageRating(),
		})
	}
	return protocol.OK(protocol.CmdGetRooms, "Rooms retrieved successfully", data)
}

func (s *Server) handleGetPlayerInfo(req *protocol.Request) *protocol.Response {
	id, resp := parsePlayerID(req)
	if resp != nil {
		return resp
	}
	p, ok := s.manager.GetPlayer(id)
	if !ok {
		return protocol.Fail(protocol.CmdGetPlayerInfo, "Player not found")
	}
	return protocol.OK(protocol.CmdGetPlayerInfo, "Player info retrieved successfully", protocol.PlayerInfoData{
		PlayerID: uint64(p.ID()),
		Name:     p.Name(),
		Rating:   p.Rating(),
		InQueue:  p.InQueue(),
	})
}

func (s *Server) handleGetQueueStatus() *protocol.Response {
	return protocol.OK(protocol.CmdGetQueueStatus, "Queue status retrieved successfully", protocol.QueueStatusData{
		QueueSize: s.manager.QueueSize(),
	})
}

// parsePlayerID extracts the player_id field common to several commands. A
// missing or unparseable id yields a ready-made failure response.
func parsePlayerID(req *protocol.Request) (match.PlayerID, *protocol.Response) {
	if len(req.Data) == 0 {
		return 0, protocol.Fail(req.Cmd, "Player ID is required")
	}
	var payload protocol.PlayerIDRequest
	if err := json.Unmarshal(req.Data, &payload); err != nil {
		return 0, protocol.Fail(req.Cmd, "Invalid player ID")
	}
	if payload.PlayerID == 0 {
		return 0, protocol.Fail(req.Cmd, "Player ID is required")
	}
	return match.PlayerID(payload.PlayerID), nil
}
