// Package protocol defines the JSON request/response envelope spoken over
// every transport: one request yields one response, and the server pushes
// unsolicited notifications using the same response shape.
package protocol

import (
	"encoding/json"
	"errors"
)

// Recognized commands.
const (
	CmdCreatePlayer     = "create_player"
	CmdJoinMatchmaking  = "join_matchmaking"
	CmdLeaveMatchmaking = "leave_matchmaking"
	CmdGetRooms         = "get_rooms"
	CmdGetPlayerInfo    = "get_player_info"
	CmdGetQueueStatus   = "get_queue_status"

	// Server-push notifications.
	CmdMatchNotify   = "match_notify"
	CmdStatusChanged = "status_changed"

	// CmdError is used when the request envelope itself cannot be parsed.
	CmdError = "error"
)

// Player status values carried by status_changed notifications.
const (
	StatusInQueue   = "in_queue"
	StatusLeftQueue = "left_queue"
)

var ErrMalformedRequest = errors.New("malformed request envelope")

// Request is the client-to-server envelope.
type Request struct {
	Cmd  string          `json:"cmd"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response is the server-to-client envelope, used for both replies and
// notifications.
type Response struct {
	Cmd     string      `json:"cmd"`
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// DecodeRequest parses a request envelope. A request without a cmd is
// malformed.
func DecodeRequest(raw []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, ErrMalformedRequest
	}
	if req.Cmd == "" {
		return nil, ErrMalformedRequest
	}
	return &req, nil
}

// OK builds a success response.
func OK(cmd, message string, data interface{}) *Response {
	return &Response{Cmd: cmd, Success: true, Message: message, Data: data}
}

// Fail builds a failure response.
func Fail(cmd, message string) *Response {
	return &Response{Cmd: cmd, Success: false, Message: message}
}

// Request payloads.

type CreatePlayerRequest struct {
	Name   string `json:"name"`
	Rating *int   `json:"rating,omitempty"`
}

type PlayerIDRequest struct {
	PlayerID uint64 `json:"player_id"`
}

// Response payloads.

type CreatePlayerData struct {
	PlayerID uint64 `json:"player_id"`
	Name     string `json:"name"`
	Rating   int    `json:"rating"`
}

type PlayerInfoData struct {
	PlayerID uint64 `json:"player_id"`
	Name     string `json:"name"`
	Rating   int    `json:"rating"`
	InQueue  bool   `json:"in_queue"`
}

type RoomData struct {
	RoomID      uint64  `json:"room_id"`
	Status      string  `json:"status"`
	PlayerCount int     `json:"player_count"`
	Capacity    int     `json:"capacity"`
	AvgRating   float64 `json:"avg_rating"`
}

type QueueStatusData struct {
	QueueSize int `json:"queue_size"`
}

// Notification payloads.

type PlayerBrief struct {
	PlayerID uint64 `json:"player_id"`
	Name     string `json:"name"`
	Rating   int    `json:"rating"`
}

type MatchNotifyData struct {
	RoomID  uint64        `json:"room_id"`
	Players []PlayerBrief `json:"players"`
}

type StatusChangedData struct {
	PlayerID uint64 `json:"player_id"`
	Status   string `json:"status"`
}
