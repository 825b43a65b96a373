package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/XR-stb/GMatch/internal/protocol"
)

// Router builds the HTTP surface: health check, read-only diagnostics and
// the WebSocket endpoint.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	r.HandleFunc("/ws", s.handleWebSocket)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleAdminStatus).Methods("GET")
	api.HandleFunc("/rooms", s.handleAdminRooms).Methods("GET")
	api.HandleFunc("/queue", s.handleAdminQueue).Methods("GET")

	return r
}

func (s *Server) handleAdminStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	s.manager.PrintMatchmakingStatus(w)
}

func (s *Server) handleAdminRooms(w http.ResponseWriter, _ *http.Request) {
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
	writeJSON(w, data)
}

func (s *Server) handleAdminQueue(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, protocol.QueueStatusData{QueueSize: s.manager.QueueSize()})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
