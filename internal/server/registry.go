package server

import (
	"sync"

	"github.com/google/uuid"

	"github.com/XR-stb/GMatch/internal/match"
)

// Registry tracks which sessions speak for which players so notifications
// can be fanned out. A player may be bound to several sessions and a session
// may own several players.
type Registry struct {
	mu        sync.RWMutex
	byPlayer  map[match.PlayerID]map[uuid.UUID]Session
	bySession map[uuid.UUID]map[match.PlayerID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		byPlayer:  make(map[match.PlayerID]map[uuid.UUID]Session),
		bySession: make(map[uuid.UUID]map[match.PlayerID]struct{}),
	}
}

// Bind associates a player with a session.
func (r *Registry) Bind(sess Session, playerID match.PlayerID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.byPlayer[playerID]
	if !ok {
		sessions = make(map[uuid.UUID]Session)
		r.byPlayer[playerID] = sessions
	}
	sessions[sess.ID()] = sess

	players, ok := r.bySession[sess.ID()]
	if !ok {
		players = make(map[match.PlayerID]struct{})
		r.bySession[sess.ID()] = players
	}
	players[playerID] = struct{}{}
}

// UnbindSession removes a session and returns the players that are no longer
// reachable through any session (the disconnect-cleanup set).
func (r *Registry) UnbindSession(sessionID uuid.UUID) []match.PlayerID {
	r.mu.Lock()
	defer r.mu.Unlock()

	players, ok := r.bySession[sessionID]
	if !ok {
		return nil
	}
	delete(r.bySession, sessionID)

	var orphaned []match.PlayerID
	for playerID := range players {
		sessions := r.byPlayer[playerID]
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(r.byPlayer, playerID)
			orphaned = append(orphaned, playerID)
		}
	}
	return orphaned
}

// UnbindPlayer removes a player from every session binding.
func (r *Registry) UnbindPlayer(playerID match.PlayerID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for sessionID := range r.byPlayer[playerID] {
		delete(r.bySession[sessionID], playerID)
	}
	delete(r.byPlayer, playerID)
}

// SessionsFor returns a snapshot of the sessions bound to a player.
func (r *Registry) SessionsFor(playerID match.PlayerID) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]Session, 0, len(r.byPlayer[playerID]))
	for _, sess := range r.byPlayer[playerID] {
		sessions = append(sessions, sess)
	}
	return sessions
}
